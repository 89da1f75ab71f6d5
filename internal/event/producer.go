package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shyndaliu/saga/internal/domain"
	pkgkafka "github.com/shyndaliu/saga/pkg/kafka"
	"github.com/shyndaliu/saga/pkg/logger"
)

// Kafka topics for checkout and shipping events.
const (
	TopicCheckoutCompleted   = "checkout.completed"
	TopicCheckoutFailed      = "checkout.failed"
	TopicCheckoutCompensated = "checkout.compensated"
	TopicShipmentDispatched  = "shipment.dispatched"
	TopicShipmentCancelled   = "shipment.cancelled"
)

const (
	AggregateTypeSaga  = "saga"
	AggregateTypeOrder = "order"
)

// SourceCheckoutSaga identifies events emitted by this service.
const SourceCheckoutSaga = "checkout-saga"

// CheckoutCompletedData is the payload of checkout.completed.
type CheckoutCompletedData struct {
	SagaID  string `json:"saga_id"`
	OrderID string `json:"order_id"`
	Subject string `json:"subject"`
	Cost    int64  `json:"cost"`
}

// CheckoutFailedData is the payload of checkout.failed and
// checkout.compensated.
type CheckoutFailedData struct {
	SagaID      string   `json:"saga_id"`
	OrderID     string   `json:"order_id"`
	Subject     string   `json:"subject"`
	FailedStep  string   `json:"failed_step"`
	FailureKind string   `json:"failure_kind"`
	Reason      string   `json:"reason"`
	Compensated []string `json:"compensated,omitempty"`
}

// ShipmentData is the payload of shipment.dispatched and shipment.cancelled.
type ShipmentData struct {
	OrderID     string `json:"order_id"`
	Destination string `json:"destination"`
}

// Writer is the transport a Producer publishes through. *pkgkafka.Producer
// satisfies it.
type Writer interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Discard is a Writer that drops every event. It is used when Kafka is off.
type Discard struct{}

func (Discard) Publish(context.Context, string, *pkgkafka.Event) error { return nil }

// Producer publishes checkout domain events.
type Producer struct {
	writer Writer
	logger *slog.Logger
}

func NewProducer(writer Writer, logger *slog.Logger) *Producer {
	return &Producer{writer: writer, logger: logger}
}

// PublishCheckoutCompleted publishes a checkout.completed event.
func (p *Producer) PublishCheckoutCompleted(ctx context.Context, run domain.SagaRun, order *domain.Order, cost int64) error {
	return p.publish(ctx, TopicCheckoutCompleted, run.ID, AggregateTypeSaga, CheckoutCompletedData{
		SagaID:  run.ID,
		OrderID: order.ID,
		Subject: order.Subject,
		Cost:    cost,
	})
}

// PublishCheckoutFailed publishes a checkout.failed event.
func (p *Producer) PublishCheckoutFailed(ctx context.Context, run domain.SagaRun, order *domain.Order) error {
	return p.publish(ctx, TopicCheckoutFailed, run.ID, AggregateTypeSaga, failedData(run, order))
}

// PublishCheckoutCompensated publishes a checkout.compensated event listing
// the steps that were rolled back.
func (p *Producer) PublishCheckoutCompensated(ctx context.Context, run domain.SagaRun, order *domain.Order) error {
	return p.publish(ctx, TopicCheckoutCompensated, run.ID, AggregateTypeSaga, failedData(run, order))
}

// PublishShipmentDispatched publishes a shipment.dispatched event.
func (p *Producer) PublishShipmentDispatched(ctx context.Context, order *domain.Order) error {
	return p.publish(ctx, TopicShipmentDispatched, order.ID, AggregateTypeOrder, ShipmentData{
		OrderID:     order.ID,
		Destination: order.Destination,
	})
}

// PublishShipmentCancelled publishes a shipment.cancelled event.
func (p *Producer) PublishShipmentCancelled(ctx context.Context, order *domain.Order) error {
	return p.publish(ctx, TopicShipmentCancelled, order.ID, AggregateTypeOrder, ShipmentData{
		OrderID:     order.ID,
		Destination: order.Destination,
	})
}

func failedData(run domain.SagaRun, order *domain.Order) CheckoutFailedData {
	var compensated []string
	for _, s := range run.Steps {
		if s.Status == domain.SagaStepCompensated {
			compensated = append(compensated, s.Name)
		}
	}
	return CheckoutFailedData{
		SagaID:      run.ID,
		OrderID:     order.ID,
		Subject:     order.Subject,
		FailedStep:  run.FailedStep,
		FailureKind: run.FailureKind,
		Reason:      run.FailureReason,
		Compensated: compensated,
	}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	evt, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceCheckoutSaga, data,
		pkgkafka.WithCorrelationID(logger.CorrelationIDFromContext(ctx)),
		pkgkafka.WithMetadata("saga_id", logger.SagaIDFromContext(ctx)),
	)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.writer.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	logger.WithContext(ctx, p.logger).DebugContext(ctx, "domain event published",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
