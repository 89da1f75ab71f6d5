package event

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shyndaliu/saga/internal/domain"
	pkgkafka "github.com/shyndaliu/saga/pkg/kafka"
	"github.com/shyndaliu/saga/pkg/logger"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) Publish(ctx context.Context, topic string, event *pkgkafka.Event) error {
	args := m.Called(ctx, topic, event)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOrder() *domain.Order {
	return &domain.Order{ID: "order1", Subject: "user1", Destination: "Some Street"}
}

func TestPublishCheckoutCompleted(t *testing.T) {
	w := &mockWriter{}
	var published *pkgkafka.Event
	w.On("Publish", mock.Anything, TopicCheckoutCompleted, mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(2).(*pkgkafka.Event) }).
		Return(nil)

	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	ctx = logger.WithSagaID(ctx, "saga-1")

	run := domain.SagaRun{ID: "saga-1", OrderID: "order1"}
	require.NoError(t, NewProducer(w, testLogger()).PublishCheckoutCompleted(ctx, run, testOrder(), 20))

	require.NotNil(t, published)
	assert.Equal(t, "saga-1", published.Key)
	assert.Equal(t, SourceCheckoutSaga, published.Source)
	assert.Equal(t, "corr-1", published.CorrelationID)
	assert.Equal(t, "saga-1", published.Metadata["saga_id"])

	var data CheckoutCompletedData
	require.NoError(t, json.Unmarshal(published.Data, &data))
	assert.Equal(t, int64(20), data.Cost)
	assert.Equal(t, "user1", data.Subject)
	w.AssertExpectations(t)
}

func TestPublish_NoSagaIDLeavesMetadataEmpty(t *testing.T) {
	w := &mockWriter{}
	var published *pkgkafka.Event
	w.On("Publish", mock.Anything, TopicShipmentDispatched, mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(2).(*pkgkafka.Event) }).
		Return(nil)

	require.NoError(t, NewProducer(w, testLogger()).PublishShipmentDispatched(context.Background(), testOrder()))

	require.NotNil(t, published)
	assert.Equal(t, "order1", published.Key)
	assert.Equal(t, AggregateTypeOrder, published.KeyKind)
	assert.Empty(t, published.CorrelationID)
	assert.Nil(t, published.Metadata)
}

func TestPublishCheckoutCompensated_ListsCompensatedSteps(t *testing.T) {
	w := &mockWriter{}
	var published *pkgkafka.Event
	w.On("Publish", mock.Anything, TopicCheckoutCompensated, mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(2).(*pkgkafka.Event) }).
		Return(nil)

	run := domain.SagaRun{
		ID:            "saga-2",
		FailedStep:    domain.StepShipping,
		FailureKind:   domain.FailureKindBusiness,
		FailureReason: "Invalid shipping address",
		Steps: []domain.SagaStep{
			{Name: domain.StepBalance, Status: domain.SagaStepCompensated},
			{Name: domain.StepStock, Status: domain.SagaStepCompensated},
			{Name: domain.StepShipping, Status: domain.SagaStepFailed},
		},
	}
	require.NoError(t, NewProducer(w, testLogger()).PublishCheckoutCompensated(context.Background(), run, testOrder()))

	var data CheckoutFailedData
	require.NoError(t, json.Unmarshal(published.Data, &data))
	assert.Equal(t, []string{domain.StepBalance, domain.StepStock}, data.Compensated)
	assert.Equal(t, "Invalid shipping address", data.Reason)
	assert.Equal(t, domain.StepShipping, data.FailedStep)
}

func TestPublishShipmentEvents(t *testing.T) {
	w := &mockWriter{}
	w.On("Publish", mock.Anything, TopicShipmentDispatched, mock.Anything).Return(nil).Once()
	w.On("Publish", mock.Anything, TopicShipmentCancelled, mock.Anything).Return(nil).Once()

	p := NewProducer(w, testLogger())
	require.NoError(t, p.PublishShipmentDispatched(context.Background(), testOrder()))
	require.NoError(t, p.PublishShipmentCancelled(context.Background(), testOrder()))
	w.AssertExpectations(t)
}

func TestPublish_WriterError(t *testing.T) {
	w := &mockWriter{}
	w.On("Publish", mock.Anything, TopicCheckoutFailed, mock.Anything).Return(errors.New("broker down"))

	err := NewProducer(w, testLogger()).PublishCheckoutFailed(context.Background(), domain.SagaRun{ID: "s"}, testOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checkout.failed")
}

func TestDiscard(t *testing.T) {
	p := NewProducer(Discard{}, testLogger())
	assert.NoError(t, p.PublishCheckoutFailed(context.Background(), domain.SagaRun{ID: "s"}, testOrder()))
}
