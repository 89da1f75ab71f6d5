// Package shipping provides the dispatch collaborators used by the shipping
// step: an in-process simulation with fixed latency and an HTTP client for a
// real shipping service.
package shipping

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/shyndaliu/saga/internal/domain"
	"github.com/shyndaliu/saga/pkg/logger"
)

// Simulated dispatches by waiting a fixed latency. It remembers which orders
// are currently dispatched and which were cancelled.
type Simulated struct {
	latency    time.Duration
	logger     *slog.Logger
	dispatched *xsync.MapOf[string, time.Time]
	cancelled  *xsync.MapOf[string, time.Time]
}

func NewSimulated(latency time.Duration, logger *slog.Logger) *Simulated {
	return &Simulated{
		latency:    latency,
		logger:     logger,
		dispatched: xsync.NewMapOf[string, time.Time](),
		cancelled:  xsync.NewMapOf[string, time.Time](),
	}
}

// Dispatch waits for the configured latency or until ctx is done.
func (s *Simulated) Dispatch(ctx context.Context, order *domain.Order) error {
	timer := time.NewTimer(s.latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("dispatch order %s: %w", order.ID, ctx.Err())
	case <-timer.C:
	}

	s.dispatched.Store(order.ID, time.Now().UTC())
	logger.WithContext(ctx, s.logger).InfoContext(ctx, "shipment dispatched",
		slog.String("order_id", order.ID),
		slog.String("destination", order.Destination),
	)
	return nil
}

// CancelDispatch records the cancellation. Cancelling an order that never
// completed dispatch is allowed.
func (s *Simulated) CancelDispatch(ctx context.Context, orderID string) error {
	_, wasDispatched := s.dispatched.LoadAndDelete(orderID)
	s.cancelled.Store(orderID, time.Now().UTC())
	logger.WithContext(ctx, s.logger).InfoContext(ctx, "shipment cancelled",
		slog.String("order_id", orderID),
		slog.Bool("was_dispatched", wasDispatched),
	)
	return nil
}

// Dispatched reports whether orderID is currently dispatched.
func (s *Simulated) Dispatched(orderID string) bool {
	_, ok := s.dispatched.Load(orderID)
	return ok
}

// Cancelled reports whether a cancellation was recorded for orderID.
func (s *Simulated) Cancelled(orderID string) bool {
	_, ok := s.cancelled.Load(orderID)
	return ok
}
