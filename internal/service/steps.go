package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shyndaliu/saga/internal/domain"
	apperrors "github.com/shyndaliu/saga/pkg/errors"
	"github.com/shyndaliu/saga/pkg/logger"
)

// Business failure messages shown to callers.
const (
	ReasonInsufficientBalance = "Insufficient balance"
	ReasonNotEnoughStock      = "Not enough stock"
	ReasonInvalidAddress      = "Invalid shipping address"
)

// BalanceStep debits the order cost from the subject's balance. One instance
// serves exactly one saga execution.
type BalanceStep struct {
	balances BalanceLedger
	locker   Locker
	pricing  PricingPolicy

	charged int64
}

func NewBalanceStep(balances BalanceLedger, locker Locker, pricing PricingPolicy) *BalanceStep {
	return &BalanceStep{balances: balances, locker: locker, pricing: pricing}
}

func (s *BalanceStep) Name() string { return domain.StepBalance }

// Do returns the charged cost as an int64.
func (s *BalanceStep) Do(ctx context.Context, order *domain.Order) (any, error) {
	cost, err := s.pricing.Cost(order)
	if err != nil {
		return nil, fmt.Errorf("price order: %w", err)
	}

	unlock := s.locker.Lock(balanceKey(order.Subject))
	defer unlock()

	balance, err := s.balances.GetBalance(ctx, order.Subject)
	if err != nil {
		return nil, fmt.Errorf("read balance of %s: %w", order.Subject, err)
	}
	if balance < cost {
		return nil, apperrors.InsufficientFunds(ReasonInsufficientBalance)
	}

	if err := s.balances.AdjustBalance(ctx, order.Subject, -cost); err != nil {
		return nil, fmt.Errorf("debit %s: %w", order.Subject, err)
	}
	s.charged = cost
	return cost, nil
}

// Compensate credits back whatever Do charged.
func (s *BalanceStep) Compensate(ctx context.Context, order *domain.Order) error {
	if s.charged == 0 {
		return nil
	}

	unlock := s.locker.Lock(balanceKey(order.Subject))
	defer unlock()

	if err := s.balances.AdjustBalance(ctx, order.Subject, s.charged); err != nil {
		return fmt.Errorf("credit %s: %w", order.Subject, err)
	}
	s.charged = 0
	return nil
}

// StockStep reserves every line item of the order. All items are checked
// before any is decremented.
type StockStep struct {
	stock  StockLedger
	locker Locker

	taken map[string]int64
}

func NewStockStep(stock StockLedger, locker Locker) *StockStep {
	return &StockStep{stock: stock, locker: locker, taken: make(map[string]int64)}
}

func (s *StockStep) Name() string { return domain.StepStock }

// Do returns the taken quantity per item.
func (s *StockStep) Do(ctx context.Context, order *domain.Order) (any, error) {
	demand := order.Demand()
	items := order.ItemIDs()

	unlock := s.locker.Lock(stockKeys(items)...)
	defer unlock()

	for _, item := range items {
		available, err := s.stock.GetStock(ctx, item)
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			available = 0
		case err != nil:
			return nil, fmt.Errorf("read stock of %s: %w", item, err)
		}
		if available < demand[item] {
			return nil, apperrors.InsufficientStock(ReasonNotEnoughStock)
		}
	}

	for _, item := range items {
		if err := s.stock.AdjustStock(ctx, item, -demand[item]); err != nil {
			return nil, fmt.Errorf("take stock of %s: %w", item, err)
		}
		s.taken[item] = demand[item]
	}

	out := make(map[string]int64, len(s.taken))
	for item, qty := range s.taken {
		out[item] = qty
	}
	return out, nil
}

// Compensate returns every quantity Do took. Items that cannot be restored
// stay recorded, so a later call retries only those.
func (s *StockStep) Compensate(ctx context.Context, _ *domain.Order) error {
	if len(s.taken) == 0 {
		return nil
	}

	items := make([]string, 0, len(s.taken))
	for item := range s.taken {
		items = append(items, item)
	}
	sort.Strings(items)

	unlock := s.locker.Lock(stockKeys(items)...)
	defer unlock()

	var errs []error
	for _, item := range items {
		if err := s.stock.AdjustStock(ctx, item, s.taken[item]); err != nil {
			errs = append(errs, fmt.Errorf("restore stock of %s: %w", item, err))
			continue
		}
		delete(s.taken, item)
	}
	return errors.Join(errs...)
}

func stockKeys(items []string) []string {
	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = stockKey(item)
	}
	return keys
}

// ShippingStep dispatches the order, bounded by a timeout.
type ShippingStep struct {
	dispatcher Dispatcher
	publisher  EventPublisher
	timeout    time.Duration
	logger     *slog.Logger

	attempted bool
}

func NewShippingStep(dispatcher Dispatcher, publisher EventPublisher, timeout time.Duration, logger *slog.Logger) *ShippingStep {
	return &ShippingStep{dispatcher: dispatcher, publisher: publisher, timeout: timeout, logger: logger}
}

func (s *ShippingStep) Name() string { return domain.StepShipping }

// Do has no result. A dispatch that outlives the timeout is a system failure.
func (s *ShippingStep) Do(ctx context.Context, order *domain.Order) (any, error) {
	if strings.TrimSpace(order.Destination) == "" {
		return nil, apperrors.InvalidDestination(ReasonInvalidAddress)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.attempted = true
	if err := s.dispatcher.Dispatch(ctx, order); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("shipping dispatch timed out after %s: %w", s.timeout, err)
		}
		return nil, err
	}

	if err := s.publisher.PublishShipmentDispatched(ctx, order); err != nil {
		logger.WithContext(ctx, s.logger).WarnContext(ctx, "failed to publish shipment.dispatched event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}
	return nil, nil
}

// Compensate cancels a dispatch Do attempted, whether or not it finished.
func (s *ShippingStep) Compensate(ctx context.Context, order *domain.Order) error {
	if !s.attempted {
		return nil
	}
	s.attempted = false

	log := logger.WithContext(ctx, s.logger)
	log.InfoContext(ctx, "cancelling shipment", slog.String("order_id", order.ID))

	err := s.dispatcher.CancelDispatch(ctx, order.ID)
	if perr := s.publisher.PublishShipmentCancelled(ctx, order); perr != nil {
		log.WarnContext(ctx, "failed to publish shipment.cancelled event",
			slog.String("order_id", order.ID),
			slog.String("error", perr.Error()),
		)
	}
	if err != nil {
		return fmt.Errorf("cancel dispatch of %s: %w", order.ID, err)
	}
	return nil
}
