package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shyndaliu/saga/internal/domain"
	apperrors "github.com/shyndaliu/saga/pkg/errors"
	"github.com/shyndaliu/saga/pkg/validator"
)

// CreateOrder validates and stores an order. A missing ID is generated.
func (s *CheckoutService) CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if order == nil {
		return nil, apperrors.InvalidInput("order is required")
	}

	order = order.Clone()
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if err := validator.Validate(order); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	if err := s.stores.Catalog.PutOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("store order: %w", err)
	}
	return order, nil
}

func (s *CheckoutService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.stores.Catalog.GetOrder(ctx, id)
}

func (s *CheckoutService) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.stores.Catalog.ListOrders(ctx)
}

func (s *CheckoutService) GetBalance(ctx context.Context, subject string) (domain.Balance, error) {
	amount, err := s.stores.Balances.GetBalance(ctx, subject)
	if err != nil {
		return domain.Balance{}, err
	}
	return domain.Balance{Subject: subject, Amount: amount}, nil
}

func (s *CheckoutService) ListBalances(ctx context.Context) []domain.Balance {
	return s.stores.Balances.ListBalances(ctx)
}

// SetBalance overwrites a subject's funds. It waits for any saga holding the
// subject's lock.
func (s *CheckoutService) SetBalance(ctx context.Context, subject string, amount int64) (domain.Balance, error) {
	if amount < 0 {
		return domain.Balance{}, apperrors.InvalidInput("amount must not be negative")
	}

	unlock := s.stores.Locker.Lock(balanceKey(subject))
	defer unlock()

	if err := s.stores.Balances.SetBalance(ctx, subject, amount); err != nil {
		return domain.Balance{}, fmt.Errorf("set balance: %w", err)
	}
	return domain.Balance{Subject: subject, Amount: amount}, nil
}

func (s *CheckoutService) ListStock(ctx context.Context) []domain.StockLevel {
	return s.stores.Stock.Snapshot(ctx)
}

// SetStock overwrites an item's quantity. It waits for any saga holding the
// item's lock.
func (s *CheckoutService) SetStock(ctx context.Context, item string, qty int64) (domain.StockLevel, error) {
	if qty < 0 {
		return domain.StockLevel{}, apperrors.InvalidInput("quantity must not be negative")
	}

	unlock := s.stores.Locker.Lock(stockKey(item))
	defer unlock()

	if err := s.stores.Stock.SetStock(ctx, item, qty); err != nil {
		return domain.StockLevel{}, fmt.Errorf("set stock: %w", err)
	}
	return domain.StockLevel{ItemID: item, Quantity: qty}, nil
}

// GetSagaRun returns the latest record of a saga execution.
func (s *CheckoutService) GetSagaRun(_ context.Context, id string) (domain.SagaRun, error) {
	run, ok := s.registry.Get(id)
	if !ok {
		return domain.SagaRun{}, apperrors.NotFound("saga", id)
	}
	return run, nil
}

// ListSagaRuns returns every execution recorded for an order, oldest first.
func (s *CheckoutService) ListSagaRuns(_ context.Context, orderID string) []domain.SagaRun {
	return s.registry.ByOrder(orderID)
}
