package service

import (
	"context"

	"github.com/shyndaliu/saga/internal/domain"
)

// OrderCatalog resolves and stores orders.
type OrderCatalog interface {
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	PutOrder(ctx context.Context, order *domain.Order) error
	ListOrders(ctx context.Context) ([]domain.Order, error)
}

// BalanceLedger holds subject funds. AdjustBalance is a single atomic
// mutation that refuses to go below zero.
type BalanceLedger interface {
	GetBalance(ctx context.Context, subject string) (int64, error)
	AdjustBalance(ctx context.Context, subject string, delta int64) error
	SetBalance(ctx context.Context, subject string, amount int64) error
	ListBalances(ctx context.Context) []domain.Balance
}

// StockLedger holds item quantities. AdjustStock refuses to go below zero.
type StockLedger interface {
	GetStock(ctx context.Context, item string) (int64, error)
	AdjustStock(ctx context.Context, item string, delta int64) error
	SetStock(ctx context.Context, item string, qty int64) error
	Snapshot(ctx context.Context) []domain.StockLevel
}

// Locker serialises check-then-act sequences on ledger keys. Lock must take
// the keys in a deterministic order.
type Locker interface {
	Lock(keys ...string) (unlock func())
}

// Dispatcher hands orders to shipping.
type Dispatcher interface {
	Dispatch(ctx context.Context, order *domain.Order) error
	CancelDispatch(ctx context.Context, orderID string) error
}

// EventPublisher emits checkout and shipping domain events.
type EventPublisher interface {
	PublishCheckoutCompleted(ctx context.Context, run domain.SagaRun, order *domain.Order, cost int64) error
	PublishCheckoutFailed(ctx context.Context, run domain.SagaRun, order *domain.Order) error
	PublishCheckoutCompensated(ctx context.Context, run domain.SagaRun, order *domain.Order) error
	PublishShipmentDispatched(ctx context.Context, order *domain.Order) error
	PublishShipmentCancelled(ctx context.Context, order *domain.Order) error
}

// Stores groups the resource stores a checkout touches.
type Stores struct {
	Catalog  OrderCatalog
	Balances BalanceLedger
	Stock    StockLedger
	Locker   Locker
}

func balanceKey(subject string) string { return "balance/" + subject }

func stockKey(item string) string { return "stock/" + item }
