package ledger

import (
	"context"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/shyndaliu/saga/internal/domain"
	apperrors "github.com/shyndaliu/saga/pkg/errors"
)

// Catalog stores orders by ID. Orders are copied on the way in and out so a
// running saga never observes a concurrent replacement.
type Catalog struct {
	orders *xsync.MapOf[string, *domain.Order]
}

func NewCatalog() *Catalog {
	return &Catalog{orders: xsync.NewMapOf[string, *domain.Order]()}
}

// GetOrder returns the order with the given ID.
func (c *Catalog) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	order, ok := c.orders.Load(id)
	if !ok {
		return nil, apperrors.NotFound("order", id)
	}
	return order.Clone(), nil
}

// PutOrder creates or replaces an order.
func (c *Catalog) PutOrder(_ context.Context, order *domain.Order) error {
	if order.ID == "" {
		return apperrors.InvalidInput("order id is required")
	}
	c.orders.Store(order.ID, order.Clone())
	return nil
}

// ListOrders returns every order sorted by ID.
func (c *Catalog) ListOrders(_ context.Context) ([]domain.Order, error) {
	out := make([]domain.Order, 0, c.orders.Size())
	c.orders.Range(func(_ string, o *domain.Order) bool {
		out = append(out, *o.Clone())
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
