package service

import (
	"fmt"
	"math"

	"github.com/shyndaliu/saga/internal/domain"
)

// PricingPolicy computes what an order costs its subject.
type PricingPolicy interface {
	Cost(order *domain.Order) (int64, error)
}

// FlatUnitPrice charges the same price for every unit of every item.
type FlatUnitPrice struct {
	UnitPrice int64
}

func (p FlatUnitPrice) Cost(order *domain.Order) (int64, error) {
	qty := order.TotalQuantity()
	if qty < 0 || p.UnitPrice < 0 {
		return 0, fmt.Errorf("negative pricing input for order %s", order.ID)
	}
	if p.UnitPrice > 0 && qty > math.MaxInt64/p.UnitPrice {
		return 0, fmt.Errorf("cost of order %s overflows", order.ID)
	}
	return qty * p.UnitPrice, nil
}
