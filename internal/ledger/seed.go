package ledger

import (
	"context"
	"fmt"

	"github.com/shyndaliu/saga/internal/domain"
	"github.com/shyndaliu/saga/pkg/validator"
)

// SeedData is an initial set of balances, stock levels and orders.
type SeedData struct {
	Balances map[string]int64
	Stock    map[string]int64
	Orders   []domain.Order
}

// DemoData is the fixture the service starts with unless seeding is off:
// user1 can afford order1 in full, while order2 has no destination and its
// subject cannot pay for it.
func DemoData() SeedData {
	return SeedData{
		Balances: map[string]int64{"user1": 100, "user2": 5},
		Stock:    map[string]int64{"item1": 5, "item2": 3},
		Orders: []domain.Order{
			{
				ID:          "order1",
				Subject:     "user1",
				Items:       []domain.LineItem{{ItemID: "item1", Quantity: 2}},
				Destination: "Some Street",
			},
			{
				ID:          "order2",
				Subject:     "user2",
				Items:       []domain.LineItem{{ItemID: "item2", Quantity: 1}},
				Destination: "",
			},
		},
	}
}

// Seed loads data into the stores. Orders are validated first; nothing is
// written if any of them is invalid.
func Seed(ctx context.Context, data SeedData, catalog *Catalog, balances *Balances, stock *Stock) error {
	for i := range data.Orders {
		if err := validator.Validate(&data.Orders[i]); err != nil {
			return fmt.Errorf("seed order %q: %w", data.Orders[i].ID, err)
		}
	}

	for subject, amount := range data.Balances {
		if err := balances.SetBalance(ctx, subject, amount); err != nil {
			return fmt.Errorf("seed balance %q: %w", subject, err)
		}
	}
	for item, qty := range data.Stock {
		if err := stock.SetStock(ctx, item, qty); err != nil {
			return fmt.Errorf("seed stock %q: %w", item, err)
		}
	}
	for i := range data.Orders {
		if err := catalog.PutOrder(ctx, &data.Orders[i]); err != nil {
			return fmt.Errorf("seed order %q: %w", data.Orders[i].ID, err)
		}
	}
	return nil
}
