package domain

import (
	"sort"
)

// Order is the transaction a checkout saga runs for. It is looked up by ID
// when a saga starts and is never mutated by the saga itself.
type Order struct {
	ID          string     `json:"id" validate:"required,max=128"`
	Subject     string     `json:"subject" validate:"required,max=128"`
	Items       []LineItem `json:"items" validate:"required,min=1,dive"`
	Destination string     `json:"destination" validate:"max=512"`
}

// LineItem is a requested quantity of a single stock item.
type LineItem struct {
	ItemID   string `json:"item_id" validate:"required,max=128"`
	Quantity int64  `json:"quantity" validate:"gt=0"`
}

// TotalQuantity sums the quantity of every line item.
func (o *Order) TotalQuantity() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// Demand folds the line items into a per-item quantity, merging duplicates.
func (o *Order) Demand() map[string]int64 {
	demand := make(map[string]int64, len(o.Items))
	for _, item := range o.Items {
		demand[item.ItemID] += item.Quantity
	}
	return demand
}

// ItemIDs returns the distinct item IDs of the order in ascending order.
func (o *Order) ItemIDs() []string {
	demand := o.Demand()
	ids := make([]string, 0, len(demand))
	for id := range demand {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	cp := *o
	cp.Items = append([]LineItem(nil), o.Items...)
	return &cp
}

// Balance is a subject's available funds.
type Balance struct {
	Subject string `json:"subject"`
	Amount  int64  `json:"amount"`
}

// StockLevel is the available quantity of one item.
type StockLevel struct {
	ItemID   string `json:"item_id"`
	Quantity int64  `json:"quantity"`
}
