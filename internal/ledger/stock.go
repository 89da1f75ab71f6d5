package ledger

import (
	"context"
	"sync"

	"github.com/tidwall/btree"

	"github.com/shyndaliu/saga/internal/domain"
	apperrors "github.com/shyndaliu/saga/pkg/errors"
)

// Stock maps item IDs to available quantities, kept ordered by item ID so
// snapshots come out sorted without extra work.
type Stock struct {
	mu    sync.RWMutex
	items *btree.Map[string, int64]
}

func NewStock() *Stock {
	return &Stock{items: btree.NewMap[string, int64](32)}
}

// GetStock returns the quantity available for item.
func (s *Stock) GetStock(_ context.Context, item string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	qty, ok := s.items.Get(item)
	if !ok {
		return 0, apperrors.NotFound("item", item)
	}
	return qty, nil
}

// AdjustStock adds delta to the quantity of item. A result below zero is
// refused and leaves the quantity untouched.
func (s *Stock) AdjustStock(_ context.Context, item string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	qty, ok := s.items.Get(item)
	if !ok && delta < 0 {
		return apperrors.NotFound("item", item)
	}
	if qty+delta < 0 {
		return ErrNegative
	}
	s.items.Set(item, qty+delta)
	return nil
}

// SetStock overwrites the quantity of item.
func (s *Stock) SetStock(_ context.Context, item string, qty int64) error {
	if qty < 0 {
		return ErrNegative
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items.Set(item, qty)
	return nil
}

// Snapshot returns every stock level ordered by item ID.
func (s *Stock) Snapshot(_ context.Context) []domain.StockLevel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.StockLevel, 0, s.items.Len())
	s.items.Scan(func(item string, qty int64) bool {
		out = append(out, domain.StockLevel{ItemID: item, Quantity: qty})
		return true
	})
	return out
}
