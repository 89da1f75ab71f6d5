package ledger

import (
	"context"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/shyndaliu/saga/internal/domain"
	apperrors "github.com/shyndaliu/saga/pkg/errors"
)

// Balances maps subjects to their available funds.
type Balances struct {
	amounts *xsync.MapOf[string, int64]
}

func NewBalances() *Balances {
	return &Balances{amounts: xsync.NewMapOf[string, int64]()}
}

// GetBalance returns the funds of subject.
func (b *Balances) GetBalance(_ context.Context, subject string) (int64, error) {
	amount, ok := b.amounts.Load(subject)
	if !ok {
		return 0, apperrors.NotFound("balance", subject)
	}
	return amount, nil
}

// AdjustBalance adds delta to the funds of subject in a single atomic
// update. A result below zero is refused and leaves the balance untouched.
// Crediting an unknown subject opens a balance for it.
func (b *Balances) AdjustBalance(_ context.Context, subject string, delta int64) error {
	var err error
	b.amounts.Compute(subject, func(old int64, loaded bool) (int64, bool) {
		next := old + delta
		if next < 0 {
			if loaded {
				err = ErrNegative
			} else {
				err = apperrors.NotFound("balance", subject)
			}
			return old, !loaded
		}
		return next, false
	})
	return err
}

// SetBalance overwrites the funds of subject.
func (b *Balances) SetBalance(_ context.Context, subject string, amount int64) error {
	if amount < 0 {
		return ErrNegative
	}
	b.amounts.Store(subject, amount)
	return nil
}

// ListBalances returns every balance sorted by subject.
func (b *Balances) ListBalances(_ context.Context) []domain.Balance {
	out := make([]domain.Balance, 0, b.amounts.Size())
	b.amounts.Range(func(subject string, amount int64) bool {
		out = append(out, domain.Balance{Subject: subject, Amount: amount})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Subject < out[j].Subject })
	return out
}
