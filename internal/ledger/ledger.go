// Package ledger holds the in-memory resource stores the checkout saga
// mutates: the order catalog, subject balances and item stock. Every store is
// safe for concurrent use; multi-step check-then-act sequences are serialised
// by the caller through a KeyLocker.
package ledger

import (
	"fmt"

	apperrors "github.com/shyndaliu/saga/pkg/errors"
)

// ErrNegative is returned when a mutation would drive a quantity below zero.
var ErrNegative = fmt.Errorf("%w: quantity would become negative", apperrors.ErrConflict)
