package ledger

import (
	"sort"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// KeyLocker hands out one mutex per key. Locks for several keys are always
// taken in ascending key order, so two callers locking overlapping key sets
// cannot deadlock. Mutexes are kept for the lifetime of the locker.
type KeyLocker struct {
	locks *xsync.MapOf[string, *sync.Mutex]
}

func NewKeyLocker() *KeyLocker {
	return &KeyLocker{locks: xsync.NewMapOf[string, *sync.Mutex]()}
}

// Lock acquires the mutex of every distinct key and returns the function that
// releases them.
func (l *KeyLocker) Lock(keys ...string) (unlock func()) {
	sorted := dedupe(keys)
	held := make([]*sync.Mutex, 0, len(sorted))
	for _, key := range sorted {
		mu, _ := l.locks.LoadOrCompute(key, func() *sync.Mutex { return &sync.Mutex{} })
		mu.Lock()
		held = append(held, mu)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

func dedupe(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	n := 0
	for i, k := range out {
		if i == 0 || k != out[n-1] {
			out[n] = k
			n++
		}
	}
	return out[:n]
}
