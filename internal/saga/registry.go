package saga

import (
	"sort"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/shyndaliu/saga/internal/domain"
)

// Retention bounds how many finished runs a Registry keeps. Runs that have
// not finished are never evicted.
type Retention struct {
	// MaxAge drops finished runs once they are older than this. Zero keeps
	// them until MaxRuns forces them out.
	MaxAge time.Duration

	// MaxRuns caps the number of retained runs. When exceeded, the oldest
	// finished runs are dropped until the registry is back under
	// lowWaterMark of the cap. Zero means no cap.
	MaxRuns int
}

// DefaultRetention keeps an hour of history, at most 10000 runs.
func DefaultRetention() Retention {
	return Retention{MaxAge: time.Hour, MaxRuns: 10000}
}

const (
	lowWaterMark  = 0.9
	sweepInterval = time.Minute
)

// Registry keeps the latest snapshot of every run for inspection. It
// implements Recorder. Finished runs are swept on Record.
type Registry struct {
	runs      *xsync.MapOf[string, domain.SagaRun]
	retention Retention
	nowFunc   func() time.Time

	sweepMu   sync.Mutex
	lastSweep time.Time
}

func NewRegistry(retention Retention) *Registry {
	return &Registry{
		runs:      xsync.NewMapOf[string, domain.SagaRun](),
		retention: retention,
		nowFunc:   time.Now,
	}
}

// Record stores run, replacing any earlier snapshot with the same ID.
func (r *Registry) Record(run domain.SagaRun) {
	r.runs.Store(run.ID, run)
	r.maybeSweep()
}

// Get returns the latest snapshot of the run with the given ID.
func (r *Registry) Get(id string) (domain.SagaRun, bool) {
	return r.runs.Load(id)
}

// Len returns the number of retained runs.
func (r *Registry) Len() int {
	return r.runs.Size()
}

// ByOrder returns every run recorded for orderID, oldest first.
func (r *Registry) ByOrder(orderID string) []domain.SagaRun {
	var out []domain.SagaRun
	r.runs.Range(func(_ string, run domain.SagaRun) bool {
		if run.OrderID == orderID {
			out = append(out, run)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// maybeSweep runs an age sweep at most once per sweepInterval and a cap
// sweep whenever the cap is exceeded. Concurrent callers skip the sweep
// rather than wait for it.
func (r *Registry) maybeSweep() {
	overCap := r.retention.MaxRuns > 0 && r.runs.Size() > r.retention.MaxRuns
	if !overCap && r.retention.MaxAge <= 0 {
		return
	}
	if !r.sweepMu.TryLock() {
		return
	}
	defer r.sweepMu.Unlock()

	now := r.nowFunc()
	if r.retention.MaxAge > 0 && now.Sub(r.lastSweep) >= sweepInterval {
		r.lastSweep = now
		r.evictOlderThan(now.Add(-r.retention.MaxAge))
	}
	if r.retention.MaxRuns > 0 && r.runs.Size() > r.retention.MaxRuns {
		r.evictOldestFinished(r.runs.Size() - int(float64(r.retention.MaxRuns)*lowWaterMark))
	}
}

func (r *Registry) evictOlderThan(cutoff time.Time) {
	r.runs.Range(func(id string, run domain.SagaRun) bool {
		if run.FinishedAt != nil && run.FinishedAt.Before(cutoff) {
			r.runs.Delete(id)
		}
		return true
	})
}

func (r *Registry) evictOldestFinished(n int) {
	if n <= 0 {
		return
	}

	type finished struct {
		id string
		at time.Time
	}
	var candidates []finished
	r.runs.Range(func(id string, run domain.SagaRun) bool {
		if run.FinishedAt != nil {
			candidates = append(candidates, finished{id: id, at: *run.FinishedAt})
		}
		return true
	})
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].at.Before(candidates[j].at) })

	if n > len(candidates) {
		n = len(candidates)
	}
	for _, c := range candidates[:n] {
		r.runs.Delete(c.id)
	}
}
