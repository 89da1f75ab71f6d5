// Package saga is the checkout saga engine: a compensable Step contract, the
// ordered Chain of steps built for one execution, and the Orchestrator that
// drives a chain forward and unwinds it in reverse on failure.
package saga

import (
	"context"

	"github.com/shyndaliu/saga/internal/domain"
)

// Step is one unit of compensable work.
//
// Do validates every precondition before mutating anything and returns a
// business failure (see pkg/errors) when the order cannot proceed. Any other
// error is treated as a system failure.
//
// Compensate undoes exactly what this Step applied during the current
// execution. It must be safe to call after a failed or partial Do, and a
// second call must be a no-op.
type Step interface {
	Name() string
	Do(ctx context.Context, order *domain.Order) (any, error)
	Compensate(ctx context.Context, order *domain.Order) error
}

// Chain is the ordered sequence of steps for a single execution. Steps hold
// no reference to each other; the chain alone knows the ordering.
type Chain struct {
	steps []Step
}

// NewChain builds a chain that runs steps in the given order.
func NewChain(steps ...Step) *Chain {
	return &Chain{steps: append([]Step(nil), steps...)}
}

func (c *Chain) Len() int {
	return len(c.steps)
}

// Step returns the i-th step.
func (c *Chain) Step(i int) Step {
	return c.steps[i]
}

// Prev returns the predecessor of the i-th step. The first step has none.
func (c *Chain) Prev(i int) (Step, bool) {
	if i <= 0 || i >= len(c.steps) {
		return nil, false
	}
	return c.steps[i-1], true
}

// Names lists the step names in execution order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.steps))
	for i, s := range c.steps {
		names[i] = s.Name()
	}
	return names
}
