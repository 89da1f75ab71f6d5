package domain

import (
	"time"
)

// Saga execution states.
const (
	SagaStateIdle         = "idle"
	SagaStateRunning      = "running"
	SagaStateCompensating = "compensating"
	SagaStateCompleted    = "completed"
	SagaStateFailed       = "failed"
)

// Saga step status constants.
const (
	SagaStepPending     = "pending"
	SagaStepCompleted   = "completed"
	SagaStepFailed      = "failed"
	SagaStepCompensated = "compensated"
)

// Failure kinds distinguish expected business rejections from faults.
const (
	FailureKindBusiness = "business"
	FailureKindSystem   = "system"
)

// Saga step names for the checkout chain.
const (
	StepBalance  = "balance"
	StepStock    = "stock"
	StepShipping = "shipping"
)

// SagaStep tracks the execution status of a single step in a saga run.
type SagaStep struct {
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	ExecutedAt time.Time `json:"executed_at,omitempty"`
}

// NewSagaStep creates a new saga step in the pending state.
func NewSagaStep(name string) SagaStep {
	return SagaStep{Name: name, Status: SagaStepPending}
}

func (s *SagaStep) Complete() {
	s.Status = SagaStepCompleted
	s.ExecutedAt = time.Now().UTC()
}

func (s *SagaStep) Fail(err string) {
	s.Status = SagaStepFailed
	s.Error = err
	s.ExecutedAt = time.Now().UTC()
}

// Compensate marks the step as rolled back. A compensation error is kept
// next to any forward error.
func (s *SagaStep) Compensate(err string) {
	s.Status = SagaStepCompensated
	if err != "" {
		s.Error = err
	}
	s.ExecutedAt = time.Now().UTC()
}

// SagaRun is the in-memory execution record of one saga.
type SagaRun struct {
	ID            string     `json:"id"`
	OrderID       string     `json:"order_id"`
	State         string     `json:"state"`
	Steps         []SagaStep `json:"steps"`
	FailedStep    string     `json:"failed_step,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	FailureKind   string     `json:"failure_kind,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// NewSagaRun creates an idle run with one pending record per step name.
func NewSagaRun(id, orderID string, stepNames []string) *SagaRun {
	steps := make([]SagaStep, len(stepNames))
	for i, name := range stepNames {
		steps[i] = NewSagaStep(name)
	}
	return &SagaRun{
		ID:        id,
		OrderID:   orderID,
		State:     SagaStateIdle,
		Steps:     steps,
		StartedAt: time.Now().UTC(),
	}
}

// Finish stamps the completion time.
func (r *SagaRun) Finish() {
	now := time.Now().UTC()
	r.FinishedAt = &now
}

// Snapshot returns a copy safe to hand to other goroutines.
func (r *SagaRun) Snapshot() SagaRun {
	cp := *r
	cp.Steps = append([]SagaStep(nil), r.Steps...)
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		cp.FinishedAt = &t
	}
	return cp
}
