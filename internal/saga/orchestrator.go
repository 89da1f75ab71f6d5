package saga

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/qmuntal/stateless"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shyndaliu/saga/internal/domain"
	apperrors "github.com/shyndaliu/saga/pkg/errors"
	"github.com/shyndaliu/saga/pkg/logger"
	"github.com/shyndaliu/saga/pkg/tracing"
)

const (
	triggerStart       = "start"
	triggerSucceed     = "succeed"
	triggerFail        = "fail"
	triggerCompensated = "compensated"
)

// noStep is the current-step pointer before any step has started.
const noStep = -1

// Recorder receives a snapshot of the run after every state change.
type Recorder interface {
	Record(run domain.SagaRun)
}

type nopRecorder struct{}

func (nopRecorder) Record(domain.SagaRun) {}

// StepError is returned by Execute when a forward step fails. Kind is
// domain.FailureKindBusiness or domain.FailureKindSystem.
type StepError struct {
	Step string
	Kind string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("saga step %s (%s): %v", e.Step, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Reason is the user-facing reason for the failure. System failures never
// expose their cause.
func (e *StepError) Reason() string {
	if e.Kind == domain.FailureKindBusiness {
		return apperrors.Reason(e.Err)
	}
	return "internal error"
}

// Orchestrator runs chains. It is stateless between executions and safe for
// concurrent use; all per-execution state lives in the SagaRun and the
// chain's freshly built steps.
type Orchestrator struct {
	logger   *slog.Logger
	tracer   trace.Tracer
	recorder Recorder
}

// NewOrchestrator creates an orchestrator. recorder may be nil.
func NewOrchestrator(logger *slog.Logger, recorder Recorder) *Orchestrator {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Orchestrator{
		logger:   logger,
		tracer:   tracing.Tracer("github.com/shyndaliu/saga/internal/saga"),
		recorder: recorder,
	}
}

func newStateMachine() *stateless.StateMachine {
	sm := stateless.NewStateMachine(domain.SagaStateIdle)
	sm.Configure(domain.SagaStateIdle).
		Permit(triggerStart, domain.SagaStateRunning)
	sm.Configure(domain.SagaStateRunning).
		Permit(triggerSucceed, domain.SagaStateCompleted).
		Permit(triggerFail, domain.SagaStateCompensating)
	sm.Configure(domain.SagaStateCompensating).
		Permit(triggerCompensated, domain.SagaStateFailed)
	return sm
}

// Execute drives chain forward for order, recording progress in run. It
// returns the per-step results keyed by step name. On the first failing step
// it compensates from that step back to the first one and returns a
// *StepError; compensation failures are logged and never stop the unwind.
func (o *Orchestrator) Execute(ctx context.Context, run *domain.SagaRun, order *domain.Order, chain *Chain) (map[string]any, error) {
	if len(run.Steps) != chain.Len() {
		return nil, fmt.Errorf("saga %s: run tracks %d steps, chain has %d", run.ID, len(run.Steps), chain.Len())
	}

	sagaInFlight.Inc()
	defer sagaInFlight.Dec()

	ctx, span := o.tracer.Start(ctx, "saga.execute", trace.WithAttributes(
		attribute.String("saga.id", run.ID),
		attribute.String("order.id", order.ID),
	))
	defer span.End()

	log := logger.WithContext(ctx, o.logger).With(slog.String("order_id", order.ID))
	sm := newStateMachine()

	if err := o.fire(ctx, sm, run, triggerStart); err != nil {
		return nil, err
	}

	results := make(map[string]any, chain.Len())
	current := noStep

	for i := 0; i < chain.Len(); i++ {
		current = i
		step := chain.Step(i)

		value, err := o.runStep(ctx, step, order)
		if err == nil {
			results[step.Name()] = value
			run.Steps[i].Complete()
			o.recorder.Record(run.Snapshot())
			continue
		}

		stepErr := o.classify(step.Name(), err)
		run.Steps[i].Fail(err.Error())
		run.FailedStep = step.Name()
		run.FailureKind = stepErr.Kind
		run.FailureReason = stepErr.Reason()
		sagaStepFailuresTotal.WithLabelValues(step.Name(), stepErr.Kind).Inc()

		if stepErr.Kind == domain.FailureKindBusiness {
			log.WarnContext(ctx, "saga step rejected",
				slog.String("step", step.Name()),
				slog.String("failure_kind", stepErr.Kind),
				slog.String("reason", run.FailureReason),
			)
		} else {
			log.ErrorContext(ctx, "saga step failed",
				slog.String("step", step.Name()),
				slog.String("failure_kind", stepErr.Kind),
				slog.String("error", err.Error()),
			)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, stepErr.Kind+" failure in "+step.Name())

		if ferr := o.fire(ctx, sm, run, triggerFail); ferr != nil {
			return results, ferr
		}
		o.compensate(ctx, log, run, order, chain, current)
		if ferr := o.fire(ctx, sm, run, triggerCompensated); ferr != nil {
			return results, ferr
		}

		run.Finish()
		o.recorder.Record(run.Snapshot())
		sagaExecutionsTotal.WithLabelValues(domain.SagaStateFailed).Inc()
		return results, stepErr
	}

	if err := o.fire(ctx, sm, run, triggerSucceed); err != nil {
		return results, err
	}
	run.Finish()
	o.recorder.Record(run.Snapshot())
	sagaExecutionsTotal.WithLabelValues(domain.SagaStateCompleted).Inc()

	log.InfoContext(ctx, "saga completed", slog.Int("steps", chain.Len()))
	return results, nil
}

// runStep invokes Do in its own span and turns a panic into a system error.
func (o *Orchestrator) runStep(ctx context.Context, step Step, order *domain.Order) (value any, err error) {
	ctx, span := o.tracer.Start(ctx, "saga.step."+step.Name())
	defer span.End()

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in step %s: %v", step.Name(), rec)
		}
		sagaStepDuration.WithLabelValues(step.Name()).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	return step.Do(ctx, order)
}

func (o *Orchestrator) classify(name string, err error) *StepError {
	kind := domain.FailureKindSystem
	if apperrors.IsBusinessFailure(err) {
		kind = domain.FailureKindBusiness
	}
	return &StepError{Step: name, Kind: kind, Err: err}
}

// compensate walks predecessor links backwards starting at from. The walk
// runs on a context detached from the caller's cancellation so that a timed
// out or abandoned request still unwinds every applied step.
func (o *Orchestrator) compensate(ctx context.Context, log *slog.Logger, run *domain.SagaRun, order *domain.Order, chain *Chain, from int) {
	if from == noStep {
		return
	}

	ctx = context.WithoutCancel(ctx)
	ctx, span := o.tracer.Start(ctx, "saga.compensate", trace.WithAttributes(
		attribute.Int("saga.compensate.from", from),
	))
	defer span.End()

	i, step := from, chain.Step(from)
	for {
		err := o.compensateStep(ctx, step, order)
		if err != nil {
			sagaCompensationsTotal.WithLabelValues(step.Name(), "error").Inc()
			log.ErrorContext(ctx, "compensation failed",
				slog.String("step", step.Name()),
				slog.String("error", err.Error()),
			)
			span.RecordError(err)
		} else {
			sagaCompensationsTotal.WithLabelValues(step.Name(), "ok").Inc()
			log.InfoContext(ctx, "step compensated", slog.String("step", step.Name()))
		}

		if run.Steps[i].Status == domain.SagaStepCompleted {
			msg := ""
			if err != nil {
				msg = "compensation: " + err.Error()
			}
			run.Steps[i].Compensate(msg)
		}
		o.recorder.Record(run.Snapshot())

		prev, ok := chain.Prev(i)
		if !ok {
			return
		}
		i, step = i-1, prev
	}
}

func (o *Orchestrator) compensateStep(ctx context.Context, step Step, order *domain.Order) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic compensating %s: %v", step.Name(), rec)
		}
	}()
	return step.Compensate(ctx, order)
}

func (o *Orchestrator) fire(ctx context.Context, sm *stateless.StateMachine, run *domain.SagaRun, trigger string) error {
	if err := sm.FireCtx(context.WithoutCancel(ctx), trigger); err != nil {
		return fmt.Errorf("saga %s: fire %s: %w", run.ID, trigger, err)
	}
	run.State = sm.MustState().(string)
	o.recorder.Record(run.Snapshot())
	return nil
}
