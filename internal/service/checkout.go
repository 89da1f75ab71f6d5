package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/shyndaliu/saga/internal/domain"
	"github.com/shyndaliu/saga/internal/saga"
	apperrors "github.com/shyndaliu/saga/pkg/errors"
	"github.com/shyndaliu/saga/pkg/logger"
)

// Config tunes checkout execution.
type Config struct {
	Pricing         PricingPolicy
	ShippingTimeout time.Duration

	// MaxConcurrent bounds the number of sagas running at once. A request
	// that cannot get a slot within AcquireTimeout is rejected.
	MaxConcurrent  int64
	AcquireTimeout time.Duration

	// RunRetention bounds the execution records kept for inspection.
	RunRetention saga.Retention
}

// DefaultConfig mirrors the environment defaults.
func DefaultConfig() Config {
	return Config{
		Pricing:         FlatUnitPrice{UnitPrice: 10},
		ShippingTimeout: 5 * time.Second,
		MaxConcurrent:   64,
		AcquireTimeout:  2 * time.Second,
		RunRetention:    saga.DefaultRetention(),
	}
}

// CheckoutService runs checkout sagas and the admin operations around them.
type CheckoutService struct {
	stores       Stores
	dispatcher   Dispatcher
	publisher    EventPublisher
	cfg          Config
	logger       *slog.Logger
	orchestrator *saga.Orchestrator
	registry     *saga.Registry
	slots        *semaphore.Weighted
}

// NewCheckoutService creates a checkout service.
func NewCheckoutService(
	stores Stores,
	dispatcher Dispatcher,
	publisher EventPublisher,
	cfg Config,
	logger *slog.Logger,
) *CheckoutService {
	if cfg.Pricing == nil {
		cfg.Pricing = DefaultConfig().Pricing
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultConfig().MaxConcurrent
	}

	registry := saga.NewRegistry(cfg.RunRetention)
	return &CheckoutService{
		stores:       stores,
		dispatcher:   dispatcher,
		publisher:    publisher,
		cfg:          cfg,
		logger:       logger,
		orchestrator: saga.NewOrchestrator(logger, registry),
		registry:     registry,
		slots:        semaphore.NewWeighted(cfg.MaxConcurrent),
	}
}

// newChain builds fresh steps for one execution: balance, then stock, then
// shipping.
func (s *CheckoutService) newChain() *saga.Chain {
	return saga.NewChain(
		NewBalanceStep(s.stores.Balances, s.stores.Locker, s.cfg.Pricing),
		NewStockStep(s.stores.Stock, s.stores.Locker),
		NewShippingStep(s.dispatcher, s.publisher, s.cfg.ShippingTimeout, s.logger),
	)
}

// ExecuteSaga checks out the order with the given ID. The outcome is always
// set. The error is nil on success; otherwise it is a *saga.StepError for a
// failed step, or an AppError when the saga never started (unknown order,
// no capacity).
func (s *CheckoutService) ExecuteSaga(ctx context.Context, orderID string) (domain.Outcome, error) {
	if strings.TrimSpace(orderID) == "" {
		err := apperrors.InvalidInput("order id is required")
		return domain.Failed(err.Message), err
	}

	if err := s.acquire(ctx); err != nil {
		return domain.Failed(apperrors.Reason(err)), err
	}
	defer s.slots.Release(1)

	order, err := s.stores.Catalog.GetOrder(ctx, orderID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.ErrorContext(ctx, "failed to load order",
				slog.String("order_id", orderID),
				slog.String("error", err.Error()),
			)
			return domain.Failed("internal error"), err
		}
		return domain.Failed(apperrors.Reason(err)), err
	}

	sagaID := uuid.NewString()
	ctx = logger.WithSagaID(ctx, sagaID)

	chain := s.newChain()
	run := domain.NewSagaRun(sagaID, order.ID, chain.Names())
	s.registry.Record(run.Snapshot())

	results, err := s.orchestrator.Execute(ctx, run, order, chain)
	snapshot := run.Snapshot()
	log := logger.WithContext(ctx, s.logger)

	if err != nil {
		reason := "internal error"
		var stepErr *saga.StepError
		if errors.As(err, &stepErr) {
			reason = stepErr.Reason()
		}
		s.publishFailure(ctx, log, snapshot, order)
		return domain.Failed(reason), err
	}

	cost, _ := results[domain.StepBalance].(int64)
	if perr := s.publisher.PublishCheckoutCompleted(ctx, snapshot, order, cost); perr != nil {
		log.WarnContext(ctx, "failed to publish checkout.completed event", slog.String("error", perr.Error()))
	}

	log.InfoContext(ctx, "order checked out",
		slog.String("order_id", order.ID),
		slog.String("subject", order.Subject),
		slog.Int64("cost", cost),
	)
	return domain.Completed(), nil
}

func (s *CheckoutService) acquire(ctx context.Context) error {
	wait := s.cfg.AcquireTimeout
	if wait <= 0 {
		if s.slots.TryAcquire(1) {
			return nil
		}
		return apperrors.ServiceUnavailable("checkout capacity exhausted, retry later")
	}

	acquireCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if err := s.slots.Acquire(acquireCtx, 1); err != nil {
		return apperrors.ServiceUnavailable("checkout capacity exhausted, retry later")
	}
	return nil
}

func (s *CheckoutService) publishFailure(ctx context.Context, log *slog.Logger, run domain.SagaRun, order *domain.Order) {
	if err := s.publisher.PublishCheckoutFailed(ctx, run, order); err != nil {
		log.WarnContext(ctx, "failed to publish checkout.failed event", slog.String("error", err.Error()))
	}

	for _, step := range run.Steps {
		if step.Status == domain.SagaStepCompensated {
			if err := s.publisher.PublishCheckoutCompensated(ctx, run, order); err != nil {
				log.WarnContext(ctx, "failed to publish checkout.compensated event", slog.String("error", err.Error()))
			}
			return
		}
	}
}
