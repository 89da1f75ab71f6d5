package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/shyndaliu/saga/internal/config"
	"github.com/shyndaliu/saga/internal/event"
	handler "github.com/shyndaliu/saga/internal/handler/http"
	"github.com/shyndaliu/saga/internal/ledger"
	"github.com/shyndaliu/saga/internal/saga"
	"github.com/shyndaliu/saga/internal/service"
	"github.com/shyndaliu/saga/internal/shipping"
	"github.com/shyndaliu/saga/pkg/health"
	"github.com/shyndaliu/saga/pkg/httpclient"
	pkgkafka "github.com/shyndaliu/saga/pkg/kafka"
	"github.com/shyndaliu/saga/pkg/middleware"
	"github.com/shyndaliu/saga/pkg/tracing"
)

// App wires together all dependencies and runs the checkout saga service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	producer       *pkgkafka.Producer
	service        *service.CheckoutService
	handler        http.Handler
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracingCfg := cfg.Tracing
	tracingCfg.ServiceName = handler.ServiceName
	tracerShutdown, err := tracing.InitTracer(ctx, tracingCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// In-memory resource stores.
	catalog := ledger.NewCatalog()
	balances := ledger.NewBalances()
	stock := ledger.NewStock()
	if cfg.SeedDemoData {
		if err := ledger.Seed(ctx, ledger.DemoData(), catalog, balances, stock); err != nil {
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
		logger.Info("demo data seeded")
	}

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("ledger", func(ctx context.Context) error {
		_, err := catalog.ListOrders(ctx)
		return err
	})

	// Event publishing: Kafka when enabled, otherwise events are dropped.
	var (
		producer *pkgkafka.Producer
		writer   event.Writer = event.Discard{}
	)
	if cfg.KafkaEnabled {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		writer = producer
		healthHandler.RegisterNonCritical("kafka", producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	eventProducer := event.NewProducer(writer, logger)

	dispatcher := newDispatcher(cfg, logger, healthHandler)

	checkoutService := service.NewCheckoutService(
		service.Stores{
			Catalog:  catalog,
			Balances: balances,
			Stock:    stock,
			Locker:   ledger.NewKeyLocker(),
		},
		dispatcher,
		eventProducer,
		service.Config{
			Pricing:         service.FlatUnitPrice{UnitPrice: cfg.UnitPrice},
			ShippingTimeout: cfg.ShippingTimeout,
			MaxConcurrent:   cfg.SagaMaxConcurrent,
			AcquireTimeout:  cfg.SagaAcquireTimeout,
			RunRetention: saga.Retention{
				MaxAge:  cfg.SagaRunRetention,
				MaxRuns: cfg.SagaRunMaxRetained,
			},
		},
		logger,
	)

	var checkoutLimiter *middleware.RateLimiter
	if cfg.CheckoutRateLimitRPS > 0 {
		checkoutLimiter = middleware.NewRateLimiter(cfg.CheckoutRateLimitRPS, cfg.CheckoutRateLimitBurst, 3*time.Minute)
	}

	// HTTP router.
	router := handler.NewRouter(checkoutService, healthHandler, checkoutLimiter, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		producer:       producer,
		service:        checkoutService,
		handler:        router,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// newDispatcher selects the shipping collaborator. A configured shipping
// service URL is called through a circuit breaker; otherwise dispatch is
// simulated in process.
func newDispatcher(cfg *config.Config, logger *slog.Logger, healthHandler *health.Handler) service.Dispatcher {
	if cfg.ShippingServiceURL == "" {
		logger.Info("using simulated shipping", slog.Duration("latency", cfg.ShippingLatency))
		return shipping.NewSimulated(cfg.ShippingLatency, logger)
	}

	baseClient := httpclient.New(httpclient.DefaultConfig())
	cbCfg := httpclient.CircuitBreakerConfig{
		Name:         "shipping",
		MaxRequests:  cfg.CBMaxRequests,
		Interval:     cfg.CBInterval,
		Timeout:      cfg.CBTimeout,
		FailureRatio: cfg.CBFailureRatio,
		MinRequests:  cfg.CBMinRequests,
	}
	cbClient := httpclient.NewCircuitBreakerClient(baseClient, cbCfg, logger)
	logger.Info("circuit breaker initialized",
		slog.String("name", cbCfg.Name),
		slog.String("shipping_url", cfg.ShippingServiceURL),
		slog.Uint64("max_requests", uint64(cbCfg.MaxRequests)),
		slog.Duration("timeout", cbCfg.Timeout),
	)

	healthHandler.RegisterNonCritical("shipping", func(context.Context) error {
		if cbClient.State() == gobreaker.StateOpen {
			return httpclient.ErrCircuitOpen
		}
		return nil
	})

	return shipping.NewHTTP(cbClient, cfg.ShippingServiceURL, logger)
}

// Handler returns the HTTP handler serving every route.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown stops the HTTP server first so in-flight sagas finish and their
// spans and events are flushed by the later steps.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests, including running sagas.
	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShippingTimeout+5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Close Kafka producer.
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
