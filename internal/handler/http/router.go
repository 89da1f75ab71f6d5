package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shyndaliu/saga/internal/service"
	"github.com/shyndaliu/saga/pkg/health"
	"github.com/shyndaliu/saga/pkg/middleware"
)

// ServiceName labels HTTP metrics and spans.
const ServiceName = "checkout-saga"

// NewRouter creates a chi router with all checkout saga routes registered.
func NewRouter(
	checkoutService *service.CheckoutService,
	healthHandler *health.Handler,
	checkoutLimiter *middleware.RateLimiter,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.PrometheusMetrics(ServiceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check and metrics endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	checkoutHandler := NewCheckoutHandler(checkoutService, logger)
	adminHandler := NewAdminHandler(checkoutService, logger)

	// Saga trigger, kept at the root for existing clients. A nil limiter
	// leaves it unthrottled.
	limit := middleware.RateLimit(checkoutLimiter, logger)
	r.With(limit).Post("/checkout/{orderId}", checkoutHandler.Checkout)

	r.Route("/api/v1", func(r chi.Router) {
		r.With(limit).Post("/checkout/{orderId}", checkoutHandler.Checkout)

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", adminHandler.CreateOrder)
			r.Get("/", adminHandler.ListOrders)
			r.Get("/{id}", adminHandler.GetOrder)
			r.Get("/{id}/sagas", adminHandler.ListOrderSagas)
		})

		r.Get("/balances", adminHandler.ListBalances)
		r.Get("/balances/{subject}", adminHandler.GetBalance)
		r.Put("/balances/{subject}", adminHandler.SetBalance)

		r.Get("/stock", adminHandler.ListStock)
		r.Put("/stock/{itemId}", adminHandler.SetStock)

		r.Get("/sagas/{id}", adminHandler.GetSaga)
	})

	return r
}
