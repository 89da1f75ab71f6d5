package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shyndaliu/saga/internal/domain"
	"github.com/shyndaliu/saga/internal/saga"
	"github.com/shyndaliu/saga/internal/service"
	apperrors "github.com/shyndaliu/saga/pkg/errors"
	"github.com/shyndaliu/saga/pkg/httputil"
	"github.com/shyndaliu/saga/pkg/logger"
)

// CheckoutHandler exposes the saga trigger.
type CheckoutHandler struct {
	service *service.CheckoutService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(svc *service.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: svc,
		logger:  logger,
	}
}

// Checkout handles POST /checkout/{orderId}. The body is always an outcome:
// {"message": ...} on success, {"error": ...} otherwise.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	outcome, err := h.service.ExecuteSaga(r.Context(), orderID)
	status := outcomeStatus(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).ErrorContext(r.Context(), "checkout failed",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}

	httputil.WriteJSON(w, status, outcome)
}

func outcomeStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var stepErr *saga.StepError
	if errors.As(err, &stepErr) {
		if stepErr.Kind == domain.FailureKindBusiness {
			return http.StatusUnprocessableEntity
		}
		return http.StatusInternalServerError
	}
	return apperrors.HTTPStatus(err)
}
