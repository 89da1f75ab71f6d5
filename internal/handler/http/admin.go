package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shyndaliu/saga/internal/domain"
	"github.com/shyndaliu/saga/internal/service"
	"github.com/shyndaliu/saga/pkg/httputil"
	"github.com/shyndaliu/saga/pkg/validator"
)

const maxBodyBytes = 1 << 20

// AdminHandler serves order, ledger and saga inspection endpoints.
type AdminHandler struct {
	service *service.CheckoutService
	logger  *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(svc *service.CheckoutService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateOrderRequest is the JSON request body for creating an order.
type CreateOrderRequest struct {
	ID          string            `json:"id" validate:"omitempty,max=128"`
	Subject     string            `json:"subject" validate:"required,max=128"`
	Items       []LineItemRequest `json:"items" validate:"required,min=1,dive"`
	Destination string            `json:"destination" validate:"max=512"`
}

// LineItemRequest is a single line of CreateOrderRequest.
type LineItemRequest struct {
	ItemID   string `json:"item_id" validate:"required,max=128"`
	Quantity int64  `json:"quantity" validate:"gt=0"`
}

// SetBalanceRequest is the JSON request body for overwriting a balance.
type SetBalanceRequest struct {
	Amount *int64 `json:"amount" validate:"required,gte=0"`
}

// SetStockRequest is the JSON request body for overwriting a stock level.
type SetStockRequest struct {
	Quantity *int64 `json:"quantity" validate:"required,gte=0"`
}

// --- Handlers ---

// CreateOrder handles POST /api/v1/orders
func (h *AdminHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req CreateOrderRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	order := &domain.Order{
		ID:          req.ID,
		Subject:     req.Subject,
		Destination: req.Destination,
		Items:       make([]domain.LineItem, len(req.Items)),
	}
	for i, item := range req.Items {
		order.Items[i] = domain.LineItem{ItemID: item.ItemID, Quantity: item.Quantity}
	}

	created, err := h.service.CreateOrder(r.Context(), order)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: created})
}

// ListOrders handles GET /api/v1/orders
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: orders})
}

// GetOrder handles GET /api/v1/orders/{id}
func (h *AdminHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// ListOrderSagas handles GET /api/v1/orders/{id}/sagas
func (h *AdminHandler) ListOrderSagas(w http.ResponseWriter, r *http.Request) {
	runs := h.service.ListSagaRuns(r.Context(), chi.URLParam(r, "id"))
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: runs})
}

// ListBalances handles GET /api/v1/balances
func (h *AdminHandler) ListBalances(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.service.ListBalances(r.Context())})
}

// GetBalance handles GET /api/v1/balances/{subject}
func (h *AdminHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.service.GetBalance(r.Context(), chi.URLParam(r, "subject"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: balance})
}

// SetBalance handles PUT /api/v1/balances/{subject}
func (h *AdminHandler) SetBalance(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req SetBalanceRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	balance, err := h.service.SetBalance(r.Context(), chi.URLParam(r, "subject"), *req.Amount)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: balance})
}

// ListStock handles GET /api/v1/stock
func (h *AdminHandler) ListStock(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.service.ListStock(r.Context())})
}

// SetStock handles PUT /api/v1/stock/{itemId}
func (h *AdminHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req SetStockRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	level, err := h.service.SetStock(r.Context(), chi.URLParam(r, "itemId"), *req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: level})
}

// GetSaga handles GET /api/v1/sagas/{id}
func (h *AdminHandler) GetSaga(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.GetSagaRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: run})
}
