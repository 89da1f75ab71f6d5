package shipping

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/shyndaliu/saga/internal/domain"
	"github.com/shyndaliu/saga/pkg/httpclient"
	"github.com/shyndaliu/saga/pkg/logger"
)

// HTTPDoer executes HTTP requests. httpclient.Client and
// httpclient.CircuitBreakerClient both satisfy it.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// HTTP talks to an external shipping service.
type HTTP struct {
	client  HTTPDoer
	baseURL string
	logger  *slog.Logger
}

func NewHTTP(client HTTPDoer, baseURL string, logger *slog.Logger) *HTTP {
	return &HTTP{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

type shipmentRequest struct {
	OrderID     string            `json:"order_id"`
	Destination string            `json:"destination"`
	Items       []domain.LineItem `json:"items"`
}

// Dispatch asks the shipping service to create a shipment for order. A 422
// from the service is reported as a business failure.
func (h *HTTP) Dispatch(ctx context.Context, order *domain.Order) error {
	req, err := httpclient.NewJSONRequest(ctx, http.MethodPost, h.baseURL+"/api/shipments", shipmentRequest{
		OrderID:     order.ID,
		Destination: order.Destination,
		Items:       order.Items,
	})
	if err != nil {
		return err
	}

	resp, err := h.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("dispatch order %s: %w", order.ID, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, "shipping")
	}
	_ = resp.Body.Close()

	logger.WithContext(ctx, h.logger).InfoContext(ctx, "shipment dispatched",
		slog.String("order_id", order.ID),
	)
	return nil
}

// CancelDispatch cancels the shipment of orderID. A shipment the service does
// not know about counts as already cancelled.
func (h *HTTP) CancelDispatch(ctx context.Context, orderID string) error {
	endpoint := fmt.Sprintf("%s/api/shipments/%s/cancel", h.baseURL, url.PathEscape(orderID))
	req, err := httpclient.NewJSONRequest(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := h.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("cancel shipment %s: %w", orderID, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, "shipping")
	}
	_ = resp.Body.Close()

	logger.WithContext(ctx, h.logger).InfoContext(ctx, "shipment cancelled", slog.String("order_id", orderID))
	return nil
}
