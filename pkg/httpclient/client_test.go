package httpclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/shyndaliu/saga/pkg/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewJSONRequest(t *testing.T) {
	req, err := NewJSONRequest(context.Background(), http.MethodPost, "http://shipping/api/shipments", map[string]string{"order_id": "order1"})
	require.NoError(t, err)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"order_id":"order1"}`, string(body))
}

func TestNewJSONRequest_NilBody(t *testing.T) {
	req, err := NewJSONRequest(context.Background(), http.MethodPost, "http://shipping/x", nil)
	require.NoError(t, err)
	assert.Empty(t, req.Header.Get("Content-Type"))
}

func TestClient_Do_RespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req, err := NewJSONRequest(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = New(DefaultConfig()).Do(ctx, req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestCircuitBreaker_TripsOnServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := DefaultCircuitBreakerConfig("test-trip")
	cfg.MinRequests = 2
	cb := NewCircuitBreakerClient(New(DefaultConfig()), cfg, discardLogger())

	for i := 0; i < 2; i++ {
		req, err := NewJSONRequest(context.Background(), http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		_, err = cb.Do(context.Background(), req)
		require.Error(t, err)
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())

	req, err := NewJSONRequest(context.Background(), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	_, err = cb.Do(context.Background(), req)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_ClientErrorsPassThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	cfg := DefaultCircuitBreakerConfig("test-4xx")
	cfg.MinRequests = 1
	cb := NewCircuitBreakerClient(New(DefaultConfig()), cfg, discardLogger())

	req, err := NewJSONRequest(context.Background(), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := cb.Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func newResponse(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
}

func TestParseResponseError(t *testing.T) {
	t.Run("unprocessable is a business failure", func(t *testing.T) {
		err := ParseResponseError(newResponse(http.StatusUnprocessableEntity,
			`{"error":{"code":"INVALID_DESTINATION","message":"Invalid shipping address"}}`), "shipping")
		assert.True(t, apperrors.IsBusinessFailure(err))
		assert.Equal(t, "Invalid shipping address", apperrors.Reason(err))
	})

	t.Run("not found", func(t *testing.T) {
		err := ParseResponseError(newResponse(http.StatusNotFound, `{"error":{"code":"NOT_FOUND","message":"no shipment"}}`), "shipping")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("server error is a system failure", func(t *testing.T) {
		err := ParseResponseError(newResponse(http.StatusBadGateway, "upstream gone"), "shipping")
		require.Error(t, err)
		assert.False(t, apperrors.IsBusinessFailure(err))
		assert.Contains(t, err.Error(), "upstream gone")
	})
}
