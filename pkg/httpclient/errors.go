package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/shyndaliu/saga/pkg/errors"
)

// DownstreamErrorResponse mirrors the error envelope written by
// pkg/httputil, so collaborators built on it can be decoded faithfully.
type DownstreamErrorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError consumes and closes the body of a non-2xx response and
// converts it into an error. A 422 from a collaborator is a business
// rejection and keeps its message; other statuses become system errors
// unless they map onto a known AppError kind.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", serviceName, resp.StatusCode, err)
	}

	code, message := "", string(body)
	var downstream DownstreamErrorResponse
	if json.Unmarshal(body, &downstream) == nil && downstream.Error != nil {
		code, message = downstream.Error.Code, downstream.Error.Message
	}

	switch resp.StatusCode {
	case http.StatusUnprocessableEntity:
		return &apperrors.AppError{
			Code:    code,
			Message: message,
			Status:  http.StatusUnprocessableEntity,
			Err:     apperrors.ErrBusinessFailure,
		}
	case http.StatusNotFound:
		return apperrors.NotFound(serviceName, message)
	case http.StatusBadRequest:
		return apperrors.InvalidInput(fmt.Sprintf("%s: %s", serviceName, message))
	case http.StatusConflict:
		return apperrors.Conflict(fmt.Sprintf("%s: %s", serviceName, message))
	default:
		return fmt.Errorf("%s returned status %d (%s): %s", serviceName, resp.StatusCode, code, message)
	}
}
