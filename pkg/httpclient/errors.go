package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/errors"
)

// DownstreamErrorResponse mirrors the error half of the storefront response
// envelope so structured error bodies survive the HTTP hop.
type DownstreamErrorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError reads a non-2xx response body and translates it into an
// AppError, preserving the original code and message when the body matches
// the standard envelope. The body is fully consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	var downstream DownstreamErrorResponse
	if json.Unmarshal(body, &downstream) == nil && downstream.Error != nil {
		return mapDownstreamError(resp.StatusCode, downstream.Error.Code, downstream.Error.Message, serviceName)
	}

	return fmt.Errorf("%s returned status %d: %s", serviceName, resp.StatusCode, string(body))
}

// mapDownstreamError keeps the error semantics across the hop: the returned
// AppError carries the downstream code and maps back to the same status.
func mapDownstreamError(status int, code, message, serviceName string) error {
	sentinel := apperrors.ErrInternal
	switch {
	case status == http.StatusNotFound:
		sentinel = apperrors.ErrNotFound
	case status == http.StatusBadRequest:
		sentinel = apperrors.ErrInvalidInput
	case status == http.StatusConflict:
		sentinel = apperrors.ErrConflict
	case status == http.StatusUnauthorized:
		sentinel = apperrors.ErrUnauthorized
	case status == http.StatusForbidden:
		sentinel = apperrors.ErrForbidden
	case status == http.StatusGone:
		sentinel = apperrors.ErrGone
	case status == http.StatusUnprocessableEntity:
		sentinel = apperrors.ErrInvalidInput
	case status >= 500:
		sentinel = apperrors.ErrServiceUnavail
		status = http.StatusServiceUnavailable
	}

	if code == "PAYMENT_FAILED" {
		sentinel = apperrors.ErrPaymentFailed
	}

	return &apperrors.AppError{
		Code:    code,
		Message: fmt.Sprintf("%s: %s", serviceName, message),
		Status:  status,
		Err:     sentinel,
	}
}

// IsClientError reports whether the status is a 4xx.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
