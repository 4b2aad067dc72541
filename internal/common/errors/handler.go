// internal/common/errors/handler.go
package errors

import (
	"encoding/json"
	"net/http"
	"time"
)

// ErrorHandler normalizes errors and writes them as JSON HTTP responses.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// WriteError normalizes err to a StandardError, logs it, and writes the
// JSON error body with the status code mapped from the error code.
func (h *ErrorHandler) WriteError(w http.ResponseWriter, requestID string, err error) {
	stdErr := h.normalizeError(err)
	status := HTTPStatus(stdErr.Code)

	h.logger.Error("request failed", map[string]interface{}{
		"requestId": requestID,
		"errorCode": string(stdErr.Code),
		"details":   stdErr.Details,
		"retryable": stdErr.Retryable,
		"status":    status,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:     stdErr,
		RequestID: requestID,
	})
}

type errorBody struct {
	Error     *StandardError `json:"error"`
	RequestID string         `json:"requestId,omitempty"`
}

func (h *ErrorHandler) normalizeError(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// HTTPStatus maps an error code to the HTTP status surfaced to the caller.
// Upstream completion failures map to 502 so clients can tell provider
// outages apart from our own faults.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed:
		return http.StatusBadRequest
	case ErrCodeProfileNotFound:
		return http.StatusNotFound
	case ErrCodeUsageLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeUpstreamError, ErrCodeEmptyCompletion, ErrCodeMalformedOutput:
		return http.StatusBadGateway
	case ErrCodeUsageCheckFailed, ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed, ErrCodeDatabaseInsertFailed,
		ErrCodeIndexingFailed, ErrCodeResearchFailed,
		ErrCodeNotificationSendFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
