// Package errors provides standardized error types shared across the service.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode identifies a stable, machine-readable failure category.
type ErrorCode string

const (
	// Generation pipeline
	ErrCodeUpstreamError   ErrorCode = "GENERATION_UPSTREAM_ERROR"
	ErrCodeEmptyCompletion ErrorCode = "GENERATION_EMPTY_COMPLETION"
	ErrCodeMalformedOutput ErrorCode = "GENERATION_MALFORMED_OUTPUT"

	// Request validation
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// Usage accounting
	ErrCodeUsageLimitExceeded ErrorCode = "USAGE_LIMIT_EXCEEDED"
	ErrCodeUsageCheckFailed   ErrorCode = "USAGE_CHECK_FAILED"

	// Profile and history storage
	ErrCodeProfileNotFound          ErrorCode = "PROFILE_NOT_FOUND"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"

	// Analytics indexing
	ErrCodeIndexingFailed ErrorCode = "INDEXING_FAILED"

	// Research helper
	ErrCodeResearchFailed ErrorCode = "RESEARCH_FAILED"

	// Notifications
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError is the canonical error shape surfaced to callers and logs.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func NewUpstreamError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamError,
		Message:   "Completion provider request failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewEmptyCompletionError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptyCompletion,
		Message:   "Completion provider returned no content",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewMalformedOutputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMalformedOutput,
		Message:   "Completion output did not match the expected contract",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewUsageLimitExceededError(window string, limit int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeUsageLimitExceeded,
		Message:   "Generation quota exhausted",
		Details:   fmt.Sprintf("window: %s, limit: %d", window, limit),
		Retryable: false,
		Metadata:  map[string]interface{}{"window": window, "limit": limit},
		Timestamp: time.Now().UTC(),
	}
}

func NewUsageCheckFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUsageCheckFailed,
		Message:   "Usage counter lookup failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewProfileNotFoundError(profileID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProfileNotFound,
		Message:   "Business profile not found",
		Details:   fmt.Sprintf("profileId: %s", profileID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewDatabaseInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Message:   "Database insert operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewIndexingFailedError(index string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeIndexingFailed,
		Message:   "Analytics document indexing failed",
		Details:   fmt.Sprintf("index: %s, error: %s", index, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewResearchFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeResearchFailed,
		Message:   "Business research request failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
