// Package errors provides the structured error taxonomy shared by the subscription and
// dispatch pipelines.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed    ErrorCode = "VALIDATION_FAILED"
	ErrCodeSubscriberConflict  ErrorCode = "SUBSCRIBER_CONFLICT"
	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrCodeStoreFailed         ErrorCode = "STORE_FAILED"
	ErrCodeResourceNotFound    ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeNotificationFailed  ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Field     string                 `json:"field,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError reports a malformed, missing or contradictory request field.
func NewValidationError(field, message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   message,
		Field:     field,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConflictError reports a duplicate subscriber id.
func NewConflictError(userID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSubscriberConflict,
		Message:   "User ID already exists. Please choose a different one.",
		Field:     "user_id",
		Retryable: false,
		Metadata:  map[string]interface{}{"user_id": userID},
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamUnavailableError reports a weather, email or SMS provider failure.
func NewUpstreamUnavailableError(provider string, err error) *StandardError {
	se := &StandardError{
		Code:      ErrCodeUpstreamUnavailable,
		Message:   fmt.Sprintf("%s unavailable", provider),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
	if err != nil {
		se.Details = err.Error()
	}
	return se
}

// NewStoreError wraps a persistence failure for the named operation.
func NewStoreError(operation string, err error) *StandardError {
	se := &StandardError{
		Code:      ErrCodeStoreFailed,
		Message:   fmt.Sprintf("store operation %s failed", operation),
		Retryable: true,
		Metadata:  map[string]interface{}{"operation": operation},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
	if err != nil {
		se.Details = err.Error()
	}
	return se
}

// NewResourceNotFoundError reports a missing lookup target.
func NewResourceNotFoundError(resource, message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResourceNotFound,
		Message:   message,
		Retryable: false,
		Metadata:  map[string]interface{}{"resource": resource},
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError wraps a channel delivery failure.
func NewNotificationSendFailedError(method string, err error) *StandardError {
	se := &StandardError{
		Code:      ErrCodeNotificationFailed,
		Message:   fmt.Sprintf("%s delivery failed", method),
		Retryable: true,
		Metadata:  map[string]interface{}{"method": method},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
	if err != nil {
		se.Details = err.Error()
	}
	return se
}

// ==========================
// 3. Helpers
// ==========================

// AsStandard extracts the first *StandardError in err's chain.
func AsStandard(err error) (*StandardError, bool) {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	se, ok := AsStandard(err)
	return ok && se.Code == code
}

// IsValidation, IsConflict, IsStore and IsNotFound classify errors for callers.
func IsValidation(err error) bool { return HasCode(err, ErrCodeValidationFailed) }
func IsConflict(err error) bool   { return HasCode(err, ErrCodeSubscriberConflict) }
func IsStore(err error) bool      { return HasCode(err, ErrCodeStoreFailed) }
func IsNotFound(err error) bool   { return HasCode(err, ErrCodeResourceNotFound) }

// HTTPStatus maps an error to the status code the HTTP surface returns for it.
func HTTPStatus(err error) int {
	se, ok := AsStandard(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch se.Code {
	case ErrCodeValidationFailed, ErrCodeSubscriberConflict:
		return http.StatusBadRequest
	case ErrCodeResourceNotFound:
		return http.StatusNotFound
	case ErrCodeUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
