// Package errors defines the gateway's error taxonomy. Every failure that
// crosses a component boundary is translated into a ServiceError with a
// stable code before it reaches a caller.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a failure kind.
type Code string

const (
	CodeInvalidRequest     Code = "invalid_request"
	CodeUnauthorized       Code = "unauthorized"
	CodeConflict           Code = "conflict"
	CodeNotFound           Code = "not_found"
	CodeLedgerUnavailable  Code = "ledger_unavailable"
	CodeLedgerRejected     Code = "ledger_rejected"
	CodeAmbiguousOutcome   Code = "ambiguous_outcome"
	CodeRateLimited        Code = "rate_limited"
	CodeOracleUnavailable  Code = "oracle_unavailable"
	CodeStorageUnavailable Code = "storage_unavailable"
	CodeInternal           Code = "internal_error"
)

// ServiceError carries a failure kind, a human-readable message, the HTTP
// status it maps to, and optional structured details.
type ServiceError struct {
	Code       Code
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// WithDetails attaches a detail entry and returns the error for chaining.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// GetServiceError unwraps err to a *ServiceError, or nil if there is none.
func GetServiceError(err error) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return nil
}

// Is reports whether err resolves to the given code.
func Is(err error, code Code) bool {
	svcErr := GetServiceError(err)
	return svcErr != nil && svcErr.Code == code
}

func newError(code Code, status int, message string, cause error) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status, Err: cause}
}

// InvalidRequest marks malformed or missing input. Always caller-recoverable.
func InvalidRequest(message string) *ServiceError {
	return newError(CodeInvalidRequest, http.StatusBadRequest, message, nil)
}

// Unauthorized marks a missing or invalid credential.
func Unauthorized(message string) *ServiceError {
	return newError(CodeUnauthorized, http.StatusUnauthorized, message, nil)
}

// Conflict marks a duplicate identity.
func Conflict(message string) *ServiceError {
	return newError(CodeConflict, http.StatusConflict, message, nil)
}

// NotFound marks a missing entity.
func NotFound(message string) *ServiceError {
	return newError(CodeNotFound, http.StatusNotFound, message, nil)
}

// TooManyRequests marks a throttled caller.
func TooManyRequests(message string) *ServiceError {
	return newError(CodeRateLimited, http.StatusTooManyRequests, message, nil)
}

// LedgerUnavailable marks a gateway with no operator identity or ledger
// endpoint configured. This is a configuration fault, not a transient one.
func LedgerUnavailable() *ServiceError {
	return newError(CodeLedgerUnavailable, http.StatusServiceUnavailable,
		"ledger operator is not configured", nil)
}

// LedgerRejected marks an operation the ledger processed and refused. The
// receipt status and transaction id are preserved in the details so the
// caller can reconcile the rejected submission; the gateway never retries.
func LedgerRejected(status, transactionID string) *ServiceError {
	e := newError(CodeLedgerRejected, http.StatusBadGateway,
		"ledger rejected the operation", nil)
	e.WithDetails("receipt_status", status)
	if transactionID != "" {
		e.WithDetails("transaction_id", transactionID)
	}
	return e
}

// Ambiguous marks a submission whose terminal receipt could not be
// confirmed. Distinct from both success and rejection: the caller must
// reconcile via an external query rather than retry.
func Ambiguous(transactionID string, cause error) *ServiceError {
	e := newError(CodeAmbiguousOutcome, http.StatusGatewayTimeout,
		"submission accepted but receipt confirmation failed", cause)
	if transactionID != "" {
		e.WithDetails("transaction_id", transactionID)
	}
	return e
}

// OracleUnavailable marks a failed price fetch. Never fatal; the previous
// cache is retained.
func OracleUnavailable(cause error) *ServiceError {
	return newError(CodeOracleUnavailable, http.StatusServiceUnavailable,
		"price oracle is unavailable", cause)
}

// StorageUnavailable marks an unreachable durable backend. The gateway
// surfaces this instead of silently demoting to the in-memory store.
func StorageUnavailable(cause error) *ServiceError {
	return newError(CodeStorageUnavailable, http.StatusServiceUnavailable,
		"storage backend is unavailable", cause)
}

// Internal marks an unexpected failure.
func Internal(message string, cause error) *ServiceError {
	return newError(CodeInternal, http.StatusInternalServerError, message, cause)
}
