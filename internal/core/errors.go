// internal/core/errors.go
package core

import (
	"encoding/json"
	"fmt"
)

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// MarshalJSON renders the cause as text.
func (e *Error) MarshalJSON() ([]byte, error) {
	wire := struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Cause   string `json:"cause,omitempty"`
	}{Code: e.Code, Message: e.Message}
	if e.Cause != nil {
		wire.Cause = e.Cause.Error()
	}
	return json.Marshal(wire)
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Data errors
	ErrNoData           = &Error{Code: "NO_DATA", Message: "no data available"}
	ErrInsufficientData = &Error{Code: "INSUFFICIENT_DATA", Message: "insufficient data for simulation"}
	ErrDataQuality      = &Error{Code: "DATA_QUALITY", Message: "candle series failed data-quality checks"}

	// Collector errors
	ErrCollectorFailed  = &Error{Code: "COLLECTOR_FAILED", Message: "collector failed"}
	ErrProviderNotFound = &Error{Code: "PROVIDER_NOT_FOUND", Message: "data provider not registered"}

	// Run errors
	ErrInvalidParams = &Error{Code: "PARAMS_INVALID", Message: "backtest parameters invalid"}
	ErrRunNotFound   = &Error{Code: "RUN_NOT_FOUND", Message: "backtest run not found"}
	ErrJobNotFound   = &Error{Code: "JOB_NOT_FOUND", Message: "job not found"}
	ErrCompareInput  = &Error{Code: "COMPARE_INVALID", Message: "comparison input invalid"}
	ErrRunFailed     = &Error{Code: "RUN_FAILED", Message: "backtest run failed"}
	ErrJobLimit      = &Error{Code: "JOB_LIMIT", Message: "too many active jobs"}

	// Storage errors
	ErrStorageFailed = &Error{Code: "STORAGE_FAILED", Message: "storage operation failed"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// API errors
	ErrUnauthorized = &Error{Code: "UNAUTHORIZED", Message: "missing or invalid API key"}
	ErrBadRequest   = &Error{Code: "BAD_REQUEST", Message: "malformed request"}
)
