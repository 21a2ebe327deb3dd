// Package common provides shared utilities used across all features
package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Pipeline error taxonomy. NotFound and Unsupported are expected outcomes
// for the vast majority of observed transactions and are never logged as
// errors; the remainder are either retryable (decimals, account resolution)
// or terminal (submission, expiry).
var (
	ErrNotFound            = errors.New("not found")
	ErrUnsupported         = errors.New("program or instruction shape not supported")
	ErrDecimalsUnavailable = errors.New("mint decimals unavailable")
	ErrAccountResolution   = errors.New("account resolution failed")
	ErrMalformedInput      = errors.New("malformed transaction input")
	ErrSubmissionRejected  = errors.New("transaction submission rejected")
	ErrExpired             = errors.New("transaction validity window elapsed")
	ErrIndexOutOfRange     = errors.New("account index out of range")
)

// IsExpected reports whether err is a routine miss rather than a failure.
func IsExpected(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnsupported)
}

// HttpError represents an HTTP error with status code and message
type HttpError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s %s", e.StatusCode, e.Code, e.Message)
}

func messageOrDefault(msg string, defaultMsg string) string {
	if msg != "" {
		return msg
	}
	return defaultMsg
}

func HTTPErrorBadRequest(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusBadRequest,
		Code:       "BAD_REQUEST",
		Message:    messageOrDefault(msg, "Bad request"),
	}
}

func HTTPErrorNotFound(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    messageOrDefault(msg, "Not found"),
	}
}

func HTTPErrorInternalError(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    messageOrDefault(msg, "Internal server error"),
	}
}
