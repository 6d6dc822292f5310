package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable machine-readable error codes returned in the API error envelope.
const (
	CodeMissingToken     = "missing_token"
	CodeInvalidToken     = "invalid_token"
	CodeForbidden        = "forbidden"
	CodePremiumRequired  = "premium_required"
	CodeNotFound         = "not_found"
	CodeValidationFailed = "validation_failed"
	CodeRateLimited      = "rate_limited"
	CodeInternal         = "internal"
)

// Error carries an HTTP status and a stable code alongside the wrapped cause.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func NotFound(what string) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf("%s not found", what))
}

func Validation(err error) *Error {
	return New(http.StatusBadRequest, CodeValidationFailed, err)
}

func PremiumRequired() *Error {
	return New(http.StatusForbidden, CodePremiumRequired, errors.New("premium content requires an active subscription"))
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, CodeInternal, err)
}

// From extracts an *Error from err, or wraps it as an internal error.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}
