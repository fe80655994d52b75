package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Codes for the failure taxonomy surfaced at the request boundary.
const (
	CodeValidation  = "validation_error"
	CodeNotFound    = "not_found"
	CodeConflict    = "conflict"
	CodeUpstream    = "upstream_unavailable"
	CodeAuthFailure = "auth_failure"
	CodeInternal    = "internal"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Validation(err error) *Error {
	return New(http.StatusBadRequest, CodeValidation, err)
}

func Validationf(format string, args ...interface{}) *Error {
	return Validation(fmt.Errorf(format, args...))
}

func NotFound(err error) *Error {
	return New(http.StatusNotFound, CodeNotFound, err)
}

func Conflict(err error) *Error {
	return New(http.StatusConflict, CodeConflict, err)
}

func Upstream(err error) *Error {
	return New(http.StatusBadGateway, CodeUpstream, err)
}

func AuthFailure(err error) *Error {
	return New(http.StatusUnauthorized, CodeAuthFailure, err)
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, CodeInternal, err)
}

// Status resolves the HTTP status for any error, defaulting to 500 for
// errors that never got classified.
func Status(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}

// Code resolves the taxonomy code for any error.
func Code(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Code != "" {
		return ae.Code
	}
	return CodeInternal
}
