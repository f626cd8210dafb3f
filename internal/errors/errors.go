// Package errors defines the error taxonomy of a mileage run.
//
// Validation and RateLimit are fatal for a run. ExternalService is raised by
// the calendar and distance adapters; the pipeline contains it per event.
package errors

import (
	"errors"
	"fmt"
)

// base holds the fields shared by every error type in this package.
type base struct {
	message string
	err     error
}

func (b base) error() string {
	if b.err == nil {
		return b.message
	}
	return fmt.Sprintf("%s: %v", b.message, b.err)
}

// Unwrap exposes the underlying error to support errors.Is / errors.As.
func (b base) Unwrap() error {
	return b.err
}

// Validation is returned for a malformed date range or threshold.
type Validation struct {
	base
}

func (v Validation) Error() string {
	return v.error()
}

// NewValidation creates a Validation error.
func NewValidation(message string, err ...error) Validation {
	return Validation{base: base{message: message, err: errors.Join(err...)}}
}

// RateLimit is returned when the event listing API throttles the caller.
type RateLimit struct {
	base
}

func (r RateLimit) Error() string {
	return r.error()
}

// NewRateLimit creates a RateLimit error.
func NewRateLimit(message string, err ...error) RateLimit {
	return RateLimit{base: base{message: message, err: errors.Join(err...)}}
}

// ExternalService is a transport, auth or protocol failure of a remote API.
type ExternalService struct {
	base
}

func (e ExternalService) Error() string {
	return e.error()
}

// NewExternalService creates an ExternalService error.
func NewExternalService(message string, err ...error) ExternalService {
	return ExternalService{base: base{message: message, err: errors.Join(err...)}}
}

// Unexpected represents an error that fits no other category.
type Unexpected struct {
	base
}

func (u Unexpected) Error() string {
	return u.error()
}

// NewUnexpected creates an Unexpected error.
func NewUnexpected(message string, err ...error) Unexpected {
	return Unexpected{base: base{message: message, err: errors.Join(err...)}}
}

// IsValidation reports whether err wraps a Validation error.
func IsValidation(err error) bool {
	var v Validation
	return errors.As(err, &v)
}

// IsRateLimit reports whether err wraps a RateLimit error.
func IsRateLimit(err error) bool {
	var r RateLimit
	return errors.As(err, &r)
}

// IsExternalService reports whether err wraps an ExternalService error.
func IsExternalService(err error) bool {
	var e ExternalService
	return errors.As(err, &e)
}
