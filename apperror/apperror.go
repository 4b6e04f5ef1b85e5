// Package apperror defines the error taxonomy shared by every handler and the
// single place where errors are turned into the API's failure envelope.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType is the closed set of failure categories surfaced to clients.
type ErrorType int

const (
	// Internal is anything not classified below; details are never sent to clients.
	Internal ErrorType = iota
	// NotFound is a missing resource by id.
	NotFound
	// ValidationFailed is a constraint violation, usually with one message per field.
	ValidationFailed
	// DuplicateKey is a unique-constraint violation.
	DuplicateKey
	// Unauthorized is a missing, invalid or expired credential.
	Unauthorized
	// Forbidden is a valid identity without permission for the action.
	Forbidden
	// BadRequest is malformed input such as an unknown query operator.
	BadRequest
	// UpstreamFailure is an email, geocoding or file-store dependency error.
	UpstreamFailure
)

func (t ErrorType) String() string {
	switch t {
	case NotFound:
		return "not_found"
	case ValidationFailed:
		return "validation_failed"
	case DuplicateKey:
		return "duplicate_key"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case BadRequest:
		return "bad_request"
	case UpstreamFailure:
		return "upstream_failure"
	default:
		return "internal"
	}
}

// AppError carries a client-safe message and the wrapped cause for logs.
type AppError struct {
	Type     ErrorType
	Message  string
	Messages []string
	Err      error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code appropriate for the error type
func (e *AppError) StatusCode() int {
	switch e.Type {
	case NotFound:
		return http.StatusNotFound
	case ValidationFailed, DuplicateKey, BadRequest:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case UpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Body is the value placed under "error" in the response envelope: the list of
// messages when there are several, the single message otherwise.
func (e *AppError) Body() any {
	if len(e.Messages) > 0 {
		return e.Messages
	}
	return e.Message
}

func New(t ErrorType, message string, err error) *AppError {
	return &AppError{Type: t, Message: message, Err: err}
}

func NewNotFound(message string) *AppError {
	return New(NotFound, message, nil)
}

func NewValidation(messages []string, err error) *AppError {
	msg := "Validation failed"
	if len(messages) == 1 {
		msg = messages[0]
	}
	return &AppError{Type: ValidationFailed, Message: msg, Messages: messages, Err: err}
}

func NewDuplicateKey(message string, err error) *AppError {
	return New(DuplicateKey, message, err)
}

func NewUnauthorized(message string) *AppError {
	return New(Unauthorized, message, nil)
}

func NewForbidden(message string) *AppError {
	return New(Forbidden, message, nil)
}

func NewBadRequest(message string) *AppError {
	return New(BadRequest, message, nil)
}

func NewUpstream(message string, err error) *AppError {
	return New(UpstreamFailure, message, err)
}

func NewInternal(message string, err error) *AppError {
	return New(Internal, message, err)
}

// TypeOf reports the category of err, Internal when err is not an AppError.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return Internal
}

func IsNotFound(err error) bool {
	return err != nil && TypeOf(err) == NotFound
}

func IsUnauthorized(err error) bool {
	return err != nil && TypeOf(err) == Unauthorized
}

func IsForbidden(err error) bool {
	return err != nil && TypeOf(err) == Forbidden
}

func IsDuplicateKey(err error) bool {
	return err != nil && TypeOf(err) == DuplicateKey
}
