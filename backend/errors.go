package backend

import (
	"errors"
	"fmt"
	"strings"
)

// Code classifies a backend failure.
type Code string

const (
	CodeNotAuthenticated Code = "not_authenticated"
	CodeNotFound         Code = "not_found"
	CodePermissionDenied Code = "permission_denied"
	CodeConflict         Code = "conflict"
	CodeUnavailable      Code = "unavailable"
	CodeUnknown          Code = "unknown"
)

// Error is a structured backend failure. Detail carries the provider's
// constraint or column information when a conflict names one.
type Error struct {
	Code    Code
	Message string
	Detail  string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("backend: %s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("backend: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an *Error with the given code and message.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError attaches a code and message to an underlying cause.
func WrapError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the Code from err, or CodeUnknown when err carries
// none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

func IsNotAuthenticated(err error) bool { return CodeOf(err) == CodeNotAuthenticated }
func IsNotFound(err error) bool         { return CodeOf(err) == CodeNotFound }
func IsPermissionDenied(err error) bool { return CodeOf(err) == CodePermissionDenied }
func IsConflict(err error) bool         { return CodeOf(err) == CodeConflict }

// Friendly translates recognized failure shapes into user-facing
// sentences. A duplicate like and a duplicate username each get a
// specific message; any other conflict gets a generic one; everything
// else returns the error's own message.
func Friendly(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}

	if e.Code == CodeConflict {
		detail := strings.ToLower(e.Detail + " " + e.Message)
		switch {
		case strings.Contains(detail, "post_likes"):
			return "You already liked this post"
		case strings.Contains(detail, "username"):
			return "Username already taken"
		default:
			return "That already exists"
		}
	}

	switch e.Code {
	case CodeNotAuthenticated:
		return "Must be logged in"
	case CodePermissionDenied:
		return "You don't have permission to do that"
	default:
		return e.Message
	}
}
