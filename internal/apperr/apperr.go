// Package apperr carries the request-level error taxonomy: validation,
// forbidden, not-found, upstream and internal, mapped to HTTP status codes
// in exactly one place by the handlers.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindForbidden
	KindNotFound
	KindUpstream
)

type Error struct {
	Kind Kind
	Msg  string
	// UpstreamType names the upstream failure class (e.g. the object
	// store error code) and is surfaced as the "type" JSON field.
	UpstreamType string
	Err          error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Msg {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Upstream wraps a collaborator failure. failureType names the upstream
// error class for the response body; it is never retried automatically.
func Upstream(failureType string, err error) *Error {
	return &Error{Kind: KindUpstream, Msg: err.Error(), UpstreamType: failureType, Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Msg: "internal server error", Err: err}
}

// KindOf extracts the taxonomy kind, defaulting to internal for errors
// raised outside the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
