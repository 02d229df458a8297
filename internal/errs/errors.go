// Package errs defines the error taxonomy shared by the fusion and
// decision engines. Every failure an engine surfaces belongs to exactly
// one category, so callers can branch without string matching.
package errs

import (
	"errors"
	"fmt"
)

// Category identifies the class of failure.
type Category string

const (
	// CategoryInvalidInput marks malformed or insufficient requests.
	// Always a client error; never retried automatically.
	CategoryInvalidInput Category = "INVALID_INPUT"

	// CategoryNotFound marks references to entities that do not exist.
	CategoryNotFound Category = "NOT_FOUND"

	// CategoryConflict marks state already transitioned by a concurrent
	// or prior operation (double fusion, re-adjudication). The caller may
	// re-fetch and decide; the engine never silently merges.
	CategoryConflict Category = "CONFLICT"

	// CategoryStore marks persistence-layer failures, propagated without
	// interpretation. Retrying is the caller's call; the store's
	// transactional guarantees mean no partial state was left behind.
	CategoryStore Category = "STORE"
)

type classified struct {
	category Category
	msg      string
	cause    error
}

func (e *classified) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *classified) Unwrap() error { return e.cause }

// InvalidInput creates an INVALID_INPUT error.
func InvalidInput(format string, args ...any) error {
	return &classified{category: CategoryInvalidInput, msg: fmt.Sprintf(format, args...)}
}

// NotFound creates a NOT_FOUND error.
func NotFound(format string, args ...any) error {
	return &classified{category: CategoryNotFound, msg: fmt.Sprintf(format, args...)}
}

// Conflict creates a CONFLICT error.
func Conflict(format string, args ...any) error {
	return &classified{category: CategoryConflict, msg: fmt.Sprintf(format, args...)}
}

// Store wraps a persistence failure. Returns nil if cause is nil.
func Store(cause error, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	return &classified{category: CategoryStore, msg: fmt.Sprintf(format, args...), cause: cause}
}

// CategoryOf returns the category of err, or "" for unclassified errors.
func CategoryOf(err error) Category {
	var c *classified
	if errors.As(err, &c) {
		return c.category
	}
	return ""
}

// IsInvalidInput reports whether err is an INVALID_INPUT error.
func IsInvalidInput(err error) bool { return CategoryOf(err) == CategoryInvalidInput }

// IsNotFound reports whether err is a NOT_FOUND error.
func IsNotFound(err error) bool { return CategoryOf(err) == CategoryNotFound }

// IsConflict reports whether err is a CONFLICT error.
func IsConflict(err error) bool { return CategoryOf(err) == CategoryConflict }

// IsStore reports whether err is a STORE error.
func IsStore(err error) bool { return CategoryOf(err) == CategoryStore }
