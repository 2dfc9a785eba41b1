package core

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that a node key is absent from the graph. An anchor
// resolving to zero nodes is not an error; callers get an empty result
// instead. ErrNotFound surfaces only from direct key lookups.
var ErrNotFound = errors.New("node not found")

// InvalidRequestError rejects a malformed query before traversal begins:
// missing anchor fields, non-positive depth or page size.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return "invalid request: " + e.Reason
}

// Invalidf builds an InvalidRequestError with a formatted reason.
func Invalidf(format string, args ...any) error {
	return &InvalidRequestError{Reason: fmt.Sprintf(format, args...)}
}

// IsInvalidRequest reports whether err is an InvalidRequestError.
func IsInvalidRequest(err error) bool {
	var ire *InvalidRequestError
	return errors.As(err, &ire)
}

// AdapterError wraps a failure of the backing store: unreachable database,
// malformed rows. It is retryable from the caller's perspective; the
// engine never substitutes default data for it.
type AdapterError struct {
	Op  string
	Err error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("graph store %s: %v", e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// IsAdapterFailure reports whether err is (or wraps) an AdapterError.
func IsAdapterFailure(err error) bool {
	var ae *AdapterError
	return errors.As(err, &ae)
}
