// Package failure defines the error kinds a run can fail with.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can branch on it.
type Kind string

const (
	KindUnknown       Kind = "unknown"
	KindTransport     Kind = "transport_failure"
	KindShape         Kind = "shape_violation"
	KindCycleLimit    Kind = "cycle_limit_exceeded"
	KindToolExecution Kind = "tool_execution_error"
	KindInvalidInput  Kind = "invalid_input"
	KindConfiguration Kind = "configuration"
	KindInternal      Kind = "internal"
)

// Error is a structured failure description.
// Err optionally wraps the underlying cause for errors.Is/errors.As.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a failure of the given kind.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap creates a failure of the given kind around err.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Transport reports that the model endpoint could not be reached or answered badly.
func Transport(op string, err error) *Error {
	return Wrap(KindTransport, op, err)
}

// Shape reports that model output did not conform to the requested shape.
func Shape(op, message string, err error) *Error {
	return &Error{Kind: KindShape, Op: op, Message: message, Err: err}
}

// CycleLimit reports that the agent loop ran out of tool-resolution cycles.
func CycleLimit(op string, limit int) *Error {
	return New(KindCycleLimit, op, fmt.Sprintf("exceeded maximum of %d tool cycles", limit))
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Describe returns the kind and a message for display. It never returns an
// empty message for a non-nil error.
func Describe(err error) (Kind, string) {
	if err == nil {
		return "", ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, err.Error()
	}
	return KindUnknown, err.Error()
}
