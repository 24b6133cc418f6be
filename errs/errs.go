// Package errs provides structured error types shared across the promopay stack.
package errs

import (
	"errors"
	"strconv"
	"strings"
)

// Code identifies a fatal error category.
type Code string

const (
	// CodeValidation indicates a malformed or out-of-range order or instrument field.
	CodeValidation Code = "validation"
	// CodeDuplicateID indicates a duplicate order or instrument id detected during load.
	CodeDuplicateID Code = "duplicate_id"
	// CodeInfeasible indicates orders left unpaid after all allocation phases.
	CodeInfeasible Code = "infeasible_allocation"
	// CodeTimeout indicates a phase deadline was exceeded.
	CodeTimeout Code = "timeout"
)

// E captures structured error information produced across the promopay stack.
type E struct {
	Op       string
	Code     Code
	Message  string
	OrderIDs []string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope for the operation and error code.
func New(op string, code Code, opts ...Option) *E {
	e := &E{
		Op:       strings.TrimSpace(op),
		Code:     code,
		Message:  "",
		OrderIDs: nil,
		cause:    nil,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithMessage attaches a human-readable message to the error.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) {
		e.Message = trimmed
	}
}

// WithOrderIDs records the order ids affected by the failure.
func WithOrderIDs(ids ...string) Option {
	return func(e *E) {
		for _, id := range ids {
			trimmed := strings.TrimSpace(id)
			if trimmed == "" {
				continue
			}
			e.OrderIDs = append(e.OrderIDs, trimmed)
		}
	}
}

// WithCause sets the underlying cause error.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	var parts []string

	op := strings.TrimSpace(e.Op)
	if op == "" {
		op = "unknown"
	}
	parts = append(parts, "op="+op)

	code := strings.TrimSpace(string(e.Code))
	if code == "" {
		code = "unknown"
	}
	parts = append(parts, "code="+code)

	if e.Message != "" {
		parts = append(parts, "message="+strconv.Quote(e.Message))
	}
	if len(e.OrderIDs) > 0 {
		parts = append(parts, "orders="+strings.Join(e.OrderIDs, ","))
	}
	if e.cause != nil {
		parts = append(parts, "cause="+strconv.Quote(e.cause.Error()))
	}

	return strings.Join(parts, " ")
}

func (e *E) Unwrap() error { return e.cause }

// IsCode reports whether err carries the given error code.
func IsCode(err error, code Code) bool {
	var e *E
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}
