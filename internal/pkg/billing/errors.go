package billing

import (
	"errors"
	"fmt"
)

// ErrorKind classifies billing failures so the HTTP layer can map them to
// status codes instead of guessing from error strings.
type ErrorKind string

const (
	ErrKindValidation ErrorKind = "validation"
	ErrKindNotFound   ErrorKind = "not_found"
	ErrKindUpstream   ErrorKind = "upstream"
)

// Error is a billing failure tagged with its kind and the operation that
// produced it.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validationError(op, msg string) error {
	return &Error{Kind: ErrKindValidation, Op: op, Err: errors.New(msg)}
}

func notFoundError(op, msg string) error {
	return &Error{Kind: ErrKindNotFound, Op: op, Err: errors.New(msg)}
}

func upstreamError(op string, err error) error {
	return &Error{Kind: ErrKindUpstream, Op: op, Err: err}
}

// KindOf returns the error kind, defaulting to upstream for untagged errors.
func KindOf(err error) ErrorKind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return ErrKindUpstream
}
