package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

type ErrorKind int

const (
	KindNotFound ErrorKind = iota + 1 // the object does not exist
	KindConflict                      // the object is already in the requested state
	KindRejected                      // the action is not allowed right now
)

// DomainError is a business rule failure. Packages declare them once as sentinels and compare with errors.Cause.
type DomainError struct {
	Kind    ErrorKind
	Message string
}

func (err DomainError) Error() string { return err.Message }

func NewNotFoundError(msg string) error { return &DomainError{Kind: KindNotFound, Message: msg} }
func NewConflictError(msg string) error { return &DomainError{Kind: KindConflict, Message: msg} }
func NewRejectedError(msg string) error { return &DomainError{Kind: KindRejected, Message: msg} }

// IsNotFound reports whether the cause of err is a KindNotFound DomainError.
func IsNotFound(err error) bool {
	derr, ok := errors.Cause(err).(*DomainError)
	return ok && derr.Kind == KindNotFound
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
