package core

import "github.com/pkg/errors"

// Kind tags the errors surfaced to callers.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindStore      Kind = "store"
	KindInternal   Kind = "internal"
)

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

// NewValidationMessage is a shortcut for a ValidationError without field details.
func NewValidationMessage(msg string) error {
	return &ValidationError{Err: errors.New(msg)}
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

// NotFoundError reports a missing resource, eg. "installment not found".
type NotFoundError struct {
	Resource string
}

func NewNotFoundError(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

func (err NotFoundError) Error() string {
	return err.Resource + " not found"
}

// ConflictError reports a lost race or a uniqueness violation.
type ConflictError struct {
	message string
}

func NewConflictError(msg string) *ConflictError {
	return &ConflictError{message: msg}
}

func (err ConflictError) Error() string {
	return err.message
}

// StoreError wraps an underlying data store failure.
type StoreError struct {
	Err error
	msg string
}

func NewStoreError(err error, msg string) error {
	return &StoreError{Err: err, msg: msg}
}

func (err StoreError) Error() string {
	if err.Err == nil {
		return err.msg
	}
	return err.msg + ": " + err.Err.Error()
}

func (err StoreError) Cause() error { return err.Err }

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

// Classify walks the error chain and returns the first error of a known kind along with the kind.
// StoreError is matched before its own cause is inspected.
func Classify(err error) (Kind, error) {
	for e := err; e != nil; {
		switch e.(type) {
		case *ValidationError:
			return KindValidation, e
		case *NotFoundError:
			return KindNotFound, e
		case *ConflictError:
			return KindConflict, e
		case *StoreError:
			return KindStore, e
		}
		c, ok := e.(interface{ Cause() error })
		if !ok {
			break
		}
		e = c.Cause()
	}
	return KindInternal, err
}

func ErrorKind(err error) Kind {
	kind, _ := Classify(err)
	return kind
}

func IsValidation(err error) bool { return ErrorKind(err) == KindValidation }
func IsNotFound(err error) bool   { return ErrorKind(err) == KindNotFound }
func IsConflict(err error) bool   { return ErrorKind(err) == KindConflict }
func IsStore(err error) bool      { return ErrorKind(err) == KindStore }
