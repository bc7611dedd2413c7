package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalid       = errors.New("invalid")
	ErrConflict      = errors.New("conflict")
	ErrTooMany       = errors.New("too many requests")
	ErrInternal      = errors.New("internal")
	ErrValidation    = errors.New("validation failed")
	ErrRemote        = errors.New("remote call failed")
	ErrPartialDelete = errors.New("partial delete")
	ErrClosed        = errors.New("closed")
	ErrNotEditing    = errors.New("no edit session for target")
	ErrImmutable     = errors.New("resource is immutable")
)

// ValidationError is a local, pre-flight rejection. It never reaches the gateway.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// RemoteError wraps a rejected or unreachable gateway call.
type RemoteError struct {
	Op  string
	Err error
}

func NewRemote(op string, err error) *RemoteError {
	return &RemoteError{Op: op, Err: err}
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}

// PartialDeleteError reports a binary object that was removed while its
// metadata row could not be deleted afterwards.
type PartialDeleteError struct {
	ID          string
	StoragePath string
	Err         error
}

func (e *PartialDeleteError) Error() string {
	return fmt.Sprintf("partial delete id=%s path=%s: %v", e.ID, e.StoragePath, e.Err)
}

func (e *PartialDeleteError) Unwrap() error {
	return e.Err
}

func (e *PartialDeleteError) Is(target error) bool {
	return target == ErrPartialDelete
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func IsRemote(err error) bool {
	return errors.Is(err, ErrRemote)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalid) || errors.Is(err, ErrValidation)
}
