package gfs

import (
	"errors"
	"fmt"
)

// ErrorCode classifies store failures.
type ErrorCode int

const (
	// ErrNotFound indicates the path holds no entry.
	ErrNotFound ErrorCode = iota + 1

	// ErrAlreadyExists indicates the destination is occupied and the store
	// refuses to overwrite it.
	ErrAlreadyExists

	// ErrInvalidArgument indicates an unusable path or argument, such as
	// inserting at the root.
	ErrInvalidArgument

	// ErrIOError indicates a failure in the backing store.
	ErrIOError

	// ErrReadOnly indicates a mutation against a read-only filesystem.
	ErrReadOnly

	// ErrNotSupported indicates an operation the store does not implement.
	ErrNotSupported

	// ErrClosed indicates the store was closed.
	ErrClosed
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "NotFound"
	case ErrAlreadyExists:
		return "AlreadyExists"
	case ErrInvalidArgument:
		return "InvalidArgument"
	case ErrIOError:
		return "IOError"
	case ErrReadOnly:
		return "ReadOnly"
	case ErrNotSupported:
		return "NotSupported"
	case ErrClosed:
		return "Closed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// StoreError is the error type returned by gfs stores and derived operations.
type StoreError struct {
	Code    ErrorCode
	Message string
	Path    string

	// Err is the underlying cause, if any.
	Err error
}

func (e *StoreError) Error() string {
	msg := e.Code.String() + ": " + e.Message
	if e.Path != "" {
		msg += " (path: " + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewNotFoundError reports a missing entry at path.
func NewNotFoundError(path string) *StoreError {
	return &StoreError{Code: ErrNotFound, Message: "entry not found", Path: path}
}

// NewAlreadyExistsError reports an occupied destination.
func NewAlreadyExistsError(path string) *StoreError {
	return &StoreError{Code: ErrAlreadyExists, Message: "entry already exists", Path: path}
}

// NewInvalidArgumentError reports a rejected argument.
func NewInvalidArgumentError(path, message string) *StoreError {
	return &StoreError{Code: ErrInvalidArgument, Message: message, Path: path}
}

// NewIOError wraps a backing store failure.
func NewIOError(path, op string, err error) *StoreError {
	return &StoreError{Code: ErrIOError, Message: op + " failed", Path: path, Err: err}
}

// NewReadOnlyError reports a rejected mutation.
func NewReadOnlyError(path string) *StoreError {
	return &StoreError{Code: ErrReadOnly, Message: "filesystem is read-only", Path: path}
}

// NewNotSupportedError reports an unimplemented operation.
func NewNotSupportedError(op string) *StoreError {
	return &StoreError{Code: ErrNotSupported, Message: op + " not supported"}
}

// NewClosedError reports use of a closed store.
func NewClosedError() *StoreError {
	return &StoreError{Code: ErrClosed, Message: "store is closed"}
}

// NewRootEntryError reports an attempt to place an entry at the root.
func NewRootEntryError() *StoreError {
	return NewInvalidArgumentError(separator, "the root cannot hold an entry")
}

// CodeOf returns the code of the first StoreError in err's chain, or 0.
func CodeOf(err error) ErrorCode {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// IsNotFoundError reports whether err is a NotFound store error.
func IsNotFoundError(err error) bool { return CodeOf(err) == ErrNotFound }

// IsAlreadyExistsError reports whether err is an AlreadyExists store error.
func IsAlreadyExistsError(err error) bool { return CodeOf(err) == ErrAlreadyExists }

// IsInvalidArgumentError reports whether err is an InvalidArgument store error.
func IsInvalidArgumentError(err error) bool { return CodeOf(err) == ErrInvalidArgument }

// IsReadOnlyError reports whether err is a ReadOnly store error.
func IsReadOnlyError(err error) bool { return CodeOf(err) == ErrReadOnly }

// IsClosedError reports whether err is a Closed store error.
func IsClosedError(err error) bool { return CodeOf(err) == ErrClosed }

// IsNotSupportedError reports whether err is a NotSupported store error.
func IsNotSupportedError(err error) bool { return CodeOf(err) == ErrNotSupported }
