package domain

import (
	"errors"
	"fmt"
)

// ErrPendingNotFound is returned when no pending entry exists for a message key.
var ErrPendingNotFound = errors.New("pending entry not found")

// ErrStoreUnavailable marks storage failures. Callers may retry the operation.
var ErrStoreUnavailable = errors.New("pending store unavailable")

// StoreError wraps a storage-layer failure with the operation and key involved.
// It matches ErrStoreUnavailable under errors.Is.
type StoreError struct {
	Op  string
	Key MessageKey
	Err error
}

// NewStoreError wraps err as a retryable storage failure.
func NewStoreError(op string, key MessageKey, err error) *StoreError {
	return &StoreError{Op: op, Key: key, Err: err}
}

func (e *StoreError) Error() string {
	if e.Key.IsZero() {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStoreUnavailable) match any StoreError.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// IsRetryable reports whether err is a storage failure worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
