package service

import (
	"errors"
	"fmt"
)

// Error kinds returned by the services.  Handlers map them to status codes;
// none of them carries detail that tells a caller which check failed.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotActivated       = errors.New("password not set, check invitation email")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidInput       = errors.New("invalid input")
	ErrStoreFailure       = errors.New("store failure")
)

// ErrAccessDenied rejects a refresh attempt.  ErrForbidden rejects an
// authenticated caller whose role is not allowed.  Both are kinds of
// ErrUnauthorized.
var (
	ErrAccessDenied = fmt.Errorf("%w: access denied", ErrUnauthorized)
	ErrForbidden    = fmt.Errorf("%w: forbidden", ErrUnauthorized)
)

// StoreError wraps a failure of a backing store (session store, database)
// with the operation that hit it.  It matches ErrStoreFailure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreFailure }

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// invalid builds an ErrInvalidInput carrying a field-level message.
func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

func conflict(msg string) error {
	return fmt.Errorf("%w: %s", ErrConflict, msg)
}
