// Package domain contains domain errors and model types used throughout the gateway.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	ErrMalformedPayload  = errors.New("malformed control-event payload")
	ErrNotIdentified     = errors.New("payload sent before identify")
	ErrAlreadyIdentified = errors.New("identify already received on this connection")
	ErrTokenMalformed    = errors.New("token is malformed")
	ErrTokenInvalid      = errors.New("token verification failed")
	ErrUnsupportedFrame  = errors.New("unsupported frame type")
	ErrUserNotFound      = errors.New("user not found")
	ErrGuildNotFound     = errors.New("guild not found")
	ErrDatabase          = errors.New("database error")
	ErrDatabaseMissing   = errors.New("database pool missing")
	ErrBusMissing        = errors.New("bus connection missing")
	ErrBusHangup         = errors.New("bus hung up")
	ErrRegistryMissing   = errors.New("connection registry missing")
	ErrIDOverflow        = errors.New("numeric id conversion overflow")
	ErrQueueFull         = errors.New("subscriber queue full")
	ErrMuxStopped        = errors.New("subscription multiplexer is not running")
)

// StoreError wraps a failure from the membership store with the operation
// that produced it. It unwraps to ErrDatabase so callers can map it to a
// close code without inspecting the operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return ErrDatabase
}

// NewStoreError creates a new StoreError.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// BusError wraps a failure from the pub/sub bus.
type BusError struct {
	Op  string
	Err error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("bus %s: %v", e.Op, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

// NewBusError creates a new BusError.
func NewBusError(op string, err error) *BusError {
	return &BusError{Op: op, Err: err}
}
