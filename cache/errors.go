package cache

import (
	"errors"
	"fmt"
)

// ConsistencyError reports a write that would move an entry into an invalid state.
type ConsistencyError struct {
	Key    Key
	State  State
	Op     Op
	Reason string
}

// Error implements the error interface.
func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("cache consistency error: %s %s (state %s): %s", e.Op, e.Key, e.State, e.Reason)
}

// BackingStoreError wraps a failure returned by the Store.
type BackingStoreError struct {
	Op  Op
	Key Key
	Err error
}

// Error implements the error interface.
func (e *BackingStoreError) Error() string {
	return fmt.Sprintf("backing store %s %s: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the store error.
func (e *BackingStoreError) Unwrap() error { return e.Err }

// FlushError reports the first staged operation that failed during Flush.
// Operations applied before it are not undone by the cache.
type FlushError struct {
	Op      Op
	Key     Key
	Applied int
	Err     error
}

// Error implements the error interface.
func (e *FlushError) Error() string {
	return fmt.Sprintf("cache flush failed at %s %s after %d applied operations: %v", e.Op, e.Key, e.Applied, e.Err)
}

// Unwrap returns the store error.
func (e *FlushError) Unwrap() error { return e.Err }

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// IsConsistencyError reports whether err is or wraps a ConsistencyError.
func IsConsistencyError(err error) bool {
	var target *ConsistencyError
	return errors.As(err, &target)
}

// IsFlushError reports whether err is or wraps a FlushError.
func IsFlushError(err error) bool {
	var target *FlushError
	return errors.As(err, &target)
}

// IsBackingStoreError reports whether err is or wraps a BackingStoreError.
func IsBackingStoreError(err error) bool {
	var target *BackingStoreError
	return errors.As(err, &target)
}

func storeError(op Op, key Key, err error) error {
	if err == nil {
		return nil
	}
	return &BackingStoreError{Op: op, Key: key, Err: err}
}
