package errors

import (
	"errors"
	"fmt"
)

// FailedToLockMessage is the only text a failed acquisition ever reports.
// It is identical for every lock backend so callers cannot tell which one is active.
const FailedToLockMessage = "cannot perform the command because another repolock process seems to be " +
	"running on this project. If that is not the case, manually remove the lock file " +
	"and try again."

// Sentinel errors that can be used with errors.Is() for error type checking
var (
	// ErrLockContended indicates the lock stayed held by someone else for the whole retry budget
	ErrLockContended = errors.New("lock is held by another process")

	// ErrLockUnavailable indicates the lock could not be attempted at all (unwritable directory, bad path)
	ErrLockUnavailable = errors.New("lock file cannot be created")

	// ErrNotLocked indicates Unlock was called on a handle that does not hold the lock
	ErrNotLocked = errors.New("lock is not held")

	// ErrReleaseFailure indicates the lock resources could not be fully released
	ErrReleaseFailure = errors.New("failed to release lock")

	// ErrInvalidConfiguration indicates an invalid or conflicting user configuration
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// New creates a new error with the given message.
// This is a convenience function that wraps errors.New.
func New(message string) error {
	return errors.New(message)
}

// Errorf creates a new formatted error.
// This is a convenience function that wraps fmt.Errorf.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// Wrap wraps an error with a message for better context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted message for better context.
func Wrapf(err error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether target is in err's chain.
// This is a convenience function that wraps errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience function that wraps errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors, discarding nils.
// This is a convenience function that wraps errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// LockError is returned by every lock backend when acquisition fails.
// Its message is always FailedToLockMessage; LockFile names the contended path
// and Err is a sentinel from this package, never a backend error.
type LockError struct {
	LockFile string
	Err      error
}

// Error implements the error interface with the fixed remediation message.
func (e *LockError) Error() string {
	return FailedToLockMessage
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *LockError) Unwrap() error {
	return e.Err
}

// NewLockError creates a LockError for lockFile. A nil err defaults to ErrLockContended.
func NewLockError(lockFile string, err error) *LockError {
	if err == nil {
		err = ErrLockContended
	}
	return &LockError{
		LockFile: lockFile,
		Err:      err,
	}
}

// IsLockError reports whether err is, or wraps, a *LockError.
func IsLockError(err error) bool {
	var lockErr *LockError
	return errors.As(err, &lockErr)
}

// ConfigError represents an error in the application configuration.
// It includes the parameter name, its value if available, and the underlying error.
type ConfigError struct {
	Parameter string
	Value     interface{}
	Err       error
}

// Error implements the error interface with details about the invalid configuration.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("configuration error for %s = %v: %v", e.Parameter, e.Value, e.Err)
	}
	return fmt.Sprintf("configuration error for %s: %v", e.Parameter, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError with the given parameters.
func NewConfigError(parameter string, value interface{}, err error) *ConfigError {
	return &ConfigError{
		Parameter: parameter,
		Value:     value,
		Err:       err,
	}
}
