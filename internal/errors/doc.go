// Package errors provides error handling utilities for repolock.
//
// Beyond the usual wrapping helpers it defines the single error kind that
// crosses the lock boundary: LockError. Every backend reports a failed
// acquisition as a *LockError whose message is FailedToLockMessage, so
// switching backends never changes what a caller sees.
//
// # Usage
//
//	if err := h.Lock(); err != nil {
//	    if errors.IsLockError(err) {
//	        // another process holds the lock
//	    }
//	    return err
//	}
//
// # Error Wrapping
//
// The package uses standard error wrapping conventions, allowing errors to be
// unwrapped and inspected using errors.Is and errors.As. LockError unwraps to
// one of this package's sentinels (usually ErrLockContended), never to an
// error produced by the underlying lock primitive.
package errors
