// Package lock provides cross-process mutual exclusion over a lock path,
// using nothing but the filesystem.
//
// # Core Components
//
// - Handle: the interface every backend satisfies
// - PidLock: default backend, an OS file lock whose content is the holder PID
// - HardlinkLock: backend for filesystems (notably NFS) where exclusive create
// is unreliable but hardlink creation is atomic
// - NoOp: used when locking is disabled; never touches the filesystem
//
// # Usage
//
// The scoped form is preferred because it releases on every exit path:
//
//	h := lock.Make("/path/to/project/.repolock/tmp/lock", lock.Options{})
//	err := h.WithLock(func() error {
//	    // protected work
//	    return nil
//	})
//
// # Errors
//
// Every backend reports a failed acquisition as *errors.LockError whose
// message is errors.FailedToLockMessage. Errors from flock, link or stat are
// logged and never returned, so a caller cannot tell the backends apart.
//
// # Timing
//
// PidLock makes Retries attempts (default 6) spread evenly over Timeout
// (default 3s). HardlinkLock retries with a short doubling wait until Timeout
// passes. Neither runs background goroutines; Lock simply blocks.
//
// # Hardlink Claims
//
// A HardlinkLock writes a claim file named
//
//	<lockpath>|<hostname>|<pid>|<uuid>
//
// next to the lock path, or <tmpdir>/<md5 of that name>.lock when a scratch
// directory is configured, and hardlinks it onto the lock path. The claim's
// modification time carries the lease (default 365 days). A lock whose lease
// has passed, or whose holder was a now-dead process on this host, is broken
// by the next contender.
//
// # Thread Safety
//
// Handles are not designed to be used concurrently by multiple goroutines.
// Two handles over the same path contend with each other, even in one process.
package lock
