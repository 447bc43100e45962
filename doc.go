// Package repolock serialises commands that work on the same project.
//
// Two tools writing the same cache, index or metadata directory at once will
// corrupt it. repolock puts a lock file in the project and holds it for as
// long as a command runs; a second invocation waits a few seconds for it and
// then fails with a fixed message instead of racing the first.
//
// # Quick Start
//
//	# Run a command while holding the project lock
//	repolock run -- make build
//
//	# See whether someone else holds it
//	repolock status
//
// # Lock Backends
//
//   - PID file (default): an exclusive flock on the lock file, which records
//     the holder's PID. The operating system drops the lock when the holder
//     exits, however it exits.
//   - Hardlink (--hardlink-lock): each contender writes a private claim file
//     and hardlinks it onto the lock path. Linking is atomic on filesystems,
//     such as some NFS setups, where exclusive create is not. Locks left by
//     dead processes on the same host, or whose lease has expired, are broken
//     by the next contender.
//   - None (--no-lock): locking is skipped altogether.
//
// Every backend fails with the same error text, so callers never need to know
// which one is configured.
//
// # Module Structure
//
//   - cmd/repolock: Command-line interface
//   - internal/lock: Lock backends and the WithLock helper
//   - internal/config: Defaults, YAML file, environment and flag layering
//   - internal/project: Project root discovery for relative lock paths
//   - internal/progress: The notice shown while waiting for a busy lock
//   - internal/logger: Debug log file and user-facing messages
//   - internal/errors: Sentinel errors, LockError and ConfigError
//
// See https://github.com/bashhack/repolock for additional documentation.
package repolock
