// Package config provides configuration handling for repolock.
//
// # Configuration Sources
//
// Values are layered with the following precedence:
//
// 1. Command-line flags (highest priority)
// 2. Environment variables (REPOLOCK_*, optionally seeded from a .env file)
// 3. The YAML config file (.repolock/config.yaml by default)
// 4. Default values (lowest priority)
//
// # Environment Variables
//
//	REPOLOCK_LOCKFILE        Lock path (default: .repolock/tmp/lock)
//	REPOLOCK_PROJECT_DIR     Anchor for relative paths (default: git work tree root)
//	REPOLOCK_TMP_DIR         Directory for hashed hardlink claim files
//	REPOLOCK_FRIENDLY        Show a notice while waiting
//	REPOLOCK_HARDLINK_LOCK   Use the hardlink backend
//	REPOLOCK_TIMEOUT         Wait budget, e.g. "3s"
//	REPOLOCK_RETRIES         PID-file lock attempts
//	REPOLOCK_LEASE           Hardlink lease, e.g. "8760h"
//	REPOLOCK_JITTER          Randomise retry delays
//	REPOLOCK_DISABLED        Skip locking entirely
//	REPOLOCK_VERBOSE         Show debug warnings
//	REPOLOCK_DEBUG           Write debug logs to the log file
//	REPOLOCK_LOG_FILE        Log file path
//
// # Config File
//
//	lockfile: .repolock/tmp/lock
//	tmp_dir: /tmp/repolock
//	hardlink_lock: true
//	timeout: 3s
//
// Finalize resolves paths to absolute form, creates the lock and scratch
// directories, validates numeric settings and picks a default log file.
// NewLock then builds the lock handle the configuration describes.
package config
