// Package main implements repolock, which runs commands under a project lock.
//
// Tools that share a working directory (build caches, data pipelines,
// repository metadata) corrupt each other's state when two of them run at
// once. repolock takes a lock file before starting a command and releases it
// when the command exits, so concurrent invocations wait for each other or
// fail with a fixed message instead of racing.
//
// # Basic Usage
//
//	repolock run -- make build        # Run a command while holding the lock
//	repolock --timeout 10s run make   # Wait up to 10 seconds for the lock
//	repolock --hardlink-lock run ...  # Use hardlink claims (NFS and similar)
//	repolock status                   # Report whether the lock is free
//	repolock unlock --force           # Remove a lock left behind by a dead holder
//	repolock version                  # Print version information
//
// # Exit Codes
//
// run exits with the command's own exit code. When the lock cannot be taken,
// run and status exit with 75 (EX_TEMPFAIL). Other failures exit with 1.
//
// # Configuration
//
// Settings are read in order, later sources overriding earlier ones:
//
//  1. Built-in defaults
//  2. The YAML file named by --config (default .repolock/config.yaml)
//  3. REPOLOCK_* environment variables, including those loaded from --env-file
//  4. Command-line flags
//
// The options are:
//
//	--lockfile       Lock path (env: REPOLOCK_LOCKFILE, yaml: lockfile)
//	--tmp-dir        Directory for hardlink claim files (env: REPOLOCK_TMP_DIR)
//	--hardlink-lock  Use the hardlink backend (env: REPOLOCK_HARDLINK_LOCK)
//	--friendly       Show a notice while waiting (env: REPOLOCK_FRIENDLY)
//	--timeout        How long to wait for the lock (env: REPOLOCK_TIMEOUT)
//	--retries        PID-file lock attempts (env: REPOLOCK_RETRIES)
//	--lease          Hardlink claim lease (env: REPOLOCK_LEASE)
//	--jitter         Randomise retry delays (env: REPOLOCK_JITTER)
//	--no-lock        Disable locking (env: REPOLOCK_DISABLED)
//	--debug          Write debug logs (env: REPOLOCK_DEBUG)
//	--log-file       Debug log location (env: REPOLOCK_LOG_FILE)
//
// See https://github.com/bashhack/repolock for additional documentation.
package main
