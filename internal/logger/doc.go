// Package logger provides logging facilities for repolock.
//
// DefaultLogger writes debug messages through log/slog into an optional log
// file and prints operator-facing messages to stdout/stderr with a short,
// colored prefix.
//
// # Message Types
//
//   - Info, Warning: debug channel, file only (Warning also printed when verbose)
//   - Error: written to the file and always printed to stderr
//   - InfoToUser, WarningToUser, Success: printed and written to the file
//   - StatusMessage: printed only
//
// # Usage
//
//	log := logger.New(cfg.Debug, cfg.LogFile, cfg.Verbose)
//	defer log.Close()
//
//	h := lock.Make(cfg.LockFile, lock.Options{Logger: log})
//
// Lock backends accept the narrower common.Logger, which DefaultLogger
// satisfies; they only use the debug channel.
//
// # Thread Safety
//
// DefaultLogger is safe for concurrent use by multiple goroutines.
package logger
