package common

// Logger is the debug-only logging contract consumed by the lock backends.
// Nothing written through it is shown to the operator unless verbose output
// is enabled by the concrete logger.
type Logger interface {
	// Info logs an informational message
	Info(format string, args ...interface{})

	// Warning logs a warning message
	Warning(format string, args ...interface{})
}

// NopLogger discards everything. It is used when no logger is supplied.
type NopLogger struct{}

// Info implements Logger.
func (NopLogger) Info(string, ...interface{}) {}

// Warning implements Logger.
func (NopLogger) Warning(string, ...interface{}) {}

// OrNop returns l, or a NopLogger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}
