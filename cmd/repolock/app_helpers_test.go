package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bashhack/repolock/internal/config"
)

// MockLogger implements the logger.Logger interface for testing
type MockLogger struct {
	Messages    []string
	CloseCalled bool
	CloseErr    error
}

func (m *MockLogger) record(level, format string, args ...interface{}) {
	m.Messages = append(m.Messages, level+": "+fmt.Sprintf(format, args...))
}

func (m *MockLogger) Info(format string, args ...interface{}) { m.record("info", format, args...) }

func (m *MockLogger) Warning(format string, args ...interface{}) { m.record("warning", format, args...) }

func (m *MockLogger) Error(format string, args ...interface{}) { m.record("error", format, args...) }

func (m *MockLogger) InfoToUser(format string, args ...interface{}) {
	m.record("user-info", format, args...)
}

func (m *MockLogger) WarningToUser(format string, args ...interface{}) {
	m.record("user-warning", format, args...)
}

func (m *MockLogger) Success(format string, args ...interface{}) { m.record("success", format, args...) }

func (m *MockLogger) StatusMessage(format string, args ...interface{}) {
	m.record("status", format, args...)
}

func (m *MockLogger) Close() error {
	m.CloseCalled = true
	return m.CloseErr
}

// Contains reports whether any recorded message contains s.
func (m *MockLogger) Contains(s string) bool {
	for _, msg := range m.Messages {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// fakeRunner records the command it was asked to run.
type fakeRunner struct {
	argv   []string
	code   int
	err    error
	during func()
}

func (f *fakeRunner) run(_ context.Context, argv []string, _ io.Reader, _, _ io.Writer) (int, error) {
	f.argv = argv
	if f.during != nil {
		f.during()
	}
	return f.code, f.err
}

// newTestApp returns an App with a mock logger whose lock lives in a temp dir.
func newTestApp(t *testing.T, mutate func(c *config.Config)) (*App, *MockLogger, *strings.Builder) {
	t.Helper()

	cfg := config.New()
	cfg.LockFile = filepath.Join(t.TempDir(), "tmp", "lock")
	cfg.LogFile = filepath.Join(t.TempDir(), "repolock.log")
	if mutate != nil {
		mutate(cfg)
	}

	var out strings.Builder
	mockLogger := &MockLogger{}
	app := NewApp(AppOptions{
		Config: cfg,
		Logger: mockLogger,
		Stdout: &out,
		Stderr: &out,
		Exit:   func(int) {},
	})
	return app, mockLogger, &out
}
