package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	lockErrors "github.com/bashhack/repolock/internal/errors"
	"github.com/bashhack/repolock/internal/lock"
)

func TestLockMessages(t *testing.T) {
	const lockFile = "/repo/.repolock/tmp/lock"

	hardlinkHolder := lock.HolderInfo{
		Backend:   "hardlink",
		Hostname:  "build-01",
		PID:       4242,
		ClaimFile: "/scratch/0123456789abcdef0123456789abcdef.lock",
		Expires:   time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	tests := map[string]struct {
		verbose    bool
		emit       func(l *DefaultLogger)
		wantStdout string
		wantStderr string
		wantLogged string
	}{
		"HeldStatus": {
			emit: func(l *DefaultLogger) {
				l.WarningToUser("%s is held (%s lock)", lockFile, "hardlink")
			},
			wantStdout: "⚠️",
			wantLogged: lockFile + " is held (hardlink lock)",
		},
		"HolderDetailIsNotLogged": {
			emit: func(l *DefaultLogger) {
				l.StatusMessage("Holder: %s", hardlinkHolder)
			},
			wantStdout: "Holder: pid 4242 on build-01, claim /scratch/0123456789abcdef0123456789abcdef.lock, lease until 2030-01-02T03:04:05Z",
		},
		"ForcedUnlockOfPidFile": {
			emit: func(l *DefaultLogger) {
				l.InfoToUser("Removing lock held by %s", lock.HolderInfo{Backend: "pidfile", PID: 77})
			},
			wantStdout: "ℹ️",
			wantLogged: "Removing lock held by pid 77",
		},
		"FreeStatus": {
			emit: func(l *DefaultLogger) {
				l.Success("%s is free (%s lock)", lockFile, "pidfile")
			},
			wantStdout: "✅",
			wantLogged: lockFile + " is free (pidfile lock)",
		},
		"StaleBreakIsQuiet": {
			emit: func(l *DefaultLogger) {
				l.Warning("broke stale lock %s held by %s", lockFile, "pid 9 on build-02")
			},
			wantLogged: "broke stale lock " + lockFile,
		},
		"StaleBreakWhenVerbose": {
			verbose: true,
			emit: func(l *DefaultLogger) {
				l.Warning("broke stale lock %s held by %s", lockFile, "pid 9 on build-02")
			},
			wantStdout: "⚠️",
			wantLogged: "broke stale lock " + lockFile,
		},
		"CleanupFailure": {
			emit: func(l *DefaultLogger) {
				l.Error("Failed to release lock during cleanup: %v", lockErrors.ErrReleaseFailure)
			},
			wantStderr: "Failed to release lock during cleanup: failed to release lock",
			wantLogged: "Failed to release lock during cleanup",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			logFile := filepath.Join(t.TempDir(), "repolock.log")
			stdout := &bytes.Buffer{}
			stderr := &bytes.Buffer{}

			l := NewWithOutput(true, logFile, test.verbose, stdout, stderr)
			test.emit(l)
			if err := l.Close(); err != nil {
				t.Fatalf("Failed to close logger: %v", err)
			}

			if test.wantStdout == "" && stdout.Len() > 0 {
				t.Errorf("Expected nothing on stdout, got: %s", stdout.String())
			}
			if !strings.Contains(stdout.String(), test.wantStdout) {
				t.Errorf("Expected stdout to contain %q, got: %s", test.wantStdout, stdout.String())
			}
			if !strings.Contains(stderr.String(), test.wantStderr) {
				t.Errorf("Expected stderr to contain %q, got: %s", test.wantStderr, stderr.String())
			}

			content, err := os.ReadFile(logFile)
			if err != nil {
				t.Fatalf("Failed to read log file: %v", err)
			}
			if test.wantLogged != "" && !strings.Contains(string(content), test.wantLogged) {
				t.Errorf("Expected log file to contain %q, got: %s", test.wantLogged, content)
			}
			if test.wantLogged == "" && strings.Contains(string(content), "Holder:") {
				t.Errorf("Expected holder detail to stay out of the log file, got: %s", content)
			}
		})
	}
}

func TestLockMessages_DebugDisabled(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "repolock.log")
	stdout := &bytes.Buffer{}

	l := New(false, logFile, true)
	l.SetStdout(stdout)
	l.SetStderr(&bytes.Buffer{})

	l.Info("acquired pid lock %s on attempt %d", "/repo/lock", 1)
	l.Success("%s is free (%s lock)", "/repo/lock", "pidfile")

	if strings.Contains(stdout.String(), "acquired pid lock") {
		t.Errorf("Backend debug output leaked to stdout: %s", stdout.String())
	}
	if !strings.Contains(stdout.String(), "/repo/lock is free (pidfile lock)") {
		t.Errorf("Expected status on stdout with debug disabled, got: %s", stdout.String())
	}
	if _, err := os.Stat(logFile); err == nil {
		t.Error("Expected no log file to be created when debug is disabled")
	}
}
