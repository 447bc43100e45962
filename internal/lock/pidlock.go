package lock

import (
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/bashhack/repolock/internal/common"
	lockErrors "github.com/bashhack/repolock/internal/errors"
	"github.com/bashhack/repolock/internal/progress"
)

// PidLock is the default backend: an exclusive flock(2)-style lock on the
// lock path whose content is the holder's PID. The OS drops the lock when the
// holder exits, so a crashed process never leaves it held.
type PidLock struct {
	path     string
	pid      int
	timeout  time.Duration
	retries  int
	jitter   bool
	logger   common.Logger
	notifier progress.Notifier
	sleep    func(time.Duration)

	fl     *flock.Flock
	locked bool
}

// NewPidLock returns an unheld PidLock for path.
func NewPidLock(path string, opts Options) *PidLock {
	opts = opts.withDefaults()

	return &PidLock{
		path:     path,
		pid:      os.Getpid(),
		timeout:  opts.Timeout,
		retries:  opts.Retries,
		jitter:   opts.Jitter,
		logger:   opts.Logger,
		notifier: opts.Notifier,
		sleep:    time.Sleep,
		fl:       flock.New(path, flock.SetFlag(os.O_CREATE|os.O_RDWR), flock.SetPermissions(0o644)),
	}
}

func (l *PidLock) Path() string { return l.path }

func (l *PidLock) IsLocked() bool { return l.locked }

func (l *PidLock) WithLock(fn func() error) error { return WithLock(l, fn) }

// Lock makes up to l.retries attempts, sleeping timeout/retries between them.
func (l *PidLock) Lock() error {
	if l.locked {
		return nil
	}

	l.notifier.Start()
	defer l.notifier.Stop()

	delay := l.timeout / time.Duration(l.retries)

	for attempt := 1; attempt <= l.retries; attempt++ {
		ok, err := l.fl.TryLock()
		if err != nil {
			l.logger.Warning("flock on %s failed: %v", l.path, err)
			return lockErrors.NewLockError(l.path, lockErrors.ErrLockUnavailable)
		}

		if ok {
			l.locked = true
			l.writePid()
			l.logger.Info("acquired pid lock %s on attempt %d", l.path, attempt)
			return nil
		}

		l.logger.Info("pid lock %s is busy (attempt %d/%d)", l.path, attempt, l.retries)
		if attempt < l.retries {
			l.sleep(l.backoff(delay))
		}
	}

	return lockErrors.NewLockError(l.path, lockErrors.ErrLockContended)
}

// Unlock releases the flock. The lock file itself stays on disk: removing it
// would let a waiter that already opened it lock an orphaned inode.
func (l *PidLock) Unlock() error {
	if !l.locked {
		return lockErrors.Wrapf(lockErrors.ErrNotLocked, "unlock %s", l.path)
	}

	l.locked = false
	if err := l.fl.Unlock(); err != nil {
		l.logger.Warning("releasing pid lock %s: %v", l.path, err)
		return lockErrors.Wrapf(lockErrors.ErrReleaseFailure, "unlock %s", l.path)
	}

	l.logger.Info("released pid lock %s", l.path)
	return nil
}

// writePid records the holder for operators. Locking does not depend on it.
func (l *PidLock) writePid() {
	if err := os.WriteFile(l.path, []byte(strconv.Itoa(l.pid)+"\n"), 0o644); err != nil {
		l.logger.Warning("could not write pid to %s: %v", l.path, err)
	}
}

func (l *PidLock) backoff(delay time.Duration) time.Duration {
	if !l.jitter || delay <= 0 {
		return delay
	}

	jitterRange := float64(delay) * 0.25
	jitter := (rand.Float64() * 2 * jitterRange) - jitterRange //nolint:gosec // Non-crypto jitter is fine
	return delay + time.Duration(jitter)
}

// ReadHolderPid returns the PID recorded in a PidLock lock file.
func ReadHolderPid(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, lockErrors.Wrap(err, "failed to read lock file")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, lockErrors.Wrap(err, "invalid PID in lock file")
	}

	return pid, nil
}
