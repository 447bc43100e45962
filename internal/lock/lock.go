package lock

import (
	"io"
	"time"

	"github.com/bashhack/repolock/internal/common"
	"github.com/bashhack/repolock/internal/progress"
)

const (
	// DefaultTimeout bounds how long Lock waits before giving up.
	DefaultTimeout = 3 * time.Second

	// DefaultRetries is how many attempts PidLock spreads DefaultTimeout over.
	DefaultRetries = 6

	// DefaultLease is the lifetime written into a hardlink claim. It is long
	// enough that a held lock is only ever released explicitly.
	DefaultLease = 365 * 24 * time.Hour
)

// Handle is a lock over a single lock path.
//
// A Handle is not safe for concurrent use; callers that share one between
// goroutines must serialise access themselves. Two handles over the same path
// contend with each other even inside one process.
type Handle interface {
	// Path returns the lock path this handle protects.
	Path() string

	// Lock blocks until the lock is held or the retry budget is spent.
	// Failure is always a *errors.LockError. Locking a held handle is a no-op.
	Lock() error

	// Unlock releases the lock. It reports errors.ErrNotLocked when the
	// handle does not hold it.
	Unlock() error

	// IsLocked reports whether this handle holds the lock.
	IsLocked() bool

	// WithLock runs fn while holding the lock and always releases it after.
	WithLock(fn func() error) error
}

// Options configures the handle returned by Make. Zero values select the
// package defaults.
type Options struct {
	// TmpDir, when set, is where HardlinkLock puts its claim files, under a
	// hashed name short enough for restrictive path limits.
	TmpDir string

	// Friendly shows a notice on Output while PidLock waits.
	Friendly bool

	// Hardlink selects HardlinkLock instead of PidLock.
	Hardlink bool

	Timeout time.Duration
	Retries int
	Lease   time.Duration

	// Jitter spreads PidLock retry delays by ±25%.
	Jitter bool

	Logger common.Logger

	// Notifier overrides the notice selected by Friendly.
	Notifier progress.Notifier

	// Output receives the friendly notice. Defaults to stderr.
	Output io.Writer
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Retries <= 0 {
		o.Retries = DefaultRetries
	}
	if o.Lease <= 0 {
		o.Lease = DefaultLease
	}
	o.Logger = common.OrNop(o.Logger)
	if o.Notifier == nil {
		o.Notifier = progress.New(o.Friendly, o.Output)
	}
	return o
}

// Make returns a HardlinkLock when opts.Hardlink is set and a PidLock otherwise.
func Make(path string, opts Options) Handle {
	if opts.Hardlink {
		return NewHardlinkLock(path, opts)
	}
	return NewPidLock(path, opts)
}

// WithLock locks h, runs fn and unlocks h on every exit path, including a
// panic in fn. An error from fn takes precedence over one from Unlock.
func WithLock(h Handle, fn func() error) (err error) {
	if err := h.Lock(); err != nil {
		return err
	}

	defer func() {
		if unlockErr := h.Unlock(); unlockErr != nil && err == nil {
			err = unlockErr
		}
	}()

	return fn()
}
