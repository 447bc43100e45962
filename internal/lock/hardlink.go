package lock

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bashhack/repolock/internal/common"
	lockErrors "github.com/bashhack/repolock/internal/errors"
)

const (
	minClaimWait = 10 * time.Millisecond
	maxClaimWait = 500 * time.Millisecond
)

// HardlinkLock is the backend for filesystems whose exclusive create cannot be
// trusted (some NFS setups). It takes the lock by hardlinking a private claim
// file onto the lock path, which is atomic on those filesystems.
//
// A lock left by a dead process on this host, or one whose lease expired, is
// broken by the next contender.
type HardlinkLock struct {
	path     string
	tmpDir   string
	hostname string
	pid      int
	timeout  time.Duration
	lease    time.Duration
	logger   common.Logger
	sleep    func(time.Duration)

	claim  claim
	locked bool

	// finalizeOnce guards release from the finalizer
	finalizeOnce sync.Once
}

// NewHardlinkLock returns an unheld HardlinkLock for path. The claim name is
// fixed here; the claim file itself is only created by Lock.
func NewHardlinkLock(path string, opts Options) *HardlinkLock {
	opts = opts.withDefaults()

	l := &HardlinkLock{
		path:     path,
		tmpDir:   opts.TmpDir,
		hostname: localHostname(),
		pid:      os.Getpid(),
		timeout:  opts.Timeout,
		lease:    opts.Lease,
		logger:   opts.Logger,
		sleep:    time.Sleep,
	}
	l.claim = newClaim(path, l.tmpDir, l.hostname, l.pid)

	runtime.SetFinalizer(l, (*HardlinkLock).finalize)
	return l
}

func (l *HardlinkLock) Path() string { return l.path }

// ClaimFile returns the path of this handle's claim file.
func (l *HardlinkLock) ClaimFile() string { return l.claim.path }

// IsLocked reports whether the lock path is still linked to our claim. It
// turns false if another process broke the lock after our lease expired.
func (l *HardlinkLock) IsLocked() bool {
	return l.locked && l.claim.held()
}

func (l *HardlinkLock) WithLock(fn func() error) error { return WithLock(l, fn) }

// Lock retries the claim until it wins or the timeout passes.
func (l *HardlinkLock) Lock() error {
	if l.IsLocked() {
		return nil
	}
	l.locked = false

	if err := l.claim.write(l.lease); err != nil {
		l.logger.Warning("creating claim file %s: %v", l.claim.path, err)
		return lockErrors.NewLockError(l.path, lockErrors.ErrLockUnavailable)
	}

	deadline := time.Now().Add(l.timeout)
	wait := minClaimWait

	for {
		won, retryNow, err := l.attempt()
		if err != nil {
			l.logger.Warning("linking %s onto %s: %v", l.claim.path, l.path, err)
			l.dropClaim()
			return lockErrors.NewLockError(l.path, lockErrors.ErrLockUnavailable)
		}
		if won {
			l.locked = true
			l.logger.Info("acquired hardlink lock %s with claim %s", l.path, l.claim.path)
			return nil
		}
		if retryNow {
			continue
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			l.logger.Info("timed out after %s waiting for %s", l.timeout, l.path)
			l.dropClaim()
			return lockErrors.NewLockError(l.path, lockErrors.ErrLockContended)
		}

		l.sleep(min(wait, remaining))
		wait = min(wait*2, maxClaimWait)
	}
}

// attempt makes one claim. retryNow is set after a stale lock was broken or
// vanished, when waiting would only waste the budget.
func (l *HardlinkLock) attempt() (won, retryNow bool, err error) {
	linkErr := l.claim.link()
	if l.claim.held() {
		return true, false, nil
	}
	if linkErr != nil && !os.IsExist(linkErr) {
		return false, false, linkErr
	}

	h, err := readHolder(l.path)
	if os.IsNotExist(err) {
		return false, true, nil
	}
	if err != nil {
		l.logger.Info("reading holder of %s: %v", l.path, err)
		return false, false, nil
	}

	if l.isStale(h) {
		l.breakLock(h)
		return false, true, nil
	}

	return false, false, nil
}

// isStale reports whether h may be evicted: its lease ran out, or it was
// taken by a process on this host that no longer exists.
func (l *HardlinkLock) isStale(h holder) bool {
	expiry, err := leaseExpiry(l.path)
	if err == nil && time.Now().After(expiry) {
		l.logger.Warning("lease on %s expired at %s", l.path, expiry.Format(time.RFC3339))
		return true
	}

	if h.hostname == l.hostname && h.pid > 0 && !isProcessRunning(h.pid) {
		l.logger.Warning("holder of %s (pid %d) is no longer running", l.path, h.pid)
		return true
	}

	return false
}

// breakLock removes a stale lock, but only if it still belongs to h.
//
// Another contender may break the same lock and take the path between our
// check and the removal, so the path is renamed aside first and its identity
// checked again there. A fresh lock moved aside by mistake is linked back.
// A third contender linking in while the path is aside still wins over it.
func (l *HardlinkLock) breakLock(h holder) {
	current, err := readHolder(l.path)
	if err != nil || current.identity != h.identity {
		return
	}
	l.evict(h)
}

func (l *HardlinkLock) evict(h holder) {
	aside := l.path + "." + uuid.NewString() + ".broken"
	if err := os.Rename(l.path, aside); err != nil {
		if !os.IsNotExist(err) {
			l.logger.Warning("breaking stale lock %s: %v", l.path, err)
		}
		return
	}

	moved, err := readHolder(aside)
	if err != nil || moved.identity != h.identity {
		if err := os.Link(aside, l.path); err != nil {
			l.logger.Warning("restoring lock %s taken by %s: %v", l.path, moved.identity, err)
		}
		if err := os.Remove(aside); err != nil {
			l.logger.Info("removing %s: %v", aside, err)
		}
		return
	}

	if err := os.Remove(aside); err != nil {
		l.logger.Warning("removing broken lock %s: %v", aside, err)
	}
	if h.claimPath != "" {
		if err := os.Remove(h.claimPath); err != nil && !os.IsNotExist(err) {
			l.logger.Info("removing stale claim %s: %v", h.claimPath, err)
		}
	}
	l.logger.Warning("broke stale lock %s held by %s", l.path, h.identity)
}

// Unlock removes the lock path (if still ours) and the claim file.
func (l *HardlinkLock) Unlock() error {
	if !l.locked {
		return lockErrors.Wrapf(lockErrors.ErrNotLocked, "unlock %s", l.path)
	}

	return l.release()
}

func (l *HardlinkLock) release() error {
	l.locked = false
	stillOurs := l.claim.held()

	var releaseErr error
	if stillOurs {
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			l.logger.Warning("removing lock %s: %v", l.path, err)
			releaseErr = lockErrors.Wrapf(lockErrors.ErrReleaseFailure, "unlock %s", l.path)
		}
	}
	l.dropClaim()

	if !stillOurs {
		l.logger.Warning("lock %s was taken over before release", l.path)
		return lockErrors.Wrapf(lockErrors.ErrNotLocked, "unlock %s: lock was broken by another process", l.path)
	}
	if releaseErr == nil {
		l.logger.Info("released hardlink lock %s", l.path)
	}
	return releaseErr
}

func (l *HardlinkLock) dropClaim() {
	if err := l.claim.remove(); err != nil {
		l.logger.Info("removing claim %s: %v", l.claim.path, err)
	}
}

// Refresh extends the lease of a held lock to now+lease.
func (l *HardlinkLock) Refresh(lease time.Duration) error {
	if !l.IsLocked() {
		return lockErrors.Wrapf(lockErrors.ErrNotLocked, "refresh %s", l.path)
	}
	if lease <= 0 {
		lease = l.lease
	}
	if err := l.claim.touch(lease); err != nil {
		return lockErrors.Wrapf(err, "refresh %s", l.path)
	}
	return nil
}

// Expiration returns the lease expiry of whoever holds the lock path.
func (l *HardlinkLock) Expiration() (time.Time, error) {
	return leaseExpiry(l.path)
}

// finalize is a last-chance release for a handle dropped while still held.
// Explicit Unlock is the real release path; anything going wrong here has no
// caller to report to and is discarded.
func (l *HardlinkLock) finalize() {
	l.finalizeOnce.Do(func() {
		defer func() { _ = recover() }()

		if l.locked {
			_ = l.release()
		}
	})
}
