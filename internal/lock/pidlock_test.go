package lock

import (
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lockErrors "github.com/bashhack/repolock/internal/errors"
)

type countingNotifier struct {
	starts, stops int
}

func (n *countingNotifier) Start() { n.starts++ }
func (n *countingNotifier) Stop()  { n.stops++ }

func TestNewPidLock_Defaults(t *testing.T) {
	path := lockPath(t)
	l := NewPidLock(path, Options{})

	assert.Equal(t, path, l.Path())
	assert.Equal(t, DefaultTimeout, l.timeout)
	assert.Equal(t, DefaultRetries, l.retries)
	assert.Equal(t, os.Getpid(), l.pid)
	assert.False(t, l.IsLocked())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "constructing a lock must not touch the filesystem")
}

func TestPidLock_LockUnlock(t *testing.T) {
	path := lockPath(t)
	l := NewPidLock(path, Options{})

	start := time.Now()
	require.NoError(t, l.Lock())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.True(t, l.IsLocked())

	pid, err := ReadHolderPid(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, l.Lock(), "locking a held handle is a no-op")

	require.NoError(t, l.Unlock())
	assert.False(t, l.IsLocked())

	// Reusable after release.
	require.NoError(t, l.Lock())
	require.NoError(t, l.Unlock())
}

func TestPidLock_UnlockWhenNotLocked(t *testing.T) {
	l := NewPidLock(lockPath(t), Options{})

	err := l.Unlock()
	require.Error(t, err)
	assert.True(t, lockErrors.Is(err, lockErrors.ErrNotLocked))
}

func TestPidLock_RetryPolicy(t *testing.T) {
	path := lockPath(t)

	holder := NewPidLock(path, Options{})
	require.NoError(t, holder.Lock())
	defer func() { _ = holder.Unlock() }()

	var delays []time.Duration
	notifier := &countingNotifier{}
	contender := NewPidLock(path, Options{Notifier: notifier})
	contender.sleep = func(d time.Duration) { delays = append(delays, d) }

	err := contender.Lock()
	require.Error(t, err)

	var lockErr *lockErrors.LockError
	require.ErrorAs(t, err, &lockErr)
	assert.Equal(t, path, lockErr.LockFile)
	assert.True(t, lockErrors.Is(err, lockErrors.ErrLockContended))

	require.Len(t, delays, DefaultRetries-1, "no sleep after the final attempt")
	for _, d := range delays {
		assert.Equal(t, DefaultTimeout/DefaultRetries, d)
	}

	assert.Equal(t, 1, notifier.starts)
	assert.Equal(t, 1, notifier.stops)
	assert.False(t, contender.IsLocked())
}

func TestPidLock_ContentionTimesOutNearCeiling(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping timing test in short mode")
	}

	path := lockPath(t)
	holder := NewPidLock(path, Options{})
	require.NoError(t, holder.Lock())
	defer func() { _ = holder.Unlock() }()

	contender := NewPidLock(path, Options{})

	start := time.Now()
	err := contender.Lock()
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, lockErrors.FailedToLockMessage, err.Error())

	delay := DefaultTimeout / DefaultRetries
	assert.GreaterOrEqual(t, elapsed, time.Duration(DefaultRetries-1)*delay)
	assert.Less(t, elapsed, DefaultTimeout+delay)
}

func TestPidLock_AcquiresAfterHolderReleases(t *testing.T) {
	path := lockPath(t)

	holder := NewPidLock(path, Options{})
	require.NoError(t, holder.Lock())

	contender := NewPidLock(path, Options{Timeout: 2 * time.Second, Retries: 20})

	released := make(chan struct{})
	go func() {
		time.Sleep(200 * time.Millisecond)
		_ = holder.Unlock()
		close(released)
	}()

	require.NoError(t, contender.Lock())
	<-released
	assert.True(t, contender.IsLocked())
	require.NoError(t, contender.Unlock())
}

func TestPidLock_Jitter(t *testing.T) {
	l := NewPidLock(lockPath(t), Options{Jitter: true})
	delay := 400 * time.Millisecond

	for i := 0; i < 50; i++ {
		d := l.backoff(delay)
		assert.GreaterOrEqual(t, d, 300*time.Millisecond)
		assert.LessOrEqual(t, d, 500*time.Millisecond)
	}

	l.jitter = false
	assert.Equal(t, delay, l.backoff(delay))
}

func TestPidLock_UnwritableDirectory(t *testing.T) {
	l := NewPidLock("/nonexistent-dir-for-repolock/lock", Options{Timeout: 100 * time.Millisecond})
	l.sleep = func(time.Duration) {}

	err := l.Lock()
	require.Error(t, err)
	assert.Equal(t, lockErrors.FailedToLockMessage, err.Error())
	assert.True(t, lockErrors.Is(err, lockErrors.ErrLockUnavailable))
}

func TestPidLock_CrossProcess(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping multi-process test in short mode")
	}

	path := lockPath(t)
	holder := startHolder(t, "pidfile", path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(holder.cmd.Process.Pid), strings.TrimSpace(string(data)))

	contender := NewPidLock(path, Options{Timeout: 300 * time.Millisecond})
	err = contender.Lock()
	require.Error(t, err)
	assert.True(t, lockErrors.IsLockError(err))

	holder.release(t)

	require.NoError(t, contender.Lock())
	require.NoError(t, contender.Unlock())
}

func TestPidLock_CrashedHolderReleases(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping multi-process test in short mode")
	}

	path := lockPath(t)
	holder := startHolder(t, "pidfile", path)
	holder.kill()

	contender := NewPidLock(path, Options{Timeout: 500 * time.Millisecond})
	require.NoError(t, contender.Lock())
	require.NoError(t, contender.Unlock())
}

func TestReadHolderPid(t *testing.T) {
	path := lockPath(t)

	require.NoError(t, os.WriteFile(path, []byte("4242\n"), 0o644))
	pid, err := ReadHolderPid(path)
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)

	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0o644))
	_, err = ReadHolderPid(path)
	assert.Error(t, err)

	_, err = ReadHolderPid(path + ".missing")
	assert.Error(t, err)
}
