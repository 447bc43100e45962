package lock

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	t.Run("Hardlink", func(t *testing.T) {
		path := lockPath(t)
		l := NewHardlinkLock(path, Options{Lease: time.Hour})
		require.NoError(t, l.Lock())
		defer func() { _ = l.Unlock() }()

		info, err := Inspect(path)
		require.NoError(t, err)
		assert.Equal(t, "hardlink", info.Backend)
		assert.Equal(t, os.Getpid(), info.PID)
		assert.Equal(t, localHostname(), info.Hostname)
		assert.Equal(t, l.ClaimFile(), info.ClaimFile)
		assert.WithinDuration(t, time.Now().Add(time.Hour), info.Expires, time.Minute)
		assert.Contains(t, info.String(), l.ClaimFile())
	})

	t.Run("PidFile", func(t *testing.T) {
		path := lockPath(t)
		l := NewPidLock(path, Options{})
		require.NoError(t, l.Lock())
		defer func() { _ = l.Unlock() }()

		info, err := Inspect(path)
		require.NoError(t, err)
		assert.Equal(t, "pidfile", info.Backend)
		assert.Equal(t, os.Getpid(), info.PID)
		assert.Equal(t, fmt.Sprintf("pid %d", os.Getpid()), info.String())
	})

	t.Run("EmptyPidFile", func(t *testing.T) {
		path := lockPath(t)
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		info, err := Inspect(path)
		require.NoError(t, err)
		assert.Equal(t, 0, info.PID)
	})

	t.Run("Garbage", func(t *testing.T) {
		path := lockPath(t)
		require.NoError(t, os.WriteFile(path, []byte("hello\n"), 0o644))

		_, err := Inspect(path)
		assert.Error(t, err)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := Inspect(lockPath(t))
		assert.True(t, os.IsNotExist(err))
	})
}

func TestForceRemove(t *testing.T) {
	path := lockPath(t)
	stale := plantHolder(t, path, "some-other-host", 1, time.Now().Add(time.Hour))

	require.NoError(t, ForceRemove(path))
	assert.NoFileExists(t, path)
	assert.NoFileExists(t, stale)

	require.NoError(t, ForceRemove(path), "removing a missing lock is not an error")

	l := NewHardlinkLock(path, Options{Timeout: 100 * time.Millisecond})
	require.NoError(t, l.Lock())
	require.NoError(t, l.Unlock())
}
