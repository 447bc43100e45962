package lock

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	lockErrors "github.com/bashhack/repolock/internal/errors"
)

// HolderInfo describes what is currently sitting on a lock path, as far as
// the file content tells.
type HolderInfo struct {
	// Backend is "hardlink" or "pidfile".
	Backend string

	Hostname string
	PID      int

	// ClaimFile is the holder's claim, for hardlink locks only.
	ClaimFile string

	// Expires is the hardlink lease expiry.
	Expires time.Time
}

func (h HolderInfo) String() string {
	if h.Backend == "hardlink" {
		return fmt.Sprintf("pid %d on %s, claim %s, lease until %s",
			h.PID, h.Hostname, h.ClaimFile, h.Expires.Format(time.RFC3339))
	}
	return fmt.Sprintf("pid %d", h.PID)
}

// Inspect reads the holder recorded at path. An empty PID-file lock (one whose
// holder has not written its pid yet, or was released) yields PID 0.
func Inspect(path string) (HolderInfo, error) {
	h, err := readHolder(path)
	if err != nil {
		return HolderInfo{}, err
	}

	if strings.Contains(h.identity, ClaimSeparator) {
		expires, err := leaseExpiry(path)
		if err != nil {
			return HolderInfo{}, err
		}
		return HolderInfo{
			Backend:   "hardlink",
			Hostname:  h.hostname,
			PID:       h.pid,
			ClaimFile: h.claimPath,
			Expires:   expires,
		}, nil
	}

	info := HolderInfo{Backend: "pidfile"}
	if s := strings.TrimSpace(h.identity); s != "" {
		pid, err := strconv.Atoi(s)
		if err != nil {
			return HolderInfo{}, lockErrors.Wrapf(err, "unrecognised lock file %s", path)
		}
		info.PID = pid
	}
	return info, nil
}

// ForceRemove deletes the lock path and, for a hardlink lock, the holder's
// claim file. It does not check whether the holder is still alive.
func ForceRemove(path string) error {
	info, err := Inspect(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return lockErrors.Wrapf(lockErrors.ErrReleaseFailure, "remove %s", path)
	}

	if info.ClaimFile != "" {
		if err := os.Remove(info.ClaimFile); err != nil && !os.IsNotExist(err) {
			return lockErrors.Wrapf(lockErrors.ErrReleaseFailure, "remove claim %s", info.ClaimFile)
		}
	}
	return nil
}
