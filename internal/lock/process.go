package lock

import (
	"os"

	"github.com/shirou/gopsutil/process"
)

// isProcessRunning reports whether pid exists on this host. When the probe
// itself fails the process is assumed alive so that a lock is never broken
// on a guess.
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	if pid == os.Getpid() {
		return true
	}

	exists, err := process.PidExists(int32(pid))
	if err != nil {
		return true
	}
	return exists
}

// localHostname uses the kernel hostname rather than a resolved FQDN, which
// can take several seconds on a misconfigured network.
func localHostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "localhost"
	}
	return name
}
