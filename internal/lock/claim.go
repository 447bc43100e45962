package lock

import (
	"bufio"
	"bytes"
	"crypto/md5" //nolint:gosec // names only, not a security boundary
	"encoding/hex"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ClaimSuffix ends every claim file relocated into a scratch directory.
const ClaimSuffix = ".lock"

// claim is the uniquely named file HardlinkLock links onto the lock path.
// Linking is atomic even on filesystems where O_EXCL is not, so whoever's
// claim the lock path ends up sharing an inode with holds the lock.
type claim struct {
	lockPath string
	identity string
	path     string
}

// newClaim names a claim as lockPath, hostname, pid and a random token
// joined by ClaimSeparator. With tmpDir set the file lives at
// tmpDir/md5(identity).lock instead, keeping the path short.
func newClaim(lockPath, tmpDir, hostname string, pid int) claim {
	identity := strings.Join([]string{
		lockPath,
		hostname,
		strconv.Itoa(pid),
		uuid.NewString(),
	}, ClaimSeparator)

	path := identity
	if tmpDir != "" {
		path = filepath.Join(tmpDir, hashedClaimName(identity))
	}

	return claim{lockPath: lockPath, identity: identity, path: path}
}

func hashedClaimName(identity string) string {
	sum := md5.Sum([]byte(identity)) //nolint:gosec // see import
	return hex.EncodeToString(sum[:]) + ClaimSuffix
}

// write creates the claim file with its lease stored as the modification time.
func (c claim) write(lease time.Duration) error {
	var buf bytes.Buffer
	buf.WriteString(c.identity)
	buf.WriteByte('\n')
	buf.WriteString(c.path)
	buf.WriteByte('\n')

	if err := os.WriteFile(c.path, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return c.touch(lease)
}

func (c claim) touch(lease time.Duration) error {
	now := time.Now()
	return os.Chtimes(c.path, now, now.Add(lease))
}

func (c claim) link() error {
	return os.Link(c.path, c.lockPath)
}

// held reports whether the lock path is our claim. Comparing inodes instead
// of trusting link's return value covers NFS, where a link can succeed on the
// server yet report an error to the client.
func (c claim) held() bool {
	claimInfo, err := os.Stat(c.path)
	if err != nil {
		return false
	}
	lockInfo, err := os.Stat(c.lockPath)
	if err != nil {
		return false
	}
	return os.SameFile(claimInfo, lockInfo)
}

func (c claim) remove() error {
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// holder describes whoever's claim currently sits on a lock path.
type holder struct {
	identity  string
	claimPath string
	hostname  string
	pid       int
}

// readHolder parses the claim content found at lockPath.
func readHolder(lockPath string) (holder, error) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return holder{}, err
	}

	var h holder
	scanner := bufio.NewScanner(bytes.NewReader(data))
	if scanner.Scan() {
		h.identity = scanner.Text()
	}
	if scanner.Scan() {
		h.claimPath = scanner.Text()
	}

	fields := strings.Split(h.identity, ClaimSeparator)
	if len(fields) >= 4 {
		h.hostname = fields[len(fields)-3]
		h.pid, _ = strconv.Atoi(fields[len(fields)-2])
	}

	return h, nil
}

// leaseExpiry returns the lease expiry of whatever currently holds lockPath.
func leaseExpiry(lockPath string) (time.Time, error) {
	info, err := os.Stat(lockPath)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
