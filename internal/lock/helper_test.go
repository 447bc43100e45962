package lock

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const helperEnv = "REPOLOCK_TEST_HOLDER"

// TestMain doubles as a lock holder process: with helperEnv set to
// "<backend>:<lockpath>" it takes the lock, prints "locked" and holds it
// until stdin is closed.
func TestMain(m *testing.M) {
	if arg := os.Getenv(helperEnv); arg != "" {
		os.Exit(runHolder(arg))
	}
	os.Exit(m.Run())
}

func runHolder(arg string) int {
	backend, path, ok := strings.Cut(arg, ":")
	if !ok {
		return 2
	}

	h := Make(path, Options{Hardlink: backend == "hardlink", Timeout: 5 * time.Second})
	if err := h.Lock(); err != nil {
		fmt.Println("failed:", err)
		return 1
	}
	fmt.Println("locked")

	_, _ = io.Copy(io.Discard, os.Stdin)

	if err := h.Unlock(); err != nil {
		return 1
	}
	return 0
}

// holderProcess is a child process holding a lock.
type holderProcess struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

// startHolder launches a child that holds path with the given backend and
// waits until it reports the lock as taken.
func startHolder(t *testing.T, backend, path string) *holderProcess {
	t.Helper()

	cmd := exec.Command(os.Args[0], "-test.run=^$")
	cmd.Env = append(os.Environ(), helperEnv+"="+backend+":"+path)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		t.Fatalf("Failed to open holder stdin: %v", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.Fatalf("Failed to open holder stdout: %v", err)
	}
	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start holder: %v", err)
	}

	line, err := bufio.NewReader(stdout).ReadString('\n')
	if err != nil || strings.TrimSpace(line) != "locked" {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		t.Fatalf("Holder did not take the lock: %q (%v)", line, err)
	}

	hp := &holderProcess{cmd: cmd, stdin: stdin}
	t.Cleanup(hp.kill)
	return hp
}

// release asks the holder to unlock and exit.
func (h *holderProcess) release(t *testing.T) {
	t.Helper()

	_ = h.stdin.Close()
	if err := h.cmd.Wait(); err != nil {
		t.Errorf("Holder exited with error: %v", err)
	}
}

// kill terminates the holder without letting it unlock.
func (h *holderProcess) kill() {
	if h.cmd.ProcessState != nil {
		return
	}
	_ = h.cmd.Process.Kill()
	_ = h.cmd.Wait()
}

func lockPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "lock")
}
