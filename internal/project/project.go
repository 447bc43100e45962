package project

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bashhack/repolock/internal/errors"
)

// CommandExecutor runs a command and returns its standard output.
type CommandExecutor interface {
	ExecuteWithOutput(ctx context.Context, cmd *exec.Cmd) (string, error)
}

// ExecExecutor is the default implementation of CommandExecutor
// that delegates to the os/exec package
type ExecExecutor struct{}

// ExecuteWithOutput implements CommandExecutor.ExecuteWithOutput. On failure
// the returned error wraps the *exec.Error or *exec.ExitError and carries
// the command's stderr.
func (e *ExecExecutor) ExecuteWithOutput(ctx context.Context, cmd *exec.Cmd) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", errors.Wrapf(err, "%s: %s", strings.Join(cmd.Args, " "), msg)
		}
		return "", errors.Wrap(err, strings.Join(cmd.Args, " "))
	}

	return stdout.String(), nil
}

// Finder locates the root of the project a directory belongs to.
type Finder struct {
	Executor CommandExecutor
}

// NewFinder returns a Finder that asks git.
func NewFinder() *Finder {
	return &Finder{Executor: &ExecExecutor{}}
}

// Root returns the top level of the git work tree containing dir. When dir is
// not inside a work tree, or git is not installed, dir itself is the project
// root; ok reports whether git found one.
//
// Every process working on a project resolves the same root, so lock paths
// anchored there agree no matter which subdirectory a command starts in.
func (f *Finder) Root(ctx context.Context, dir string) (root string, ok bool, err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", false, err
	}

	cmd := exec.CommandContext(ctx, "git", "-C", absDir, "rev-parse", "--show-toplevel")
	out, err := f.Executor.ExecuteWithOutput(ctx, cmd)
	if err != nil {
		// Exit code 128 is git's "not a git repository" (among other fatal
		// errors); a missing binary is an *exec.Error. Neither is a reason to
		// refuse to lock.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 128 {
			return absDir, false, nil
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return absDir, false, nil
		}
		return "", false, err
	}

	top := strings.TrimSpace(out)
	if top == "" {
		return absDir, false, nil
	}
	return filepath.Clean(top), true, nil
}
