package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"golang.org/x/term"

	"github.com/bashhack/repolock/internal/config"
	lockErrors "github.com/bashhack/repolock/internal/errors"
	"github.com/bashhack/repolock/internal/lock"
	"github.com/bashhack/repolock/internal/logger"
	"github.com/bashhack/repolock/internal/project"
)

// Exit codes besides the ones mirrored from a child process.
const (
	exitError      = 1
	exitLockFailed = 75 // EX_TEMPFAIL
)

// lockProbeTimeout bounds the single attempt made by status.
const lockProbeTimeout = time.Millisecond

// Runner starts argv and waits for it, returning its exit code. A non-zero
// exit is not an error; err is reserved for failing to run argv at all.
type Runner func(ctx context.Context, argv []string, stdin io.Reader, stdout, stderr io.Writer) (int, error)

// RootFinder locates the project root relative lock paths are anchored to.
type RootFinder interface {
	Root(ctx context.Context, dir string) (root string, ok bool, err error)
}

// AppOptions contains app configuration and dependencies.
// Everything but Config is optional and gets a default in NewApp or Initialize.
type AppOptions struct {
	// Config holds the application configuration settings (required).
	// The application will panic if this field is nil.
	Config *config.Config

	// Logger provides logging functionality (optional, a default will be created if nil).
	Logger logger.Logger

	// Lock is the handle run, status and unlock operate on (optional,
	// built from Config if nil).
	Lock lock.Handle

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Exit is the function to terminate the application (optional, defaults to os.Exit).
	Exit func(code int)

	// Runner runs the command held under the lock (optional, defaults to execRunner).
	Runner Runner

	// IsTerminal reports whether w is an interactive terminal (optional).
	// The friendly notice is only drawn on terminals.
	IsTerminal func(w io.Writer) bool

	// RootFinder resolves the project directory when the configuration does
	// not name one (optional, defaults to asking git).
	RootFinder RootFinder
}

// App is the repolock command.
type App struct {
	Config *config.Config
	Logger logger.Logger
	Lock   lock.Handle

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	exit       func(code int)
	runner     Runner
	isTerminal func(w io.Writer) bool
	rootFinder RootFinder
}

// NewDefaultApp creates an App with standard dependencies. Configuration
// sources beyond the built-in defaults are applied by the root command.
func NewDefaultApp(versionInfo config.VersionInfo) *App {
	cfg := config.New()
	cfg.VersionInfo = versionInfo

	return NewApp(AppOptions{
		Config: cfg,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Exit:   os.Exit,
	})
}

// NewApp creates an App with custom dependencies specified in opts.
// It panics if opts.Config is nil.
func NewApp(opts AppOptions) *App {
	if opts.Config == nil {
		panic("Config is required in AppOptions")
	}

	app := &App{
		Config:     opts.Config,
		Logger:     opts.Logger,
		Lock:       opts.Lock,
		Stdin:      opts.Stdin,
		Stdout:     opts.Stdout,
		Stderr:     opts.Stderr,
		exit:       opts.Exit,
		runner:     opts.Runner,
		isTerminal: opts.IsTerminal,
		rootFinder: opts.RootFinder,
	}

	if app.Stdin == nil {
		app.Stdin = os.Stdin
	}
	if app.Stdout == nil {
		app.Stdout = os.Stdout
	}
	if app.Stderr == nil {
		app.Stderr = os.Stderr
	}
	if app.exit == nil {
		app.exit = os.Exit
	}
	if app.runner == nil {
		app.runner = execRunner
	}
	if app.isTerminal == nil {
		app.isTerminal = isTerminal
	}
	if app.rootFinder == nil {
		app.rootFinder = project.NewFinder()
	}

	return app
}

// Initialize finalizes the configuration and sets up components not
// provided during construction.
func (a *App) Initialize() error {
	discovered := false
	if a.Config.NeedsProjectDir() {
		root, ok, err := a.rootFinder.Root(context.Background(), ".")
		if err != nil {
			return lockErrors.Wrap(lockErrors.ErrInvalidConfiguration, "locating project root: "+err.Error())
		}
		a.Config.ProjectDir = root
		discovered = ok
	}

	if err := a.Config.Finalize(); err != nil {
		if lockErrors.Is(err, lockErrors.ErrInvalidConfiguration) {
			return err
		}
		return lockErrors.Wrap(lockErrors.ErrInvalidConfiguration, err.Error())
	}

	if a.Logger == nil {
		l := logger.NewWithOutput(a.Config.Debug, a.Config.LogFile, a.Config.Verbose, a.Stdout, a.Stderr)
		a.Logger = l
	}

	if discovered {
		a.Logger.Info("anchoring lock paths at git work tree %s", a.Config.ProjectDir)
	}

	if a.Lock == nil {
		if a.Config.Friendly && !a.isTerminal(a.Stderr) {
			a.Logger.Info("stderr is not a terminal, friendly notice disabled")
			a.Config.Friendly = false
		}
		a.Lock = a.Config.NewLock(a.Logger, a.Stderr)
	}

	a.Logger.Info("using %s lock at %s", a.Config.Backend(), a.Config.LockFile)
	return nil
}

// RunCommand holds the lock while argv runs and returns the code the process
// should exit with: the child's own code, or exitLockFailed when the lock
// could not be taken.
func (a *App) RunCommand(ctx context.Context, argv []string) (int, error) {
	if len(argv) == 0 {
		return exitError, lockErrors.Wrap(lockErrors.ErrInvalidConfiguration, "no command given")
	}

	code := exitError
	err := a.Lock.WithLock(func() error {
		a.Logger.Info("lock %s taken, running %q", a.Lock.Path(), argv)

		var runErr error
		code, runErr = a.runner(ctx, argv, a.Stdin, a.Stdout, a.Stderr)
		return runErr
	})

	if lockErrors.IsLockError(err) {
		return exitLockFailed, err
	}
	if err != nil {
		return exitError, err
	}

	a.Logger.Info("%s exited with code %d", argv[0], code)
	return code, nil
}

// Status makes a single attempt on the lock, releases it straight away and
// reports what it found. It returns a *errors.LockError when the lock is busy.
func (a *App) Status() error {
	if a.Config.Disabled {
		a.Logger.InfoToUser("Locking is disabled; %s is not used", a.Config.LockFile)
		return nil
	}

	probe := *a.Config
	probe.Friendly = false
	probe.Retries = 1
	probe.Timeout = lockProbeTimeout

	h := probe.NewLock(a.Logger, io.Discard)
	if err := h.Lock(); err != nil {
		a.Logger.WarningToUser("%s is held (%s lock)", a.Config.LockFile, a.Config.Backend())
		if info, inspectErr := lock.Inspect(a.Config.LockFile); inspectErr == nil {
			a.Logger.StatusMessage("Holder: %s", info)
		}
		return err
	}

	if err := h.Unlock(); err != nil {
		a.Logger.Warning("releasing status probe on %s: %v", a.Config.LockFile, err)
	}

	a.Logger.Success("%s is free (%s lock)", a.Config.LockFile, a.Config.Backend())
	return nil
}

// ForceUnlock removes the lock file (and a hardlink holder's claim) without
// checking whether the holder is alive.
func (a *App) ForceUnlock(force bool) error {
	if !force {
		return lockErrors.Wrap(lockErrors.ErrInvalidConfiguration,
			"refusing to remove "+a.Config.LockFile+" without --force")
	}

	if info, err := lock.Inspect(a.Config.LockFile); err == nil {
		a.Logger.InfoToUser("Removing lock held by %s", info)
	}

	if err := lock.ForceRemove(a.Config.LockFile); err != nil {
		return err
	}

	a.Logger.Success("Removed %s", a.Config.LockFile)
	return nil
}

// ShowVersion displays version information
func (a *App) ShowVersion() {
	_, _ = fmt.Fprintf(a.Stdout, "repolock %s (%s) built on %s\n",
		a.Config.VersionInfo.Version,
		a.Config.VersionInfo.Commit,
		a.Config.VersionInfo.Date)
}

// Close releases resources held by the App. A lock still held (after an
// interrupted run) is released first.
func (a *App) Close() error {
	var errs []error

	if a.Lock != nil && a.Lock.IsLocked() {
		if err := a.Lock.Unlock(); err != nil {
			if a.Logger != nil {
				a.Logger.Error("Failed to release lock during cleanup: %v", err)
			} else {
				_, _ = fmt.Fprintf(a.Stderr, "❌ Failed to release lock during cleanup: %v\n", err)
			}
			errs = append(errs, err)
		}
	}

	if a.Logger != nil {
		if err := a.Logger.Close(); err != nil {
			_, _ = fmt.Fprintf(a.Stderr, "❌ Failed to close logger: %v\n", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return lockErrors.Join(errs...)
	}
	return nil
}

func execRunner(ctx context.Context, argv []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if lockErrors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
		// Killed by a signal.
		return exitError, nil
	}
	return exitError, lockErrors.Wrapf(err, "running %s", argv[0])
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
