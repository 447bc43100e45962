package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bashhack/repolock/internal/config"
	lockErrors "github.com/bashhack/repolock/internal/errors"
)

// exitStatus carries a process exit code out of a command. err, when set, is
// reported to the user before exiting.
type exitStatus struct {
	code int
	err  error
}

func (e *exitStatus) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit status %d", e.code)
}

func (e *exitStatus) Unwrap() error { return e.err }

// Configure layers the configuration sources over the defaults (YAML file,
// then .env and REPOLOCK_* variables, then flags set on fs) and initializes
// the app.
func (a *App) Configure(fs *pflag.FlagSet, flagged *config.Config, configFile string, configRequired bool, envFile string) error {
	if err := a.Config.LoadFile(configFile, configRequired); err != nil {
		return err
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	a.Config.LoadFromEnvironment()
	a.Config.OverrideFromFlags(fs, flagged)

	return a.Initialize()
}

func newRootCommand(app *App) *cobra.Command {
	var (
		configFile string
		envFile    string
	)
	flagged := config.New()

	root := &cobra.Command{
		Use:   "repolock",
		Short: "Run commands under a cross-process project lock",
		Long: "repolock serialises commands working on the same project by holding a lock file\n" +
			"for their whole run. The default lock uses flock on a PID file; --hardlink-lock\n" +
			"switches to hardlink claims for filesystems such as NFS.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.Configure(cmd.Flags(), flagged, configFile, cmd.Flags().Changed("config"), envFile)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&configFile, "config", config.DefaultConfigFile, "YAML configuration file")
	pf.StringVar(&envFile, "env-file", ".env", "File with REPOLOCK_* variables to load")
	flagged.BindFlags(pf)

	root.AddCommand(
		newRunCommand(app),
		newStatusCommand(app),
		newUnlockCommand(app),
		newVersionCommand(app),
	)
	return root
}

func newRunCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] [--] <command> [args...]",
		Short: "Hold the lock while running a command",
		Long: "Takes the lock, runs the command and releases the lock when it exits.\n" +
			"repolock exits with the command's exit code, or 75 if the lock is busy.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := app.RunCommand(cmd.Context(), args)
			if err != nil || code != 0 {
				return &exitStatus{code: code, err: err}
			}
			return nil
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newStatusCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the lock is free",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := app.Status()
			if lockErrors.IsLockError(err) {
				return &exitStatus{code: exitLockFailed}
			}
			return err
		},
	}
}

func newUnlockCommand(app *App) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "unlock --force",
		Short: "Remove a stale lock file",
		Long: "Removes the lock file, and the holder's claim file for hardlink locks.\n" +
			"The holder is not checked: only use this when it is known to be gone.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.ForceUnlock(force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Remove the lock even though its holder may be alive")
	return cmd
}

func newVersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Printing the version needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(*cobra.Command, []string) {
			app.ShowVersion()
		},
	}
}

// execute runs the command line in args and returns the process exit code.
func execute(ctx context.Context, app *App, args []string) int {
	root := newRootCommand(app)
	root.SetArgs(args)
	root.SetIn(app.Stdin)
	root.SetOut(app.Stdout)
	root.SetErr(app.Stderr)

	err := root.ExecuteContext(ctx)

	if closeErr := app.Close(); closeErr != nil {
		_, _ = fmt.Fprintf(app.Stderr, "❌ Error during cleanup: %v\n", closeErr)
	}

	if err == nil {
		return 0
	}

	var status *exitStatus
	if lockErrors.As(err, &status) {
		if status.err != nil {
			_, _ = fmt.Fprintf(app.Stderr, "❌ Error: %v\n", status.err)
		}
		return status.code
	}

	_, _ = fmt.Fprintf(app.Stderr, "❌ Error: %v\n", err)
	if lockErrors.IsLockError(err) {
		return exitLockFailed
	}
	return exitError
}
