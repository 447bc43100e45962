package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bashhack/repolock/internal/config"
)

// Version information - injected at build time
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	app := NewDefaultApp(config.VersionInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	})

	// Cancelling the context kills a child started by run; the lock is
	// released on the way out either way.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	code := execute(ctx, app, os.Args[1:])
	stop()

	app.exit(code)
}
