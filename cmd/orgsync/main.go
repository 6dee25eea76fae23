package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/crmarques/orgsync/internal/cli"
	"github.com/crmarques/orgsync/internal/providers/resourcetypes/datadog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	deps := cli.Dependencies{
		NewRegistry: datadog.NewRegistry,
	}
	err := cli.Execute(ctx, deps, os.Args[1:])
	stop()
	if err != nil {
		os.Exit(exitCodeForError(err))
	}
}

func exitCodeForError(err error) int {
	return cli.ExitCodeForError(err)
}
