// Package main provides a CLI for running runbook scripts and replaying
// exported event logs.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	runbookcmd "github.com/louisbranch/runbook/internal/cmd/runbook"
	"github.com/louisbranch/runbook/internal/platform/config"
)

func main() {
	cfg, err := runbookcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf(config.ExitFailure, "Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runbookcmd.Run(ctx, cfg, os.Stdout, os.Stderr); err != nil {
		stop()
		if errors.Is(err, runbookcmd.ErrStoppedOnRejection) {
			config.Exitf(config.ExitRejected, "Error: %v", err)
		}
		config.Exitf(config.ExitFailure, "Error: %v", err)
	}
}
