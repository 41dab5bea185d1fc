// Package main is the entry point for the jirabot CLI application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danielolaszy/jirabot/cmd"
	"github.com/danielolaszy/jirabot/internal/logging"
)

const version = "1.0.0"

// main executes the root command and exits non-zero on error. An interrupt
// stops the run; commands not yet processed are reported as skipped.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Debug("starting jirabot", "version", version)

	if err := cmd.Execute(ctx); err != nil {
		logging.Error("command execution failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
