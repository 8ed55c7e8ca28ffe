// cmd/monitor/main.go
//
// This is the entry point for the monitor CLI.
// Running `monitor` from a project directory opens the live dashboard for
// that project; the subcommands are one-shot or headless views of the same
// backend.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
