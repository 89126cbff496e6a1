// File: cmd/computer-use/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/TechNavii/computer-use-demo/cmd"
	"github.com/TechNavii/computer-use-demo/internal/observability"
)

func main() {
	// Ctrl+C and SIGTERM cancel the task context so the loop can stop
	// between turns and the browser shuts down cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
