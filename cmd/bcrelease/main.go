/*
Package main provides the CLI entry point for bcrelease.
*/
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/bloodstar/bcrelease/internal/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cmd.ExecuteContext(ctx)
	stop()

	os.Exit(cmd.ExitCode(err))
}
