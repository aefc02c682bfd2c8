// Package main provides the docqa CLI: ask questions about a folder of documents.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bull/docqa/internal/cli"
)

func main() {
	// Cancelled on SIGINT/SIGTERM; the question loop says goodbye and exits cleanly.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	code := cli.Execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, cli.DefaultDeps())
	cancel()
	os.Exit(code)
}
