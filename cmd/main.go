package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/asynkron/fuzzpatch/internal/cli"
)

// main runs fuzzpatch against the process arguments and standard streams.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
