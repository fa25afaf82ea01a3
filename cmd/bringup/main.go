// Package main is the entry point for the bringup CLI.
//
// bringup drives a freshly provisioned Hadoop cluster to a running state
// through its management server's REST API: nodes are registered, host
// templates applied, configuration deployed and services started, each
// remote operation polled until it completes.
//
// Commands: up, plan, reports, schema, version.
//
// For detailed usage information, run:
//
//	bringup --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/bringup/cmd/bringup/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := commands.Root().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
