// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package main is the entry point for the appservice-demo CLI.
//
// appservice-demo provisions an App Service plan, two function apps and,
// optionally, a purchased domain with an SSL hostname binding, then deletes all
// of it again. Credentials come from AZURE_TENANT_ID, AZURE_CLIENT_ID,
// AZURE_CLIENT_SECRET and AZURE_SUBSCRIPTION_ID.
//
// Commands: run, plan, list, version.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/cmd/appservice-demo/commands"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Cancellation still lets the run tear down what it created
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
