// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package handlers implements the appservice-demo commands. Azure access goes
// through the factory variables below so tests can swap it out.
package handlers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/appservice"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/azureplugin"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/client"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/config"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/pipeline"
	"github.com/platform-engineering-labs/formae/pkg/plugin/resource"
)

// Lister lists the native ids of one resource type.
type Lister interface {
	List(ctx context.Context, request *resource.ListRequest) (*resource.ListResult, error)
}

// Factory function variables - can be replaced in tests.
var (
	lookupEnv = os.LookupEnv

	newAzureClient = client.NewClient

	newResourceClient = func(cfg *config.Config) (pipeline.ResourceClient, error) {
		c, err := newAzureClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure client: %w", err)
		}
		return azureplugin.NewDriver(azureplugin.New(c), cfg.TargetConfig()), nil
	}

	newLister = func(cfg *config.Config) (Lister, error) {
		c, err := newAzureClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure client: %w", err)
		}
		return azureplugin.New(c), nil
	}
)

// Run provisions the demo topology, tears it down again and writes the summary to
// out. The error is nil only when every resource was created and deleted.
func Run(ctx context.Context, out io.Writer, settings appservice.Settings) error {
	cfg, err := config.FromEnv(lookupEnv)
	if err != nil {
		return err
	}
	settings.SubscriptionID = cfg.SubscriptionId

	plan, err := appservice.BuildPlan(settings)
	if err != nil {
		return err
	}

	rc, err := newResourceClient(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Provisioning %d step(s) in %s (concurrency %d)\n", plan.Len(), settings.Location, settings.Concurrency)
	executor := pipeline.NewExecutor(rc, pipeline.WithConcurrency(settings.Concurrency))
	run, runErr := executor.Run(ctx, plan)

	if err := pipeline.WriteSummary(out, run); err != nil {
		return err
	}
	return runErr
}
