// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/config"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/registry"
	"github.com/platform-engineering-labs/formae/pkg/plugin/resource"
)

// List prints what is left of every supported resource kind in resourceGroup,
// for reclaiming resources a failed teardown leaked. A kind that cannot be listed
// is reported and the others are still listed.
func List(ctx context.Context, out io.Writer, resourceGroup string) error {
	if resourceGroup == "" {
		return errors.New("resource group is required")
	}

	cfg, err := config.FromEnv(lookupEnv)
	if err != nil {
		return err
	}
	lister, err := newLister(cfg)
	if err != nil {
		return err
	}

	var errs []error
	found := 0
	for _, kind := range registry.Types() {
		result, err := lister.List(ctx, &resource.ListRequest{
			ResourceType:         kind,
			TargetConfig:         cfg.TargetConfig(),
			AdditionalProperties: map[string]string{"resourceGroupName": resourceGroup},
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
			continue
		}
		for _, id := range result.NativeIDs {
			fmt.Fprintf(out, "%s %s\n", kind, id)
			found++
		}
	}
	fmt.Fprintf(out, "%d resource(s) in %s\n", found, resourceGroup)
	return errors.Join(errs...)
}
