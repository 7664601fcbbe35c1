// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package commands

import (
	"github.com/spf13/cobra"

	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/cmd/appservice-demo/handlers"
)

// List returns the list command.
func List() *cobra.Command {
	var resourceGroup string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List demo resources left in a resource group",
		Long: `List prints every resource of a supported kind in the resource group.
Use it after a run reported teardown failures to find what to reclaim.

Example:
  appservice-demo list --resource-group fademo-rg-1a2b3c4d`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.List(cmd.Context(), cmd.OutOrStdout(), resourceGroup)
		},
	}

	cmd.Flags().StringVarP(&resourceGroup, "resource-group", "g", "", "Resource group to inspect (required)")
	_ = cmd.MarkFlagRequired("resource-group")

	return cmd
}
