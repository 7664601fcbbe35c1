// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package commands

import (
	"github.com/spf13/cobra"

	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/cmd/appservice-demo/handlers"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/appservice"
)

// Run returns the run command.
func Run() *cobra.Command {
	settings := appservice.DefaultSettings()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Create the demo resources, then delete them again",
		Long: `Run creates, in dependency order:
  - a resource group
  - a storage account and a user-assigned identity with Storage Blob Data Owner on it
  - an App Service plan and two function apps using that identity
  - with --domain: the domain purchase and an SSL hostname binding on the first app

Everything created is deleted afterwards, newest first, whether or not creation
succeeded. The exit code is 0 only if every resource was created and deleted.

WARNING: --domain buys a real domain. The purchase is not refunded on deletion.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Run(cmd.Context(), cmd.OutOrStdout(), settings)
		},
	}

	bindSettings(cmd.Flags(), &settings)
	return cmd
}
