// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package commands

import (
	"github.com/spf13/cobra"

	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/cmd/appservice-demo/handlers"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/appservice"
)

// Plan returns the plan command.
func Plan() *cobra.Command {
	settings := appservice.DefaultSettings()

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the steps run would execute, without contacting Azure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Plan(cmd.OutOrStdout(), settings)
		},
	}

	bindSettings(cmd.Flags(), &settings)
	return cmd
}
