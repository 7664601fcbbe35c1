// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package commands defines the CLI command structure and flag bindings.
// Command execution is delegated to the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/cmd/appservice-demo/handlers"
	"github.com/platform-engineering-labs/formae/pkg/plugin"
)

// Root returns the root command for the appservice-demo CLI.
func Root() *cobra.Command {
	var (
		logLevel string
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:           "appservice-demo",
		Short:         "Provision and tear down an Azure App Service demo",
		SilenceUsage:  true,
		SilenceErrors: true,
		// Logs go to stderr so stdout carries only the command's report
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if verbose {
				logLevel = "debug"
			}
			logger, err := handlers.NewLogger(cmd.ErrOrStderr(), logLevel)
			if err != nil {
				return err
			}
			cmd.SetContext(plugin.WithLogger(cmd.Context(), logger))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every step and Azure operation (same as --log-level debug)")

	cmd.AddCommand(Run())
	cmd.AddCommand(Plan())
	cmd.AddCommand(List())
	cmd.AddCommand(Version())

	return cmd
}
