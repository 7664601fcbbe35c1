// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package commands

import (
	"bytes"
	"testing"

	"github.com/platform-engineering-labs/formae/pkg/plugin"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoot(t *testing.T) {
	cmd := Root()

	require.NotNil(t, cmd)
	assert.Equal(t, "appservice-demo", cmd.Use)
	assert.True(t, cmd.SilenceUsage)
}

func TestRoot_HasSubcommands(t *testing.T) {
	cmd := Root()

	subcommands := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcommands[sub.Name()] = true
	}

	for _, expected := range []string{"run", "plan", "list", "version"} {
		assert.True(t, subcommands[expected], "Expected subcommand %s not found", expected)
	}
	assert.Len(t, cmd.Commands(), 4)
}

func TestRoot_LoggingFlags(t *testing.T) {
	cmd := Root()

	level := cmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, level)
	assert.Equal(t, "info", level.DefValue)

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
}

func TestRoot_InstallsLogger(t *testing.T) {
	var logs bytes.Buffer
	var got plugin.Logger

	cmd := Root()
	cmd.AddCommand(&cobra.Command{
		Use: "log-check",
		RunE: func(cmd *cobra.Command, _ []string) error {
			got = plugin.LoggerFromContext(cmd.Context())
			got.Debug("resource created", "step", "plan")
			return nil
		},
	})
	cmd.SetArgs([]string{"log-check", "--verbose"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&logs)

	require.NoError(t, cmd.Execute())
	require.NotNil(t, got)
	assert.Contains(t, logs.String(), `msg="resource created"`)
	assert.Contains(t, logs.String(), "step=plan")
}

func TestRoot_RejectsUnknownLogLevel(t *testing.T) {
	cmd := Root()
	cmd.SetArgs([]string{"version", "--log-level", "chatty"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}
