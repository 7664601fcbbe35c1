// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Flags(t *testing.T) {
	cmd := Run()

	for _, name := range []string{
		"location", "prefix", "suffix", "sku", "tier", "runtime", "concurrency",
		"domain", "host-label", "agreed-by", "contact-email", "contact-postal-code",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "flag %s", name)
	}

	assert.Equal(t, "westeurope", cmd.Flags().Lookup("location").DefValue)
	assert.Equal(t, "1", cmd.Flags().Lookup("concurrency").DefValue)
	assert.Equal(t, "", cmd.Flags().Lookup("domain").DefValue)
	assert.Equal(t, "l", cmd.Flags().Lookup("location").Shorthand)
}

func TestRun_RejectsArgs(t *testing.T) {
	cmd := Root()
	cmd.SetArgs([]string{"run", "extra"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	require.Error(t, cmd.Execute())
}

func TestPlan_Output(t *testing.T) {
	var out bytes.Buffer
	cmd := Root()
	cmd.SetArgs([]string{"plan", "--prefix", "demo", "--suffix", "abc12345"})
	cmd.SetOut(&out)

	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "7 step(s):")
	assert.Contains(t, out.String(), "resource-group (Azure::Resources::ResourceGroup)")
	assert.Contains(t, out.String(), "app2 (Azure::Web::FunctionApp)")
}

func TestPlan_WithDomain(t *testing.T) {
	var out bytes.Buffer
	cmd := Root()
	cmd.SetArgs([]string{"plan", "--suffix", "abc12345", "--domain", "example.com"})
	cmd.SetOut(&out)

	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "9 step(s):")
	assert.Contains(t, out.String(), "binding (Azure::Web::HostNameBinding)")
}

func TestPlan_InvalidSettings(t *testing.T) {
	cmd := Root()
	cmd.SetArgs([]string{"plan", "--concurrency", "0"})
	cmd.SetOut(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concurrency must be at least 1")
}
