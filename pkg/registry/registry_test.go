// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package registry

import (
	"testing"

	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/client"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/config"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/prov"
	"github.com/stretchr/testify/assert"
)

func TestRegister(t *testing.T) {
	calls := 0
	Register("Test::Registry::Kind", func(_ *client.Client, _ *config.Config) prov.Provisioner {
		calls++
		return nil
	})

	assert.True(t, HasProvisioner("Test::Registry::Kind"))
	assert.False(t, HasProvisioner("Test::Registry::Missing"))
	assert.Contains(t, Types(), "Test::Registry::Kind")

	Get("Test::Registry::Kind", nil, &config.Config{})
	assert.Equal(t, 1, calls)
	assert.Nil(t, Get("Test::Registry::Missing", nil, &config.Config{}))
}
