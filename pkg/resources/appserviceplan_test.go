// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package resources

import (
	"encoding/json"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAppServicePlanParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		props    map[string]any
		sku      string
		tier     string
		kind     string
		reserved bool
	}{
		{"defaults", map[string]any{}, "B1", "Basic", "app", false},
		{"standard", map[string]any{"sku": map[string]any{"name": "S1", "tier": "Standard"}}, "S1", "Standard", "app", false},
		{"linux", map[string]any{"reserved": true}, "B1", "Basic", "linux", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			plan := buildAppServicePlanParams(tt.props, "westeurope")
			assert.Equal(t, "westeurope", *plan.Location)
			assert.Equal(t, tt.sku, *plan.SKU.Name)
			assert.Equal(t, tt.tier, *plan.SKU.Tier)
			assert.Equal(t, tt.kind, *plan.Kind)
			assert.Equal(t, tt.reserved, *plan.Properties.Reserved)
		})
	}
}

func TestBuildAppServicePlanParams_Capacity(t *testing.T) {
	t.Parallel()

	plan := buildAppServicePlanParams(map[string]any{"sku": map[string]any{"capacity": 2.0}}, "westeurope")
	require.NotNil(t, plan.SKU.Capacity)
	assert.Equal(t, int32(2), *plan.SKU.Capacity)
}

func TestSerializeAppServicePlanProperties(t *testing.T) {
	t.Parallel()

	raw, err := serializeAppServicePlanProperties(armappservice.Plan{
		ID:       to.Ptr("/subscriptions/s/resourceGroups/rg/providers/Microsoft.Web/serverfarms/plan"),
		Location: to.Ptr("West Europe"),
		SKU:      &armappservice.SKUDescription{Name: to.Ptr("B1"), Tier: to.Ptr("Basic")},
	}, "rg", "plan")
	require.NoError(t, err)

	var props map[string]any
	require.NoError(t, json.Unmarshal(raw, &props))
	assert.Equal(t, "plan", props["name"])
	assert.Equal(t, "westeurope", props["location"])
	assert.Equal(t, map[string]any{"name": "B1", "tier": "Basic"}, props["sku"])
}
