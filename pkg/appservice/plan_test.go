// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package appservice

import (
	"slices"
	"testing"

	"github.com/google/uuid"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/pipeline"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/resources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPlan_WithoutDomain(t *testing.T) {
	t.Parallel()

	p, err := BuildPlan(validSettings())
	require.NoError(t, err)

	order, err := p.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{
		StepResourceGroup, StepStorage, StepIdentity, StepStorageRole, StepPlan, StepApp1, StepApp2,
	}, order)
}

func TestBuildPlan_WithDomain(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Domain = "contoso-demo.com"
	p, err := BuildPlan(s)
	require.NoError(t, err)

	order, err := p.TopologicalOrder()
	require.NoError(t, err)
	require.Len(t, order, 9)
	assert.Equal(t, StepResourceGroup, order[0])

	pos := func(step string) int { return slices.Index(order, step) }
	for _, step := range p.Steps() {
		for _, dep := range step.DependsOn {
			assert.Less(t, pos(dep), pos(step.Name), "%s before %s", dep, step.Name)
		}
	}

	binding, ok := p.Step(StepBinding)
	require.True(t, ok)
	assert.Equal(t, resources.ResourceTypeHostNameBinding, binding.Spec.Kind)
	assert.Equal(t, "www.contoso-demo.com", binding.Spec.Config["hostName"])
	assert.ElementsMatch(t, []string{StepResourceGroup, StepPlan, StepApp1, StepDomain}, binding.DependsOn)
}

func TestBuildPlan_AppsAreDistinct(t *testing.T) {
	t.Parallel()

	p, err := BuildPlan(validSettings())
	require.NoError(t, err)

	app1, ok := p.Step(StepApp1)
	require.True(t, ok)
	app2, ok := p.Step(StepApp2)
	require.True(t, ok)

	assert.Equal(t, resources.ResourceTypeFunctionApp, app1.Spec.Kind)
	assert.NotEqual(t, app1.Spec.Config["name"], app2.Spec.Config["name"])
	assert.NotContains(t, app2.DependsOn, StepApp1)
	assert.Equal(t, pipeline.Ref{Step: StepPlan, Output: "id"}, app2.Spec.Config["serverFarmId"])
}

func TestBuildPlan_RoleTargetsStorage(t *testing.T) {
	t.Parallel()

	s := validSettings()
	p, err := BuildPlan(s)
	require.NoError(t, err)

	role, ok := p.Step(StepStorageRole)
	require.True(t, ok)
	assert.Equal(t, pipeline.Ref{Step: StepStorage, Output: "id"}, role.Spec.Config["scope"])
	assert.Equal(t, resources.RoleDefinitionID(s.SubscriptionID, resources.StorageBlobDataOwnerRoleID), role.Spec.Config["roleDefinitionId"])
}

func TestBuildPlan_RoleNameIsStableUUID(t *testing.T) {
	t.Parallel()

	roleName := func(s Settings) string {
		p, err := BuildPlan(s)
		require.NoError(t, err)
		role, ok := p.Step(StepStorageRole)
		require.True(t, ok)
		name, ok := role.Spec.Config["name"].(string)
		require.True(t, ok)
		return name
	}

	s := validSettings()
	name := roleName(s)
	_, err := uuid.Parse(name)
	require.NoError(t, err)
	assert.Equal(t, name, roleName(s))

	other := validSettings()
	other.Suffix = "zz99"
	assert.NotEqual(t, name, roleName(other))
}

func TestBuildPlan_InvalidSettings(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.SubscriptionID = ""
	_, err := BuildPlan(s)
	assert.Error(t, err)
}
