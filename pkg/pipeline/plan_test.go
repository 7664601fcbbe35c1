// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spec(name string) ResourceSpec {
	return NewResourceSpec("Test::Kind", name, "eastus", nil)
}

func mustAdd(t *testing.T, p *Plan, s ResourceSpec, deps ...string) string {
	t.Helper()
	name, err := p.AddStep(s, deps...)
	require.NoError(t, err)
	return name
}

// planFromSteps builds a plan from steps declared in any order. Unlike AddStep it
// accepts forward references, which is the only way to get a cycle into a plan.
func planFromSteps(steps ...Step) (*Plan, error) {
	p := NewPlan()
	for _, s := range steps {
		if _, exists := p.steps[s.Name]; exists {
			return nil, &DuplicateStepError{Step: s.Name}
		}
		p.insert(Step{Name: s.Name, Spec: NewResourceSpec(s.Spec.Kind, s.Spec.Name, s.Spec.Region, s.Spec.Config), DependsOn: dedupe(s.DependsOn)})
	}
	for _, name := range p.order {
		if err := p.checkDependencies(p.steps[name]); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func TestAddStep_ReturnsStepName(t *testing.T) {
	t.Parallel()
	p := NewPlan()

	name, err := p.AddStep(spec("rg"))

	require.NoError(t, err)
	assert.Equal(t, "rg", name)
	assert.Equal(t, 1, p.Len())
}

func TestAddStep_Duplicate(t *testing.T) {
	t.Parallel()
	p := NewPlan()
	mustAdd(t, p, spec("rg"))

	_, err := p.AddStep(spec("rg"))

	var dup *DuplicateStepError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "rg", dup.Step)
}

func TestAddStep_UnknownDependency(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		deps []string
	}{
		{name: "never added", deps: []string{"plan"}},
		{name: "self", deps: []string{"app"}},
		{name: "one of several", deps: []string{"rg", "missing"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := NewPlan()
			mustAdd(t, p, spec("rg"))

			_, err := p.AddStep(spec("app"), tt.deps...)

			var unknown *UnknownDependencyError
			require.ErrorAs(t, err, &unknown)
			assert.Equal(t, "app", unknown.Step)
			assert.Equal(t, 1, p.Len(), "failed step must not be added")
		})
	}
}

func TestAddStep_RefToUndeclaredDependency(t *testing.T) {
	t.Parallel()
	p := NewPlan()
	mustAdd(t, p, spec("rg"))
	mustAdd(t, p, spec("plan"), "rg")

	app := NewResourceSpec("Test::Kind", "app", "eastus", map[string]any{
		"serverFarmId": Ref{Step: "plan", Output: "id"},
	})
	_, err := p.AddStep(app, "rg")

	var unknown *UnknownDependencyError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "plan", unknown.Dependency)
}

func TestAddStep_CopiesConfig(t *testing.T) {
	t.Parallel()
	cfg := map[string]any{"sku": map[string]any{"name": "B1"}}
	p := NewPlan()
	mustAdd(t, p, ResourceSpec{Kind: "Test::Kind", Name: "plan", Config: cfg})

	cfg["sku"].(map[string]any)["name"] = "P1v3"

	step, ok := p.Step("plan")
	require.True(t, ok)
	assert.Equal(t, "B1", step.Spec.Config["sku"].(map[string]any)["name"])
}

func TestTopologicalOrder_RespectsDependencies(t *testing.T) {
	t.Parallel()
	p := NewPlan()
	mustAdd(t, p, spec("rg"))
	mustAdd(t, p, spec("domain"), "rg")
	mustAdd(t, p, spec("storage"), "rg")
	mustAdd(t, p, spec("plan"), "rg")
	mustAdd(t, p, spec("app1"), "plan", "storage")
	mustAdd(t, p, spec("app2"), "plan", "storage")
	mustAdd(t, p, spec("binding"), "app1", "domain")

	order, err := p.TopologicalOrder()
	require.NoError(t, err)
	require.Len(t, order, p.Len())

	position := make(map[string]int)
	for i, name := range order {
		position[name] = i
	}
	for _, step := range p.Steps() {
		for _, dep := range step.DependsOn {
			assert.Less(t, position[dep], position[step.Name], "%s must come after %s", step.Name, dep)
		}
	}
}

func TestTopologicalOrder_StableTies(t *testing.T) {
	t.Parallel()
	steps := []Step{
		{Name: "c", Spec: spec("c"), DependsOn: []string{"a"}},
		{Name: "a", Spec: spec("a")},
		{Name: "b", Spec: spec("b")},
		{Name: "d", Spec: spec("d"), DependsOn: []string{"b"}},
	}
	p, err := planFromSteps(steps...)
	require.NoError(t, err)

	order, err := p.TopologicalOrder()

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b", "d"}, order)
}

func TestTopologicalOrder_InsertionOrderForIndependentSteps(t *testing.T) {
	t.Parallel()
	p := NewPlan()
	for _, name := range []string{"z", "y", "x"} {
		mustAdd(t, p, spec(name))
	}

	order, err := p.TopologicalOrder()

	require.NoError(t, err)
	assert.Equal(t, []string{"z", "y", "x"}, order)
}

func TestTopologicalOrder_TwoCycle(t *testing.T) {
	t.Parallel()
	p, err := planFromSteps(
		Step{Name: "a", Spec: spec("a"), DependsOn: []string{"b"}},
		Step{Name: "b", Spec: spec("b"), DependsOn: []string{"a"}},
	)
	require.NoError(t, err)

	_, err = p.TopologicalOrder()

	var cycle *CyclicDependencyError
	require.ErrorAs(t, err, &cycle)
	assert.ElementsMatch(t, []string{"a", "b"}, cycle.Steps)
}

func TestPlanFromSteps_Errors(t *testing.T) {
	t.Parallel()

	_, err := planFromSteps(Step{Name: "a", Spec: spec("a")}, Step{Name: "a", Spec: spec("a")})
	var dup *DuplicateStepError
	assert.ErrorAs(t, err, &dup)

	_, err = planFromSteps(Step{Name: "a", Spec: spec("a"), DependsOn: []string{"ghost"}})
	var unknown *UnknownDependencyError
	assert.ErrorAs(t, err, &unknown)
}

func TestResourceSpec_Resolve(t *testing.T) {
	t.Parallel()
	s := NewResourceSpec("Test::Kind", "app", "eastus", map[string]any{
		"serverFarmId": Ref{Step: "plan", Output: "id"},
		"identity":     map[string]any{"id": Ref{Step: "identity", Output: "id"}},
		"hosts":        []any{"a", Ref{Step: "plan", Output: "name"}},
		"plain":        "value",
	})
	deps := map[string]ResourceHandle{
		"plan":     {Step: "plan", Outputs: map[string]string{"id": "/plan/id", "name": "plan"}},
		"identity": {Step: "identity", Outputs: map[string]string{"id": "/identity/id"}},
	}

	resolved, err := s.Resolve(deps)

	require.NoError(t, err)
	assert.Equal(t, "/plan/id", resolved["serverFarmId"])
	assert.Equal(t, map[string]any{"id": "/identity/id"}, resolved["identity"])
	assert.Equal(t, []any{"a", "plan"}, resolved["hosts"])
	assert.Equal(t, "value", resolved["plain"])
	assert.IsType(t, Ref{}, s.Config["serverFarmId"], "resolve must not mutate the spec")
}

func TestResourceSpec_ResolveMissingOutput(t *testing.T) {
	t.Parallel()
	s := NewResourceSpec("Test::Kind", "app", "eastus", map[string]any{
		"serverFarmId": Ref{Step: "plan", Output: "id"},
	})

	_, err := s.Resolve(map[string]ResourceHandle{"plan": {Step: "plan"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), `has no output "id"`)
}
