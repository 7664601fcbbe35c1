// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package pipeline

import (
	"fmt"
	"slices"
)

// Step pairs a ResourceSpec with the names of the steps that must have produced a
// handle before it runs.
type Step struct {
	Name      string
	Spec      ResourceSpec
	DependsOn []string
}

// Plan declares what to build and in which order, independently of execution.
type Plan struct {
	steps map[string]Step
	order []string // insertion order
}

// NewPlan returns an empty plan.
func NewPlan() *Plan {
	return &Plan{steps: make(map[string]Step)}
}

// AddStep appends a step named after spec.Name. Every dependency, and every step a
// Ref in spec.Config points at, must already be part of the plan and be listed in
// dependsOn.
func (p *Plan) AddStep(spec ResourceSpec, dependsOn ...string) (string, error) {
	if spec.Name == "" {
		return "", fmt.Errorf("step name is required")
	}
	if _, exists := p.steps[spec.Name]; exists {
		return "", &DuplicateStepError{Step: spec.Name}
	}

	step := Step{Name: spec.Name, Spec: NewResourceSpec(spec.Kind, spec.Name, spec.Region, spec.Config), DependsOn: dedupe(dependsOn)}
	if err := p.checkDependencies(step); err != nil {
		return "", err
	}

	p.insert(step)
	return step.Name, nil
}

func (p *Plan) insert(step Step) {
	p.steps[step.Name] = step
	p.order = append(p.order, step.Name)
}

func (p *Plan) checkDependencies(step Step) error {
	for _, dep := range step.DependsOn {
		if _, ok := p.steps[dep]; !ok {
			return &UnknownDependencyError{Step: step.Name, Dependency: dep}
		}
	}
	for _, ref := range step.Spec.Refs() {
		if !slices.Contains(step.DependsOn, ref.Step) {
			return &UnknownDependencyError{Step: step.Name, Dependency: ref.Step}
		}
	}
	return nil
}

// Step returns the named step.
func (p *Plan) Step(name string) (Step, bool) {
	s, ok := p.steps[name]
	return s, ok
}

// Steps returns all steps in insertion order.
func (p *Plan) Steps() []Step {
	steps := make([]Step, 0, len(p.order))
	for _, name := range p.order {
		steps = append(steps, p.steps[name])
	}
	return steps
}

// Len returns the number of steps.
func (p *Plan) Len() int {
	return len(p.order)
}

// TopologicalOrder linearises the plan so every step comes after its dependencies.
// Among steps that are ready at the same time the earlier-added one goes first, so
// the result is deterministic.
func (p *Plan) TopologicalOrder() ([]string, error) {
	pending := make(map[string]int, len(p.order))
	dependents := make(map[string][]string, len(p.order))
	for _, name := range p.order {
		step := p.steps[name]
		pending[name] = len(step.DependsOn)
		for _, dep := range step.DependsOn {
			dependents[dep] = append(dependents[dep], name)
		}
	}

	ordered := make([]string, 0, len(p.order))
	emitted := make(map[string]bool, len(p.order))
	for len(ordered) < len(p.order) {
		next := ""
		for _, name := range p.order {
			if !emitted[name] && pending[name] == 0 {
				next = name
				break
			}
		}
		if next == "" {
			var stuck []string
			for _, name := range p.order {
				if !emitted[name] {
					stuck = append(stuck, name)
				}
			}
			return nil, &CyclicDependencyError{Steps: stuck}
		}

		emitted[next] = true
		ordered = append(ordered, next)
		for _, d := range dependents[next] {
			pending[d]--
		}
	}
	return ordered, nil
}

func dedupe(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}
