// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package pipeline

import (
	"fmt"
	"maps"
	"slices"
)

// ResourceSpec identifies a resource to provision. Kind is the provider resource
// type (e.g. "Azure::Web::ServerFarm"), Name doubles as the step name inside a Plan.
//
// A ResourceSpec is treated as immutable once built; NewResourceSpec and
// Plan.AddStep keep private copies of Config.
type ResourceSpec struct {
	Kind   string
	Name   string
	Region string
	Config map[string]any
}

// Ref points at an output of a dependency's ResourceHandle. It is resolved when
// the referencing step runs, so the value only has to exist by then.
type Ref struct {
	Step   string
	Output string
}

func (r Ref) String() string {
	return fmt.Sprintf("%s.%s", r.Step, r.Output)
}

// NewResourceSpec builds a ResourceSpec holding its own copy of config.
func NewResourceSpec(kind, name, region string, config map[string]any) ResourceSpec {
	return ResourceSpec{
		Kind:   kind,
		Name:   name,
		Region: region,
		Config: cloneConfig(config),
	}
}

// Refs returns every Ref in the spec's config, including refs nested in maps and
// slices, in a deterministic order.
func (s ResourceSpec) Refs() []Ref {
	var refs []Ref
	for _, key := range slices.Sorted(maps.Keys(s.Config)) {
		refs = collectRefs(s.Config[key], refs)
	}
	return refs
}

// Resolve returns a copy of the config with every Ref replaced by the matching
// output of deps. A missing handle or output is an error.
func (s ResourceSpec) Resolve(deps map[string]ResourceHandle) (map[string]any, error) {
	resolved := make(map[string]any, len(s.Config))
	for key, value := range s.Config {
		v, err := resolveValue(value, deps)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %q of %s: %w", key, s.Name, err)
		}
		resolved[key] = v
	}
	return resolved, nil
}

func resolveValue(value any, deps map[string]ResourceHandle) (any, error) {
	switch v := value.(type) {
	case Ref:
		handle, ok := deps[v.Step]
		if !ok {
			return nil, fmt.Errorf("no handle for step %q", v.Step)
		}
		out, ok := handle.Outputs[v.Output]
		if !ok {
			return nil, fmt.Errorf("step %q has no output %q", v.Step, v.Output)
		}
		return out, nil
	case map[string]any:
		m := make(map[string]any, len(v))
		for k, inner := range v {
			r, err := resolveValue(inner, deps)
			if err != nil {
				return nil, err
			}
			m[k] = r
		}
		return m, nil
	case []any:
		s := make([]any, len(v))
		for i, inner := range v {
			r, err := resolveValue(inner, deps)
			if err != nil {
				return nil, err
			}
			s[i] = r
		}
		return s, nil
	default:
		return value, nil
	}
}

func collectRefs(value any, refs []Ref) []Ref {
	switch v := value.(type) {
	case Ref:
		return append(refs, v)
	case map[string]any:
		for _, key := range slices.Sorted(maps.Keys(v)) {
			refs = collectRefs(v[key], refs)
		}
	case []any:
		for _, inner := range v {
			refs = collectRefs(inner, refs)
		}
	}
	return refs
}

func cloneConfig(config map[string]any) map[string]any {
	if config == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(config))
	for k, v := range config {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return cloneConfig(v)
	case []any:
		s := make([]any, len(v))
		for i, inner := range v {
			s[i] = cloneValue(inner)
		}
		return s
	default:
		return value
	}
}

// ResourceHandle is the result of creating a ResourceSpec. ID is opaque to the
// pipeline; Outputs carries provider-assigned metadata that later steps can Ref.
type ResourceHandle struct {
	Step    string
	Kind    string
	ID      string
	Outputs map[string]string
}
