// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRunInProgress is returned by TearDown while the run is still executing.
var ErrRunInProgress = errors.New("pipeline run is still executing")

// DuplicateStepError is returned by AddStep when a step name is reused.
type DuplicateStepError struct {
	Step string
}

func (e *DuplicateStepError) Error() string {
	return fmt.Sprintf("duplicate step %q", e.Step)
}

// UnknownDependencyError is returned by AddStep when a dependency (or a Ref in the
// step's config) names a step that was not added before, or was not declared.
type UnknownDependencyError struct {
	Step       string
	Dependency string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("step %q depends on unknown step %q", e.Step, e.Dependency)
}

// CyclicDependencyError is returned by TopologicalOrder. Steps lists the steps
// that could not be ordered.
type CyclicDependencyError struct {
	Steps []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("dependency cycle between steps: %s", strings.Join(e.Steps, ", "))
}

// CreationError identifies the step whose creation failed.
type CreationError struct {
	Step string
	Kind string
	Err  error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("failed to create %s (%s): %v", e.Step, e.Kind, e.Err)
}

func (e *CreationError) Unwrap() error {
	return e.Err
}

// TeardownFailure records a single resource that could not be deleted.
type TeardownFailure struct {
	Handle ResourceHandle
	Err    error
}

// TeardownError aggregates every deletion failure of one TearDown pass.
type TeardownError struct {
	Failures []TeardownFailure
}

func (e *TeardownError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Handle.Step, f.Err))
	}
	return fmt.Sprintf("failed to tear down %d resource(s): %s", len(e.Failures), strings.Join(parts, "; "))
}

func (e *TeardownError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Steps returns the names of the steps whose resources were not deleted.
func (e *TeardownError) Steps() []string {
	steps := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		steps = append(steps, f.Handle.Step)
	}
	return steps
}
