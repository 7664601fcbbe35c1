// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package pipeline

import (
	"maps"
	"sync"
)

// State is the lifecycle position of a Run.
type State string

const (
	StateNotStarted      State = "NotStarted"
	StateRunning         State = "Running"
	StateSucceeded       State = "Succeeded"
	StatePartiallyFailed State = "PartiallyFailed"
	StateTornDown        State = "TornDown"
)

// Status is the terminal outcome of the creation pass. It survives TearDown.
type Status string

const (
	StatusPending        Status = "pending"
	StatusSuccess        Status = "success"
	StatusPartialFailure Status = "partial-failure"
	StatusFailed         Status = "failed"
)

// Run is the execution record of one Plan. Handles are kept in completion order;
// each is written once when its step finishes.
type Run struct {
	mu sync.Mutex

	order   []string
	state   State
	status  Status
	handles []ResourceHandle
	byStep  map[string]int

	failedStep string
	err        error

	tornDown []ResourceHandle
	leaked   []TeardownFailure
}

func newRun(order []string) *Run {
	return &Run{
		order:  order,
		state:  StateNotStarted,
		status: StatusPending,
		byStep: make(map[string]int),
	}
}

// State returns the current lifecycle state.
func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Status returns the outcome of the creation pass.
func (r *Run) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Order returns the topological order the run was executed in.
func (r *Run) Order() []string {
	return append([]string(nil), r.order...)
}

// Handles returns the created handles in completion order.
func (r *Run) Handles() []ResourceHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ResourceHandle(nil), r.handles...)
}

// Handle returns the handle recorded for step.
func (r *Run) Handle(step string) (ResourceHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byStep[step]
	if !ok {
		return ResourceHandle{}, false
	}
	return r.handles[i], true
}

// FailedStep returns the step that stopped the run, or "".
func (r *Run) FailedStep() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failedStep
}

// Err returns the CreationError that stopped the run, if any.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// TornDown returns the handles deleted by TearDown, in deletion order.
func (r *Run) TornDown() []ResourceHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ResourceHandle(nil), r.tornDown...)
}

// Leaked returns the resources TearDown could not delete.
func (r *Run) Leaked() []TeardownFailure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TeardownFailure(nil), r.leaked...)
}

func (r *Run) start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = StateRunning
}

func (r *Run) record(h ResourceHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h.Outputs = maps.Clone(h.Outputs)
	r.byStep[h.Step] = len(r.handles)
	r.handles = append(r.handles, h)
}

// dependencies collects the handles of step's dependencies.
func (r *Run) dependencies(step Step) map[string]ResourceHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	deps := make(map[string]ResourceHandle, len(step.DependsOn))
	for _, name := range step.DependsOn {
		if i, ok := r.byStep[name]; ok {
			deps[name] = r.handles[i]
		}
	}
	return deps
}

func (r *Run) finish(failedStep string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		r.state = StateSucceeded
		r.status = StatusSuccess
		return
	}
	r.state = StatePartiallyFailed
	r.failedStep = failedStep
	r.err = err
	if len(r.handles) == 0 {
		r.status = StatusFailed
	} else {
		r.status = StatusPartialFailure
	}
}
