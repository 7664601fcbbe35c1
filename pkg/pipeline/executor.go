// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package pipeline

import (
	"context"
	"errors"

	"github.com/platform-engineering-labs/formae/pkg/plugin"
)

// ResourceClient realises and removes resources. Create must block until the
// resource exists (awaiting any long-running operation); Delete likewise.
// Retries are the client's business, the executor never retries.
type ResourceClient interface {
	Create(ctx context.Context, spec ResourceSpec, deps map[string]ResourceHandle) (ResourceHandle, error)
	Delete(ctx context.Context, handle ResourceHandle) error
}

// Executor walks a Plan against a ResourceClient.
type Executor struct {
	client      ResourceClient
	concurrency int
}

// Option configures an Executor.
type Option func(*Executor)

// WithConcurrency lets up to n mutually independent steps run at the same time.
// Values below 1 are treated as 1.
func WithConcurrency(n int) Option {
	return func(e *Executor) {
		if n < 1 {
			n = 1
		}
		e.concurrency = n
	}
}

// NewExecutor returns an Executor that runs steps one at a time unless
// WithConcurrency says otherwise.
func NewExecutor(client ResourceClient, opts ...Option) *Executor {
	e := &Executor{client: client, concurrency: 1}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute creates the plan's resources in topological order and stops at the first
// failure. The returned Run always holds every handle created, including when the
// error is a *CreationError. Plan errors are returned with a NotStarted run.
func (e *Executor) Execute(ctx context.Context, p *Plan) (*Run, error) {
	log := plugin.LoggerFromContext(ctx)

	order, err := p.TopologicalOrder()
	if err != nil {
		return newRun(nil), err
	}

	run := newRun(order)
	run.start()
	log.Debug("Pipeline run starting", "steps", len(order), "concurrency", e.concurrency)

	var failed string
	if e.concurrency > 1 {
		failed, err = e.executeConcurrent(ctx, p, run)
	} else {
		failed, err = e.executeSequential(ctx, p, run)
	}
	run.finish(failed, err)

	if err != nil {
		log.Error("Pipeline run stopped", "step", failed, "created", len(run.Handles()), "error", err)
		return run, err
	}
	log.Debug("Pipeline run completed", "created", len(run.Handles()))
	return run, nil
}

func (e *Executor) executeSequential(ctx context.Context, p *Plan, run *Run) (string, error) {
	for _, name := range run.order {
		step, _ := p.Step(name)
		if err := e.create(ctx, step, run); err != nil {
			return name, err
		}
	}
	return "", nil
}

type stepResult struct {
	name string
	err  error
}

// executeConcurrent dispatches steps as soon as their dependencies are done. After
// the first failure no new step is dispatched, but in-flight steps are awaited so
// whatever they create is still recorded for teardown.
func (e *Executor) executeConcurrent(ctx context.Context, p *Plan, run *Run) (string, error) {
	pending := make(map[string]int, len(run.order))
	dependents := make(map[string][]string)
	var ready []string
	for _, name := range run.order {
		step, _ := p.Step(name)
		pending[name] = len(step.DependsOn)
		for _, dep := range step.DependsOn {
			dependents[dep] = append(dependents[dep], name)
		}
		if len(step.DependsOn) == 0 {
			ready = append(ready, name)
		}
	}

	results := make(chan stepResult)
	inFlight := 0
	var failed string
	var firstErr error

	for {
		for firstErr == nil && len(ready) > 0 && inFlight < e.concurrency {
			step, _ := p.Step(ready[0])
			ready = ready[1:]
			inFlight++
			go func() {
				results <- stepResult{name: step.Name, err: e.create(ctx, step, run)}
			}()
		}
		if inFlight == 0 {
			break
		}

		res := <-results
		inFlight--
		if res.err != nil {
			if firstErr == nil {
				failed, firstErr = res.name, res.err
			}
			continue
		}
		for _, d := range dependents[res.name] {
			pending[d]--
			if pending[d] == 0 {
				ready = append(ready, d)
			}
		}
	}
	return failed, firstErr
}

func (e *Executor) create(ctx context.Context, step Step, run *Run) error {
	log := plugin.LoggerFromContext(ctx)

	if err := ctx.Err(); err != nil {
		return &CreationError{Step: step.Name, Kind: step.Spec.Kind, Err: err}
	}

	log.Debug("Creating resource", "step", step.Name, "kind", step.Spec.Kind)
	handle, err := e.client.Create(ctx, step.Spec, run.dependencies(step))
	if err != nil {
		return &CreationError{Step: step.Name, Kind: step.Spec.Kind, Err: err}
	}

	handle.Step = step.Name
	if handle.Kind == "" {
		handle.Kind = step.Spec.Kind
	}
	run.record(handle)
	log.Debug("Resource created", "step", step.Name, "kind", handle.Kind, "nativeID", handle.ID)
	return nil
}

// TearDown deletes every handle recorded in run, newest first, and keeps going
// past individual failures. Failures are returned together as a *TeardownError.
// A run that never started, or was already torn down, is left alone.
func (e *Executor) TearDown(ctx context.Context, run *Run) error {
	log := plugin.LoggerFromContext(ctx)

	run.mu.Lock()
	switch run.state {
	case StateRunning:
		run.mu.Unlock()
		return ErrRunInProgress
	case StateNotStarted, StateTornDown:
		run.state = StateTornDown
		run.mu.Unlock()
		log.Debug("Nothing to tear down")
		return nil
	}
	handles := append([]ResourceHandle(nil), run.handles...)
	run.mu.Unlock()

	var tornDown []ResourceHandle
	var failures []TeardownFailure
	for i := len(handles) - 1; i >= 0; i-- {
		h := handles[i]
		log.Debug("Deleting resource", "step", h.Step, "kind", h.Kind, "nativeID", h.ID)
		if err := e.client.Delete(ctx, h); err != nil {
			log.Error("Failed to delete resource", "step", h.Step, "kind", h.Kind, "nativeID", h.ID, "error", err)
			failures = append(failures, TeardownFailure{Handle: h, Err: err})
			continue
		}
		tornDown = append(tornDown, h)
	}

	run.mu.Lock()
	run.state = StateTornDown
	run.tornDown = tornDown
	run.leaked = failures
	run.mu.Unlock()

	if len(failures) > 0 {
		return &TeardownError{Failures: failures}
	}
	log.Debug("Teardown completed", "deleted", len(tornDown))
	return nil
}

// Run executes p and then always tears down what was created, even when ctx was
// cancelled mid-step. Creation and teardown errors are joined.
func (e *Executor) Run(ctx context.Context, p *Plan) (*Run, error) {
	run, execErr := e.Execute(ctx, p)
	var creation *CreationError
	if execErr != nil && !errors.As(execErr, &creation) {
		return run, execErr
	}

	teardownErr := e.TearDown(context.WithoutCancel(ctx), run)
	return run, errors.Join(execErr, teardownErr)
}
