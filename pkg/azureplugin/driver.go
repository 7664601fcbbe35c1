// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package azureplugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/pipeline"
	"github.com/platform-engineering-labs/formae/pkg/plugin"
	"github.com/platform-engineering-labs/formae/pkg/plugin/resource"
)

// Backend is the part of the formae resource contract the Driver needs. *Plugin
// satisfies it.
type Backend interface {
	Create(ctx context.Context, request *resource.CreateRequest) (*resource.CreateResult, error)
	Read(ctx context.Context, request *resource.ReadRequest) (*resource.ReadResult, error)
	Delete(ctx context.Context, request *resource.DeleteRequest) (*resource.DeleteResult, error)
	Status(ctx context.Context, request *resource.StatusRequest) (*resource.StatusResult, error)
}

// OperationError is a create or delete that Azure reported as failed.
type OperationError struct {
	Kind      string
	Operation string
	Code      resource.OperationErrorCode
	Message   string
}

func (e *OperationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s of %s failed (%s)", e.Operation, e.Kind, e.Code)
	}
	return fmt.Sprintf("%s of %s failed (%s): %s", e.Operation, e.Kind, e.Code, e.Message)
}

var errStillRunning = errors.New("operation still in progress")

// Driver adapts a Backend to pipeline.ResourceClient: it turns specs into formae
// requests and blocks on long-running operations by polling Status.
type Driver struct {
	backend         Backend
	targetConfig    json.RawMessage
	pollInterval    time.Duration
	maxPollInterval time.Duration
	timeout         time.Duration
}

var _ pipeline.ResourceClient = &Driver{}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithPollInterval sets the first and the largest wait between Status calls.
func WithPollInterval(initial, maxInterval time.Duration) DriverOption {
	return func(d *Driver) {
		d.pollInterval = initial
		d.maxPollInterval = maxInterval
	}
}

// WithOperationTimeout bounds how long one create or delete may stay in progress.
func WithOperationTimeout(timeout time.Duration) DriverOption {
	return func(d *Driver) {
		d.timeout = timeout
	}
}

// NewDriver returns a Driver sending targetConfig with every request.
func NewDriver(backend Backend, targetConfig json.RawMessage, opts ...DriverOption) *Driver {
	d := &Driver{
		backend:         backend,
		targetConfig:    targetConfig,
		pollInterval:    2 * time.Second,
		maxPollInterval: 30 * time.Second,
		timeout:         45 * time.Minute,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Create resolves the spec's references, creates the resource and waits for it.
// The step name travels as the request label; provisioners that take a free-form
// name fall back to it. The handle's outputs are the resource's top-level scalar
// properties.
func (d *Driver) Create(ctx context.Context, spec pipeline.ResourceSpec, deps map[string]pipeline.ResourceHandle) (pipeline.ResourceHandle, error) {
	log := plugin.LoggerFromContext(ctx)

	props, err := spec.Resolve(deps)
	if err != nil {
		return pipeline.ResourceHandle{}, err
	}
	if _, ok := props["location"]; !ok && spec.Region != "" {
		props["location"] = spec.Region
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return pipeline.ResourceHandle{}, fmt.Errorf("failed to marshal %s properties: %w", spec.Kind, err)
	}

	result, err := d.backend.Create(ctx, &resource.CreateRequest{
		ResourceType: spec.Kind,
		Label:        spec.Name,
		Properties:   raw,
		TargetConfig: d.targetConfig,
	})
	if err != nil {
		return pipeline.ResourceHandle{}, err
	}
	if result == nil || result.ProgressResult == nil {
		return pipeline.ResourceHandle{}, fmt.Errorf("create of %s returned no progress", spec.Kind)
	}

	progress, err := d.await(ctx, spec.Kind, "create", result.ProgressResult)
	if err != nil {
		return pipeline.ResourceHandle{}, err
	}

	properties := progress.ResourceProperties
	if len(properties) == 0 {
		// Synchronous kinds may leave properties to a follow-up Read
		read, err := d.backend.Read(ctx, &resource.ReadRequest{
			ResourceType: spec.Kind,
			NativeID:     progress.NativeID,
			TargetConfig: d.targetConfig,
		})
		if err != nil {
			return pipeline.ResourceHandle{}, fmt.Errorf("failed to read %s after create: %w", spec.Kind, err)
		}
		properties = json.RawMessage(read.Properties)
	}

	outputs, err := scalarOutputs(properties)
	if err != nil {
		return pipeline.ResourceHandle{}, err
	}
	log.Debug("Resource created", "kind", spec.Kind, "nativeID", progress.NativeID)
	return pipeline.ResourceHandle{ID: progress.NativeID, Kind: spec.Kind, Outputs: outputs}, nil
}

// Delete removes the resource behind handle and waits for the deletion to finish.
func (d *Driver) Delete(ctx context.Context, handle pipeline.ResourceHandle) error {
	result, err := d.backend.Delete(ctx, &resource.DeleteRequest{
		ResourceType: handle.Kind,
		NativeID:     handle.ID,
		TargetConfig: d.targetConfig,
	})
	if err != nil {
		return err
	}
	if result == nil || result.ProgressResult == nil {
		return fmt.Errorf("delete of %s returned no progress", handle.Kind)
	}
	_, err = d.await(ctx, handle.Kind, "delete", result.ProgressResult)
	return err
}

// await polls Status with exponential backoff until the operation leaves
// InProgress, and turns a Failure into an *OperationError.
func (d *Driver) await(ctx context.Context, kind, operation string, progress *resource.ProgressResult) (*resource.ProgressResult, error) {
	log := plugin.LoggerFromContext(ctx)

	if progress.OperationStatus == resource.OperationStatusInProgress {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = d.pollInterval
		b.MaxInterval = d.maxPollInterval

		requestID, nativeID := progress.RequestID, progress.NativeID
		polled, err := backoff.Retry(ctx, func() (*resource.ProgressResult, error) {
			status, err := d.backend.Status(ctx, &resource.StatusRequest{
				RequestID:    requestID,
				NativeID:     nativeID,
				ResourceType: kind,
				TargetConfig: d.targetConfig,
			})
			if err != nil {
				return nil, backoff.Permanent(err)
			}
			if status == nil || status.ProgressResult == nil {
				return nil, backoff.Permanent(fmt.Errorf("status of %s returned no progress", kind))
			}
			if status.ProgressResult.OperationStatus == resource.OperationStatusInProgress {
				log.Debug("Operation in progress", "kind", kind, "operation", operation, "nativeID", nativeID)
				return nil, errStillRunning
			}
			return status.ProgressResult, nil
		}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(d.timeout))
		if err != nil {
			return nil, fmt.Errorf("waiting for %s of %s: %w", operation, kind, err)
		}
		progress = polled
	}

	if progress.OperationStatus == resource.OperationStatusFailure {
		return nil, &OperationError{
			Kind:      kind,
			Operation: operation,
			Code:      progress.ErrorCode,
			Message:   progress.StatusMessage,
		}
	}
	return progress, nil
}

// scalarOutputs flattens the top-level strings, numbers and booleans of a
// properties document into handle outputs.
func scalarOutputs(properties json.RawMessage) (map[string]string, error) {
	outputs := make(map[string]string)
	if len(properties) == 0 {
		return outputs, nil
	}

	var props map[string]any
	if err := json.Unmarshal(properties, &props); err != nil {
		return nil, fmt.Errorf("failed to parse resource properties: %w", err)
	}
	for k, v := range props {
		switch val := v.(type) {
		case string:
			outputs[k] = val
		case float64, bool:
			outputs[k] = fmt.Sprint(val)
		}
	}
	return outputs, nil
}
