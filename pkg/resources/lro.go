// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/client"
	"github.com/platform-engineering-labs/formae/pkg/plugin/resource"
)

const (
	lroCreate = "create"
	lroUpdate = "update"
	lroDelete = "delete"
)

// lroRequestID is carried in ProgressResult.RequestID while an ARM long-running
// operation is in flight. The resume token is the poller state.
type lroRequestID struct {
	OperationType string `json:"operationType"`
	ResumeToken   string `json:"resumeToken"`
	NativeID      string `json:"nativeID,omitempty"`
}

func parseRequestID(requestID string) (lroRequestID, error) {
	var reqID lroRequestID
	if err := json.Unmarshal([]byte(requestID), &reqID); err != nil {
		return reqID, fmt.Errorf("failed to parse request ID: %w", err)
	}
	return reqID, nil
}

func operationType(op resource.Operation) string {
	switch op {
	case resource.OperationUpdate:
		return lroUpdate
	case resource.OperationDelete:
		return lroDelete
	default:
		return lroCreate
	}
}

func operationFor(opType string) resource.Operation {
	switch opType {
	case lroUpdate:
		return resource.OperationUpdate
	case lroDelete:
		return resource.OperationDelete
	default:
		return resource.OperationCreate
	}
}

// finalizer turns a completed ARM response into the native id and properties
// reported back to formae.
type finalizer[T any] func(T) (string, json.RawMessage, error)

// deleted is the finalizer for delete pollers.
func deleted[T any](nativeID string) finalizer[T] {
	return func(T) (string, json.RawMessage, error) {
		return nativeID, nil, nil
	}
}

func failedProgress(op resource.Operation, nativeID, requestID string, err error) *resource.ProgressResult {
	return &resource.ProgressResult{
		Operation:       op,
		OperationStatus: resource.OperationStatusFailure,
		NativeID:        nativeID,
		RequestID:       requestID,
		ErrorCode:       mapAzureErrorToOperationErrorCode(err),
		StatusMessage:   err.Error(),
	}
}

func successProgress(op resource.Operation, nativeID, requestID string, props json.RawMessage) *resource.ProgressResult {
	return &resource.ProgressResult{
		Operation:          op,
		OperationStatus:    resource.OperationStatusSuccess,
		NativeID:           nativeID,
		RequestID:          requestID,
		ResourceProperties: props,
	}
}

// startedProgress reports on a poller returned by a Begin* call: the final result
// when ARM finished inline, otherwise InProgress with the resume token.
func startedProgress[T any](ctx context.Context, op resource.Operation, poller *runtime.Poller[T], nativeID string, done finalizer[T]) (*resource.ProgressResult, error) {
	if poller.Done() {
		return completedProgress(ctx, op, poller, nativeID, "", done)
	}

	resumeToken, err := poller.ResumeToken()
	if err != nil {
		return nil, fmt.Errorf("failed to get resume token: %w", err)
	}

	reqIDJSON, err := json.Marshal(lroRequestID{
		OperationType: operationType(op),
		ResumeToken:   resumeToken,
		NativeID:      nativeID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request ID: %w", err)
	}

	return &resource.ProgressResult{
		Operation:       op,
		OperationStatus: resource.OperationStatusInProgress,
		RequestID:       string(reqIDJSON),
		NativeID:        nativeID,
	}, nil
}

func completedProgress[T any](ctx context.Context, op resource.Operation, poller *runtime.Poller[T], nativeID, requestID string, done finalizer[T]) (*resource.ProgressResult, error) {
	result, err := poller.Result(ctx)
	if err != nil {
		if op == resource.OperationDelete && isDeleteSuccessError(err) {
			return successProgress(op, nativeID, requestID, nil), nil
		}
		return failedProgress(op, nativeID, requestID, err), fmt.Errorf("failed to get %s result: %w", operationType(op), err)
	}

	id, props, err := done(result)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = nativeID
	}
	return successProgress(op, id, requestID, props), nil
}

// resumeStatus is the Status body shared by every provisioner with long-running
// operations: rebuild the poller, advance it once, report where it stands.
// Operation failures are reported in the result, not as an error.
func resumeStatus[T any](ctx context.Context, c *client.Client, request *resource.StatusRequest, reqID lroRequestID, done finalizer[T]) (*resource.StatusResult, error) {
	op := operationFor(reqID.OperationType)

	poller, err := client.ResumePoller[T](c, reqID.ResumeToken)
	if err != nil {
		return &resource.StatusResult{
			ProgressResult: &resource.ProgressResult{
				Operation:       op,
				OperationStatus: resource.OperationStatusFailure,
				RequestID:       request.RequestID,
				ErrorCode:       resource.OperationErrorCodeGeneralServiceException,
			},
		}, fmt.Errorf("failed to resume poller from token: %w", err)
	}

	if !poller.Done() {
		if _, err := poller.Poll(ctx); err != nil {
			if op == resource.OperationDelete && isDeleteSuccessError(err) {
				return &resource.StatusResult{ProgressResult: successProgress(op, reqID.NativeID, request.RequestID, nil)}, nil
			}
			return &resource.StatusResult{ProgressResult: failedProgress(op, reqID.NativeID, request.RequestID, err)}, nil
		}
	}

	if poller.Done() {
		progress, err := completedProgress(ctx, op, poller, reqID.NativeID, request.RequestID, done)
		if progress != nil && progress.OperationStatus == resource.OperationStatusFailure {
			return &resource.StatusResult{ProgressResult: progress}, nil
		}
		if err != nil {
			return nil, err
		}
		return &resource.StatusResult{ProgressResult: progress}, nil
	}

	return &resource.StatusResult{
		ProgressResult: &resource.ProgressResult{
			Operation:       op,
			OperationStatus: resource.OperationStatusInProgress,
			RequestID:       request.RequestID,
			NativeID:        reqID.NativeID,
		},
	}, nil
}

// badRequestIDStatus reports a RequestID that could not be parsed or routed.
func badRequestIDStatus(request *resource.StatusRequest, err error) (*resource.StatusResult, error) {
	return &resource.StatusResult{
		ProgressResult: &resource.ProgressResult{
			OperationStatus: resource.OperationStatusFailure,
			RequestID:       request.RequestID,
			ErrorCode:       resource.OperationErrorCodeGeneralServiceException,
		},
	}, err
}

// deleteResult answers a synchronous delete; NotFound counts as success.
func deleteResult(nativeID, kind string, err error) (*resource.DeleteResult, error) {
	if err != nil && !isDeleteSuccessError(err) {
		return &resource.DeleteResult{
			ProgressResult: failedProgress(resource.OperationDelete, nativeID, "", err),
		}, fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	return &resource.DeleteResult{
		ProgressResult: successProgress(resource.OperationDelete, nativeID, "", nil),
	}, nil
}

// readStatus answers Status for kinds whose operations are synchronous by reading
// the current state.
func readStatus(request *resource.StatusRequest, props json.RawMessage, nativeID string, err error) (*resource.StatusResult, error) {
	if err != nil {
		return &resource.StatusResult{
			ProgressResult: &resource.ProgressResult{
				OperationStatus: resource.OperationStatusFailure,
				RequestID:       request.RequestID,
				ErrorCode:       mapAzureErrorToOperationErrorCode(err),
			},
		}, err
	}
	return &resource.StatusResult{
		ProgressResult: &resource.ProgressResult{
			OperationStatus:    resource.OperationStatusSuccess,
			RequestID:          request.RequestID,
			NativeID:           nativeID,
			ResourceProperties: props,
		},
	}, nil
}
