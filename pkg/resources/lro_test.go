// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package resources

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/platform-engineering-labs/formae/pkg/plugin/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestID(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(lroRequestID{OperationType: lroDelete, ResumeToken: "token", NativeID: "/id"})
	require.NoError(t, err)

	reqID, err := parseRequestID(string(raw))
	require.NoError(t, err)
	assert.Equal(t, lroDelete, reqID.OperationType)
	assert.Equal(t, "token", reqID.ResumeToken)
	assert.Equal(t, "/id", reqID.NativeID)

	_, err = parseRequestID("not-json")
	assert.Error(t, err)
}

func TestOperationTypeRoundTrip(t *testing.T) {
	t.Parallel()

	for _, op := range []resource.Operation{resource.OperationCreate, resource.OperationUpdate, resource.OperationDelete} {
		assert.Equal(t, op, operationFor(operationType(op)))
	}
}

func TestDeleteResult(t *testing.T) {
	t.Parallel()

	result, err := deleteResult("/id", "thing", nil)
	require.NoError(t, err)
	assert.Equal(t, resource.OperationStatusSuccess, result.ProgressResult.OperationStatus)

	result, err = deleteResult("/id", "thing", &azcore.ResponseError{StatusCode: http.StatusNotFound})
	require.NoError(t, err)
	assert.Equal(t, resource.OperationStatusSuccess, result.ProgressResult.OperationStatus)

	result, err = deleteResult("/id", "thing", errors.New("Conflict: still in use"))
	require.Error(t, err)
	assert.Equal(t, resource.OperationStatusFailure, result.ProgressResult.OperationStatus)
	assert.Equal(t, resource.OperationErrorCodeResourceConflict, result.ProgressResult.ErrorCode)
	assert.Equal(t, "/id", result.ProgressResult.NativeID)
}

func TestReadStatus(t *testing.T) {
	t.Parallel()

	request := &resource.StatusRequest{RequestID: "req"}

	result, err := readStatus(request, json.RawMessage(`{"id":"/id"}`), "/id", nil)
	require.NoError(t, err)
	assert.Equal(t, resource.OperationStatusSuccess, result.ProgressResult.OperationStatus)
	assert.Equal(t, "/id", result.ProgressResult.NativeID)
	assert.JSONEq(t, `{"id":"/id"}`, string(result.ProgressResult.ResourceProperties))

	result, err = readStatus(request, nil, "", errors.New("ResourceNotFound"))
	require.Error(t, err)
	assert.Equal(t, resource.OperationStatusFailure, result.ProgressResult.OperationStatus)
	assert.Equal(t, resource.OperationErrorCodeNotFound, result.ProgressResult.ErrorCode)
}

func TestBadRequestIDStatus(t *testing.T) {
	t.Parallel()

	result, err := badRequestIDStatus(&resource.StatusRequest{RequestID: "x"}, errors.New("bad"))
	require.Error(t, err)
	assert.Equal(t, resource.OperationStatusFailure, result.ProgressResult.OperationStatus)
	assert.Equal(t, "x", result.ProgressResult.RequestID)
}
