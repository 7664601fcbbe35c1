// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package resources

import (
	"errors"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/platform-engineering-labs/formae/pkg/plugin/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitResourceID(t *testing.T) {
	t.Parallel()

	parts := splitResourceID("/subscriptions/sub/resourceGroups/rg/providers/Microsoft.Web/sites/app/hostNameBindings/www.example.com")

	assert.Equal(t, "sub", parts["subscriptions"])
	assert.Equal(t, "rg", parts["resourcegroups"])
	assert.Equal(t, "Microsoft.Web", parts["providers"])
	assert.Equal(t, "app", parts["sites"])
	assert.Equal(t, "www.example.com", parts["hostnamebindings"])
}

func TestIdSegments(t *testing.T) {
	t.Parallel()

	rg, names, err := idSegments("/subscriptions/sub/resourceGroups/rg/providers/Microsoft.Web/serverfarms/plan", "serverfarms")
	require.NoError(t, err)
	assert.Equal(t, "rg", rg)
	assert.Equal(t, []string{"plan"}, names)

	_, _, err = idSegments("/subscriptions/sub/resourceGroups/rg", "serverfarms")
	assert.ErrorContains(t, err, "serverfarms")

	_, _, err = idSegments("/subscriptions/sub")
	assert.ErrorContains(t, err, "resource group")
}

func TestMapAzureErrorToOperationErrorCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want resource.OperationErrorCode
	}{
		{"nil", nil, ""},
		{"response 404", &azcore.ResponseError{StatusCode: http.StatusNotFound}, resource.OperationErrorCodeNotFound},
		{"response 409", &azcore.ResponseError{StatusCode: http.StatusConflict}, resource.OperationErrorCodeResourceConflict},
		{"response 429", &azcore.ResponseError{StatusCode: http.StatusTooManyRequests}, resource.OperationErrorCodeThrottling},
		{"text not found", errors.New("ResourceGroupNotFound: rg"), resource.OperationErrorCodeNotFound},
		{"text forbidden", errors.New("AuthorizationFailed"), resource.OperationErrorCodeAccessDenied},
		{"text quota", errors.New("QuotaExceeded for plan"), resource.OperationErrorCodeServiceLimitExceeded},
		{"unknown", errors.New("something odd"), resource.OperationErrorCodeGeneralServiceException},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, mapAzureErrorToOperationErrorCode(tt.err))
		})
	}
}

func TestIsDeleteSuccessError(t *testing.T) {
	t.Parallel()

	assert.False(t, isDeleteSuccessError(nil))
	assert.True(t, isDeleteSuccessError(&azcore.ResponseError{StatusCode: http.StatusNotFound}))
	assert.False(t, isDeleteSuccessError(errors.New("Conflict")))
}

func TestParseProperties(t *testing.T) {
	t.Parallel()

	props, err := parseProperties([]byte(`{"name":"app","location":"westeurope"}`))
	require.NoError(t, err)
	assert.Equal(t, "app", nameOrLabel(props, "label"))

	props, err = parseProperties([]byte(`null`))
	require.NoError(t, err)
	assert.Empty(t, props)
	assert.Equal(t, "label", nameOrLabel(props, "label"))

	_, err = parseProperties([]byte(`{`))
	assert.Error(t, err)
}

func TestRequiredString(t *testing.T) {
	t.Parallel()

	props := map[string]any{"location": "westeurope", "empty": "", "number": 1.0}

	v, err := requiredString(props, "location")
	require.NoError(t, err)
	assert.Equal(t, "westeurope", v)

	_, err = requiredString(props, "empty")
	assert.EqualError(t, err, "empty is required")
	_, err = requiredString(props, "number")
	assert.Error(t, err)
	assert.Equal(t, "", optionalString(props, "missing"))
}

func TestNormalizeLocation(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "westus2", normalizeLocation("West US 2"))
	assert.Equal(t, "westeurope", normalizeLocation("westeurope"))
}

func TestTagConversion(t *testing.T) {
	t.Parallel()

	assert.Nil(t, azureTagsToFormaeTags(nil))
	tags := azureTagsToFormaeTags(map[string]*string{"env": stringPtr("demo")})
	assert.Equal(t, []map[string]string{{"Key": "env", "Value": "demo"}}, tags)

	assert.Nil(t, formaeTagsToAzureTags([]byte(`{"location":"westeurope"}`)))
}

func TestDerefID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", derefID(nil))
	assert.Equal(t, "/subscriptions/sub/resourceGroups/rg", derefID(stringPtr("/subscriptions/sub/resourceGroups/rg")))
}
