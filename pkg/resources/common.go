// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package resources

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/platform-engineering-labs/formae/pkg/model"
	"github.com/platform-engineering-labs/formae/pkg/plugin/resource"
)

// azureTagsToFormaeTags converts Azure SDK tags map to Formae Tag format.
// Returns nil if the input map is empty.
func azureTagsToFormaeTags(azureTags map[string]*string) []map[string]string {
	if len(azureTags) == 0 {
		return nil
	}
	tags := make([]map[string]string, 0, len(azureTags))
	for k, v := range azureTags {
		if v != nil {
			tags = append(tags, map[string]string{
				"Key":   k,
				"Value": *v,
			})
		}
	}
	return tags
}

// formaeTagsToAzureTags converts Formae tags from resource properties to Azure SDK format.
// Returns nil if no tags are present.
func formaeTagsToAzureTags(properties []byte) map[string]*string {
	tags := model.GetTagsFromProperties(properties)
	if len(tags) == 0 {
		return nil
	}
	azureTags := make(map[string]*string)
	for _, tag := range tags {
		val := tag.Value
		azureTags[tag.Key] = &val
	}
	return azureTags
}

// splitResourceID splits an Azure resource ID into key/value segments with the keys
// lowercased, since Azure is inconsistent about casing.
// /subscriptions/x/resourceGroups/y/providers/Microsoft.Web/sites/z gives
// subscriptions=x, resourcegroups=y, providers=Microsoft.Web, sites=z.
func splitResourceID(resourceID string) map[string]string {
	parts := make(map[string]string)

	segments := []string{}
	for _, seg := range strings.Split(resourceID, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}

	for i := 0; i < len(segments)-1; i += 2 {
		parts[strings.ToLower(segments[i])] = segments[i+1]
	}

	return parts
}

// idSegments pulls the resource group and the named segments out of an ARM id.
func idSegments(nativeID string, keys ...string) (string, []string, error) {
	parts := splitResourceID(nativeID)
	rgName := parts["resourcegroups"]
	if rgName == "" {
		return "", nil, fmt.Errorf("invalid NativeID: could not extract resource group name from %s", nativeID)
	}
	values := make([]string, 0, len(keys))
	for _, key := range keys {
		v := parts[key]
		if v == "" {
			return "", nil, fmt.Errorf("invalid NativeID: could not extract %s from %s", key, nativeID)
		}
		values = append(values, v)
	}
	return rgName, values, nil
}

// mapAzureErrorToOperationErrorCode maps Azure SDK errors to OperationErrorCode.
// Typed ResponseErrors are classified by status code; anything else falls back to
// matching the error text.
func mapAzureErrorToOperationErrorCode(err error) resource.OperationErrorCode {
	if err == nil {
		return ""
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusNotFound:
			return resource.OperationErrorCodeNotFound
		case http.StatusForbidden:
			return resource.OperationErrorCodeAccessDenied
		case http.StatusUnauthorized:
			return resource.OperationErrorCodeInvalidCredentials
		case http.StatusConflict:
			return resource.OperationErrorCodeResourceConflict
		case http.StatusTooManyRequests:
			return resource.OperationErrorCodeThrottling
		case http.StatusBadRequest:
			return resource.OperationErrorCodeInvalidRequest
		case http.StatusInternalServerError:
			return resource.OperationErrorCodeServiceInternalError
		case http.StatusGatewayTimeout, http.StatusRequestTimeout:
			return resource.OperationErrorCodeServiceTimeout
		}
	}

	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "ResourceGroupNotFound"),
		strings.Contains(errStr, "ResourceNotFound"),
		strings.Contains(errStr, "NotFound"),
		strings.Contains(errStr, "404"):
		return resource.OperationErrorCodeNotFound

	case strings.Contains(errStr, "AuthorizationFailed"),
		strings.Contains(errStr, "Forbidden"),
		strings.Contains(errStr, "403"):
		return resource.OperationErrorCodeAccessDenied

	case strings.Contains(errStr, "Unauthorized"),
		strings.Contains(errStr, "AuthenticationFailed"),
		strings.Contains(errStr, "InvalidAuthenticationToken"),
		strings.Contains(errStr, "401"):
		return resource.OperationErrorCodeInvalidCredentials

	case strings.Contains(errStr, "Conflict"),
		strings.Contains(errStr, "ResourceExists"),
		strings.Contains(errStr, "409"):
		return resource.OperationErrorCodeResourceConflict

	case strings.Contains(errStr, "TooManyRequests"),
		strings.Contains(errStr, "Throttling"),
		strings.Contains(errStr, "429"):
		return resource.OperationErrorCodeThrottling

	case strings.Contains(errStr, "InternalServerError"),
		strings.Contains(errStr, "500"):
		return resource.OperationErrorCodeServiceInternalError

	case strings.Contains(errStr, "Timeout"),
		strings.Contains(errStr, "RequestTimeout"),
		strings.Contains(errStr, "GatewayTimeout"):
		return resource.OperationErrorCodeServiceTimeout

	case strings.Contains(errStr, "QuotaExceeded"),
		strings.Contains(errStr, "LimitExceeded"):
		return resource.OperationErrorCodeServiceLimitExceeded

	case strings.Contains(errStr, "InvalidParameter"),
		strings.Contains(errStr, "InvalidRequest"),
		strings.Contains(errStr, "BadRequest"),
		strings.Contains(errStr, "400"):
		return resource.OperationErrorCodeInvalidRequest

	case strings.Contains(errStr, "connection refused"),
		strings.Contains(errStr, "network"),
		strings.Contains(errStr, "dial"):
		return resource.OperationErrorCodeNetworkFailure

	default:
		return resource.OperationErrorCodeGeneralServiceException
	}
}

// derefID returns the ARM id of a response, or "" when the response carried none.
func derefID(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}

// stringPtr returns a pointer to a string. Useful for Azure SDK calls.
func stringPtr(s string) *string {
	return &s
}

// isDeleteSuccessError reports whether a delete error means the resource is already
// gone, which makes deletes idempotent.
func isDeleteSuccessError(err error) bool {
	if err == nil {
		return false
	}
	return mapAzureErrorToOperationErrorCode(err) == resource.OperationErrorCodeNotFound
}

// parseProperties decodes request properties into a generic map.
func parseProperties(raw json.RawMessage) (map[string]any, error) {
	var props map[string]any
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, fmt.Errorf("failed to parse resource properties: %w", err)
	}
	if props == nil {
		props = map[string]any{}
	}
	return props, nil
}

func requiredString(props map[string]any, key string) (string, error) {
	v, ok := props[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

func optionalString(props map[string]any, key string) string {
	v, _ := props[key].(string)
	return v
}

// nameOrLabel returns the "name" property, falling back to the request label.
func nameOrLabel(props map[string]any, label string) string {
	if name := optionalString(props, "name"); name != "" {
		return name
	}
	return label
}

// normalizeLocation lowercases and strips spaces; ARM answers "West US 2" for some
// types and "westus2" for others.
func normalizeLocation(location string) string {
	return strings.ToLower(strings.ReplaceAll(location, " ", ""))
}
