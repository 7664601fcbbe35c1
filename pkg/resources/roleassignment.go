// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/client"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/config"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/prov"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/registry"
	"github.com/platform-engineering-labs/formae/pkg/plugin"
	"github.com/platform-engineering-labs/formae/pkg/plugin/resource"
)

const ResourceTypeRoleAssignment = "Azure::Authorization::RoleAssignment"

// StorageBlobDataOwnerRoleID is the built-in role the function apps' identity holds
// on the storage account.
const StorageBlobDataOwnerRoleID = "b7e6dc6d-f1e8-4753-8033-0f276bb0955b"

// principalPropagationTimeout bounds how long a create waits for a freshly created
// identity to become visible to Azure RBAC.
var principalPropagationTimeout = 3 * time.Minute

func init() {
	registry.Register(ResourceTypeRoleAssignment, func(client *client.Client, cfg *config.Config) prov.Provisioner {
		return &RoleAssignment{client, cfg}
	})
}

// RoleAssignment is the provisioner for Azure Role Assignments.
type RoleAssignment struct {
	Client *client.Client
	Config *config.Config
}

// RoleDefinitionID expands a built-in role GUID into its subscription-scoped id.
func RoleDefinitionID(subscriptionID, roleID string) string {
	return fmt.Sprintf("/subscriptions/%s/providers/Microsoft.Authorization/roleDefinitions/%s", subscriptionID, roleID)
}

func serializeRoleAssignmentProperties(result armauthorization.RoleAssignment) (json.RawMessage, error) {
	props := make(map[string]any)

	if result.Name != nil {
		props["name"] = *result.Name
	}
	if p := result.Properties; p != nil {
		if p.Scope != nil {
			props["scope"] = *p.Scope
		}
		if p.PrincipalID != nil {
			props["principalId"] = *p.PrincipalID
		}
		if p.RoleDefinitionID != nil {
			props["roleDefinitionId"] = *p.RoleDefinitionID
		}
		if p.PrincipalType != nil {
			props["principalType"] = string(*p.PrincipalType)
		}
		if p.Description != nil {
			props["description"] = *p.Description
		}
	}
	if result.ID != nil {
		props["id"] = *result.ID
	}
	return json.Marshal(props)
}

func buildRoleAssignmentParams(props map[string]any) (armauthorization.RoleAssignmentCreateParameters, error) {
	principalID, err := requiredString(props, "principalId")
	if err != nil {
		return armauthorization.RoleAssignmentCreateParameters{}, err
	}
	roleDefinitionID, err := requiredString(props, "roleDefinitionId")
	if err != nil {
		return armauthorization.RoleAssignmentCreateParameters{}, err
	}

	params := armauthorization.RoleAssignmentCreateParameters{
		Properties: &armauthorization.RoleAssignmentProperties{
			PrincipalID:      stringPtr(principalID),
			RoleDefinitionID: stringPtr(roleDefinitionID),
			// Managed identities are service principals; saying so skips the
			// directory lookup that fails while the principal replicates.
			PrincipalType: to.Ptr(armauthorization.PrincipalTypeServicePrincipal),
		},
	}
	if principalType := optionalString(props, "principalType"); principalType != "" {
		params.Properties.PrincipalType = to.Ptr(armauthorization.PrincipalType(principalType))
	}
	if description := optionalString(props, "description"); description != "" {
		params.Properties.Description = stringPtr(description)
	}
	return params, nil
}

// roleAssignmentName returns the "name" property, or a fresh UUID when it is unset.
// Azure rejects role assignment names that are not UUIDs.
func roleAssignmentName(props map[string]any) (string, error) {
	name := optionalString(props, "name")
	if name == "" {
		return uuid.New().String(), nil
	}
	if _, err := uuid.Parse(name); err != nil {
		return "", fmt.Errorf("role assignment name %q must be a UUID", name)
	}
	return name, nil
}

// isPrincipalNotReady reports the transient error RBAC returns for a principal
// created moments ago.
func isPrincipalNotReady(err error) bool {
	return err != nil && strings.Contains(err.Error(), "PrincipalNotFound")
}

func (r *RoleAssignment) Create(ctx context.Context, request *resource.CreateRequest) (*resource.CreateResult, error) {
	log := plugin.LoggerFromContext(ctx)

	props, err := parseProperties(request.Properties)
	if err != nil {
		return nil, err
	}
	scope, err := requiredString(props, "scope")
	if err != nil {
		return nil, err
	}
	params, err := buildRoleAssignmentParams(props)
	if err != nil {
		return nil, err
	}

	name, err := roleAssignmentName(props)
	if err != nil {
		return nil, err
	}

	result, err := backoff.Retry(ctx, func() (armauthorization.RoleAssignmentsClientCreateResponse, error) {
		resp, err := r.Client.RoleAssignmentsClient.Create(ctx, scope, name, params, nil)
		if err != nil && !isPrincipalNotReady(err) {
			return resp, backoff.Permanent(err)
		}
		if err != nil {
			log.Debug("RoleAssignment principal not yet visible, retrying", "principalId", *params.Properties.PrincipalID)
		}
		return resp, err
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxElapsedTime(principalPropagationTimeout))
	if err != nil {
		return &resource.CreateResult{
			ProgressResult: failedProgress(resource.OperationCreate, "", "", err),
		}, fmt.Errorf("failed to create RoleAssignment: %w", err)
	}

	propsJSON, err := serializeRoleAssignmentProperties(result.RoleAssignment)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize RoleAssignment properties: %w", err)
	}
	return &resource.CreateResult{
		ProgressResult: successProgress(resource.OperationCreate, derefID(result.ID), "", propsJSON),
	}, nil
}

func (r *RoleAssignment) get(ctx context.Context, nativeID string) (json.RawMessage, string, error) {
	result, err := r.Client.RoleAssignmentsClient.GetByID(ctx, nativeID, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read RoleAssignment: %w", err)
	}
	propsJSON, err := serializeRoleAssignmentProperties(result.RoleAssignment)
	if err != nil {
		return nil, "", fmt.Errorf("failed to serialize RoleAssignment properties: %w", err)
	}
	return propsJSON, derefID(result.ID), nil
}

func (r *RoleAssignment) Read(ctx context.Context, request *resource.ReadRequest) (*resource.ReadResult, error) {
	propsJSON, _, err := r.get(ctx, request.NativeID)
	if err != nil {
		return &resource.ReadResult{ErrorCode: mapAzureErrorToOperationErrorCode(err)}, err
	}
	return &resource.ReadResult{Properties: string(propsJSON)}, nil
}

func (r *RoleAssignment) Update(ctx context.Context, request *resource.UpdateRequest) (*resource.UpdateResult, error) {
	// Role assignments are immutable; changes mean delete and recreate
	return &resource.UpdateResult{
		ProgressResult: &resource.ProgressResult{
			Operation:       resource.OperationUpdate,
			OperationStatus: resource.OperationStatusFailure,
			NativeID:        request.NativeID,
			ErrorCode:       resource.OperationErrorCodeGeneralServiceException,
			StatusMessage:   "RoleAssignments are immutable and cannot be updated. Delete and recreate instead.",
		},
	}, fmt.Errorf("RoleAssignments are immutable and cannot be updated")
}

func (r *RoleAssignment) Delete(ctx context.Context, request *resource.DeleteRequest) (*resource.DeleteResult, error) {
	_, err := r.Client.RoleAssignmentsClient.DeleteByID(ctx, request.NativeID, nil)
	return deleteResult(request.NativeID, "RoleAssignment", err)
}

func (r *RoleAssignment) Status(ctx context.Context, request *resource.StatusRequest) (*resource.StatusResult, error) {
	propsJSON, id, err := r.get(ctx, request.NativeID)
	return readStatus(request, propsJSON, id, err)
}

func (r *RoleAssignment) List(ctx context.Context, request *resource.ListRequest) (*resource.ListResult, error) {
	scope := request.AdditionalProperties["scope"]
	if scope == "" {
		if rgName := request.AdditionalProperties["resourceGroupName"]; rgName != "" {
			scope = fmt.Sprintf("/subscriptions/%s/resourceGroups/%s", r.Config.SubscriptionId, rgName)
		} else {
			scope = fmt.Sprintf("/subscriptions/%s", r.Config.SubscriptionId)
		}
	}

	// Skip assignments inherited from above the scope
	pager := r.Client.RoleAssignmentsClient.NewListForScopePager(scope, nil)
	var nativeIDs []string
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list role assignments at scope %s: %w", scope, err)
		}
		for _, assignment := range page.Value {
			if assignment.ID == nil || assignment.Properties == nil || assignment.Properties.Scope == nil {
				continue
			}
			if strings.HasPrefix(strings.ToLower(*assignment.Properties.Scope), strings.ToLower(scope)) {
				nativeIDs = append(nativeIDs, *assignment.ID)
			}
		}
	}
	return &resource.ListResult{NativeIDs: nativeIDs}, nil
}
