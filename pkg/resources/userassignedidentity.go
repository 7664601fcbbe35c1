// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/msi/armmsi"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/client"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/config"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/prov"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/registry"
	"github.com/platform-engineering-labs/formae/pkg/plugin/resource"
)

const ResourceTypeUserAssignedIdentity = "Azure::ManagedIdentity::UserAssignedIdentity"

func init() {
	registry.Register(ResourceTypeUserAssignedIdentity, func(client *client.Client, cfg *config.Config) prov.Provisioner {
		return &UserAssignedIdentity{client, cfg}
	})
}

// UserAssignedIdentity is the identity the function apps use to reach storage.
type UserAssignedIdentity struct {
	Client *client.Client
	Config *config.Config
}

func serializeUserAssignedIdentityProperties(result armmsi.Identity, rgName, identityName string) (json.RawMessage, error) {
	props := map[string]any{
		"resourceGroupName": rgName,
		"name":              identityName,
	}
	if result.Name != nil {
		props["name"] = *result.Name
	}
	if result.Location != nil {
		props["location"] = normalizeLocation(*result.Location)
	}

	// Output-only; principalId feeds the role assignment, clientId the app settings
	if p := result.Properties; p != nil {
		if p.PrincipalID != nil {
			props["principalId"] = *p.PrincipalID
		}
		if p.ClientID != nil {
			props["clientId"] = *p.ClientID
		}
		if p.TenantID != nil {
			props["tenantId"] = *p.TenantID
		}
	}
	if tags := azureTagsToFormaeTags(result.Tags); tags != nil {
		props["Tags"] = tags
	}
	if result.ID != nil {
		props["id"] = *result.ID
	}
	return json.Marshal(props)
}

func (u *UserAssignedIdentity) Create(ctx context.Context, request *resource.CreateRequest) (*resource.CreateResult, error) {
	props, err := parseProperties(request.Properties)
	if err != nil {
		return nil, err
	}
	rgName, err := requiredString(props, "resourceGroupName")
	if err != nil {
		return nil, err
	}
	location, err := requiredString(props, "location")
	if err != nil {
		return nil, err
	}
	identityName := nameOrLabel(props, request.Label)

	// User assigned identity creation is synchronous
	result, err := u.Client.UserAssignedIdentitiesClient.CreateOrUpdate(ctx, rgName, identityName, armmsi.Identity{
		Location: stringPtr(location),
		Tags:     formaeTagsToAzureTags(request.Properties),
	}, nil)
	if err != nil {
		return &resource.CreateResult{
			ProgressResult: failedProgress(resource.OperationCreate, "", "", err),
		}, fmt.Errorf("failed to create UserAssignedIdentity: %w", err)
	}

	propsJSON, err := serializeUserAssignedIdentityProperties(result.Identity, rgName, identityName)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize UserAssignedIdentity properties: %w", err)
	}
	return &resource.CreateResult{
		ProgressResult: successProgress(resource.OperationCreate, derefID(result.ID), "", propsJSON),
	}, nil
}

func (u *UserAssignedIdentity) get(ctx context.Context, nativeID string) (json.RawMessage, string, error) {
	rgName, names, err := idSegments(nativeID, "userassignedidentities")
	if err != nil {
		return nil, "", err
	}
	result, err := u.Client.UserAssignedIdentitiesClient.Get(ctx, rgName, names[0], nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read UserAssignedIdentity: %w", err)
	}
	propsJSON, err := serializeUserAssignedIdentityProperties(result.Identity, rgName, names[0])
	if err != nil {
		return nil, "", fmt.Errorf("failed to serialize UserAssignedIdentity properties: %w", err)
	}
	return propsJSON, derefID(result.ID), nil
}

func (u *UserAssignedIdentity) Read(ctx context.Context, request *resource.ReadRequest) (*resource.ReadResult, error) {
	propsJSON, _, err := u.get(ctx, request.NativeID)
	if err != nil {
		return &resource.ReadResult{ErrorCode: mapAzureErrorToOperationErrorCode(err)}, err
	}
	return &resource.ReadResult{Properties: string(propsJSON)}, nil
}

func (u *UserAssignedIdentity) Update(ctx context.Context, request *resource.UpdateRequest) (*resource.UpdateResult, error) {
	rgName, names, err := idSegments(request.NativeID, "userassignedidentities")
	if err != nil {
		return nil, err
	}

	// Only tags can be updated for user assigned identities
	result, err := u.Client.UserAssignedIdentitiesClient.Update(ctx, rgName, names[0], armmsi.IdentityUpdate{
		Tags: formaeTagsToAzureTags(request.DesiredProperties),
	}, nil)
	if err != nil {
		return &resource.UpdateResult{
			ProgressResult: failedProgress(resource.OperationUpdate, request.NativeID, "", err),
		}, fmt.Errorf("failed to update UserAssignedIdentity: %w", err)
	}

	propsJSON, err := serializeUserAssignedIdentityProperties(result.Identity, rgName, names[0])
	if err != nil {
		return nil, fmt.Errorf("failed to serialize UserAssignedIdentity properties: %w", err)
	}
	return &resource.UpdateResult{
		ProgressResult: successProgress(resource.OperationUpdate, derefID(result.ID), "", propsJSON),
	}, nil
}

func (u *UserAssignedIdentity) Delete(ctx context.Context, request *resource.DeleteRequest) (*resource.DeleteResult, error) {
	rgName, names, err := idSegments(request.NativeID, "userassignedidentities")
	if err != nil {
		return nil, err
	}

	// User assigned identity deletion is synchronous
	_, err = u.Client.UserAssignedIdentitiesClient.Delete(ctx, rgName, names[0], nil)
	return deleteResult(request.NativeID, "UserAssignedIdentity", err)
}

func (u *UserAssignedIdentity) Status(ctx context.Context, request *resource.StatusRequest) (*resource.StatusResult, error) {
	// Operations are synchronous; answer with the current state
	propsJSON, id, err := u.get(ctx, request.NativeID)
	return readStatus(request, propsJSON, id, err)
}

func (u *UserAssignedIdentity) List(ctx context.Context, request *resource.ListRequest) (*resource.ListResult, error) {
	rgName := request.AdditionalProperties["resourceGroupName"]
	if rgName == "" {
		return nil, fmt.Errorf("resourceGroupName is required in AdditionalProperties for listing UserAssignedIdentities")
	}

	pager := u.Client.UserAssignedIdentitiesClient.NewListByResourceGroupPager(rgName, nil)
	var nativeIDs []string
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list user assigned identities in resource group %s: %w", rgName, err)
		}
		for _, identity := range page.Value {
			if identity.ID != nil {
				nativeIDs = append(nativeIDs, *identity.ID)
			}
		}
	}
	return &resource.ListResult{NativeIDs: nativeIDs}, nil
}
