// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/client"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/config"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/prov"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/registry"
	"github.com/platform-engineering-labs/formae/pkg/plugin"
	"github.com/platform-engineering-labs/formae/pkg/plugin/resource"
)

const ResourceTypeResourceGroup = "Azure::Resources::ResourceGroup"

func init() {
	registry.Register(ResourceTypeResourceGroup, func(client *client.Client, cfg *config.Config) prov.Provisioner {
		return &ResourceGroup{client, cfg}
	})
}

// ResourceGroup is the root of every demo run; deleting it sweeps up anything a
// failed teardown left behind.
type ResourceGroup struct {
	Client *client.Client
	Config *config.Config
}

func serializeResourceGroupProperties(result armresources.ResourceGroup, rgName string) (json.RawMessage, error) {
	props := map[string]any{"name": rgName}

	if result.Location != nil {
		props["location"] = normalizeLocation(*result.Location)
	}
	if tags := azureTagsToFormaeTags(result.Tags); tags != nil {
		props["Tags"] = tags
	}
	if result.ManagedBy != nil {
		props["managedBy"] = *result.ManagedBy
	}
	if result.Properties != nil && result.Properties.ProvisioningState != nil {
		props["provisioningState"] = *result.Properties.ProvisioningState
	}
	if result.ID != nil {
		props["id"] = *result.ID
	}

	return json.Marshal(props)
}

func (rg *ResourceGroup) Create(ctx context.Context, request *resource.CreateRequest) (*resource.CreateResult, error) {
	props, err := parseProperties(request.Properties)
	if err != nil {
		return nil, err
	}
	location, err := requiredString(props, "location")
	if err != nil {
		return nil, err
	}
	rgName := nameOrLabel(props, request.Label)

	params := armresources.ResourceGroup{
		Location: &location,
		Tags:     formaeTagsToAzureTags(request.Properties),
	}
	if managedBy := optionalString(props, "managedBy"); managedBy != "" {
		params.ManagedBy = &managedBy
	}

	// Resource group creation is synchronous
	result, err := rg.Client.ResourceGroupsClient.CreateOrUpdate(ctx, rgName, params, nil)
	if err != nil {
		return &resource.CreateResult{
			ProgressResult: failedProgress(resource.OperationCreate, "", "", err),
		}, fmt.Errorf("failed to create resource group: %w", err)
	}

	propsJSON, err := serializeResourceGroupProperties(result.ResourceGroup, rgName)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize resource group properties: %w", err)
	}

	return &resource.CreateResult{
		ProgressResult: successProgress(resource.OperationCreate, derefID(result.ID), "", propsJSON),
	}, nil
}

func (rg *ResourceGroup) Update(ctx context.Context, request *resource.UpdateRequest) (*resource.UpdateResult, error) {
	rgName, _, err := idSegments(request.NativeID)
	if err != nil {
		return nil, err
	}
	props, err := parseProperties(request.DesiredProperties)
	if err != nil {
		return nil, err
	}
	location, err := requiredString(props, "location")
	if err != nil {
		return nil, err
	}

	// managedBy is create-only; only tags change here
	result, err := rg.Client.ResourceGroupsClient.CreateOrUpdate(ctx, rgName, armresources.ResourceGroup{
		Location: &location,
		Tags:     formaeTagsToAzureTags(request.DesiredProperties),
	}, nil)
	if err != nil {
		return &resource.UpdateResult{
			ProgressResult: failedProgress(resource.OperationUpdate, request.NativeID, "", err),
		}, fmt.Errorf("failed to update resource group: %w", err)
	}

	propsJSON, err := serializeResourceGroupProperties(result.ResourceGroup, rgName)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize resource group properties: %w", err)
	}
	return &resource.UpdateResult{
		ProgressResult: successProgress(resource.OperationUpdate, derefID(result.ID), "", propsJSON),
	}, nil
}

func (rg *ResourceGroup) Delete(ctx context.Context, request *resource.DeleteRequest) (*resource.DeleteResult, error) {
	rgName, _, err := idSegments(request.NativeID)
	if err != nil {
		return nil, err
	}

	poller, err := rg.Client.ResourceGroupsClient.BeginDelete(ctx, rgName, nil)
	if err != nil {
		return deleteResult(request.NativeID, "resource group", err)
	}

	progress, err := startedProgress(ctx, resource.OperationDelete, poller, request.NativeID,
		deleted[armresources.ResourceGroupsClientDeleteResponse](request.NativeID))
	return &resource.DeleteResult{ProgressResult: progress}, err
}

func (rg *ResourceGroup) Status(ctx context.Context, request *resource.StatusRequest) (*resource.StatusResult, error) {
	reqID, err := parseRequestID(request.RequestID)
	if err != nil {
		return badRequestIDStatus(request, err)
	}
	if reqID.OperationType != lroDelete {
		return badRequestIDStatus(request, fmt.Errorf("unknown operation type: %s", reqID.OperationType))
	}
	return resumeStatus(ctx, rg.Client, request, reqID,
		deleted[armresources.ResourceGroupsClientDeleteResponse](reqID.NativeID))
}

func (rg *ResourceGroup) Read(ctx context.Context, request *resource.ReadRequest) (*resource.ReadResult, error) {
	rgName, _, err := idSegments(request.NativeID)
	if err != nil {
		return nil, err
	}

	result, err := rg.Client.ResourceGroupsClient.Get(ctx, rgName, nil)
	if err != nil {
		return &resource.ReadResult{
			ErrorCode: mapAzureErrorToOperationErrorCode(err),
		}, fmt.Errorf("failed to read resource group: %w", err)
	}

	propsJSON, err := serializeResourceGroupProperties(result.ResourceGroup, rgName)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize resource group properties: %w", err)
	}
	return &resource.ReadResult{Properties: string(propsJSON)}, nil
}

func (rg *ResourceGroup) List(ctx context.Context, request *resource.ListRequest) (*resource.ListResult, error) {
	log := plugin.LoggerFromContext(ctx)

	// Scope the listing to one group when asked, so the CLI can check a run's leftovers.
	if name := request.AdditionalProperties["resourceGroupName"]; name != "" {
		result, err := rg.Client.ResourceGroupsClient.Get(ctx, name, nil)
		if err != nil {
			if isDeleteSuccessError(err) {
				return &resource.ListResult{}, nil
			}
			return nil, fmt.Errorf("failed to get resource group %s: %w", name, err)
		}
		if result.ID == nil {
			return &resource.ListResult{}, nil
		}
		return &resource.ListResult{NativeIDs: []string{*result.ID}}, nil
	}

	pager := rg.Client.ResourceGroupsClient.NewListPager(nil)
	var nativeIDs []string
	pageNum := 0
	for pager.More() {
		pageNum++
		page, err := pager.NextPage(ctx)
		if err != nil {
			log.Error("ResourceGroup.List failed", "page", pageNum, "error", err)
			return nil, fmt.Errorf("failed to list resource groups: %w", err)
		}
		for _, group := range page.Value {
			if group.ID != nil {
				nativeIDs = append(nativeIDs, *group.ID)
			}
		}
	}

	log.Debug("ResourceGroup.List completed", "totalPages", pageNum, "totalItems", len(nativeIDs))
	return &resource.ListResult{NativeIDs: nativeIDs}, nil
}
