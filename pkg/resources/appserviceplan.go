// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v2"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/client"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/config"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/prov"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/registry"
	"github.com/platform-engineering-labs/formae/pkg/plugin/resource"
)

const ResourceTypeAppServicePlan = "Azure::Web::ServerFarm"

func init() {
	registry.Register(ResourceTypeAppServicePlan, func(client *client.Client, cfg *config.Config) prov.Provisioner {
		return &AppServicePlan{client, cfg}
	})
}

// AppServicePlan is the provisioner for App Service plans (server farms).
type AppServicePlan struct {
	Client *client.Client
	Config *config.Config
}

// buildAppServicePlanParams maps properties onto a Plan. Managed certificates are
// not offered on Free or Shared plans, so the default is Basic B1.
func buildAppServicePlanParams(props map[string]any, location string) armappservice.Plan {
	skuName, skuTier := "B1", "Basic"
	var capacity *int32
	if sku, ok := props["sku"].(map[string]any); ok {
		if v, ok := sku["name"].(string); ok && v != "" {
			skuName = v
		}
		if v, ok := sku["tier"].(string); ok && v != "" {
			skuTier = v
		}
		if v, ok := sku["capacity"].(float64); ok && v > 0 {
			capacity = to.Ptr(int32(v))
		}
	}

	kind := "app"
	reserved := false
	if v, ok := props["reserved"].(bool); ok && v {
		kind = "linux"
		reserved = true
	}
	if v := optionalString(props, "kind"); v != "" {
		kind = v
	}

	return armappservice.Plan{
		Location: stringPtr(location),
		Kind:     stringPtr(kind),
		SKU: &armappservice.SKUDescription{
			Name:     stringPtr(skuName),
			Tier:     stringPtr(skuTier),
			Capacity: capacity,
		},
		Properties: &armappservice.PlanProperties{
			Reserved: to.Ptr(reserved),
		},
	}
}

func serializeAppServicePlanProperties(result armappservice.Plan, rgName, planName string) (json.RawMessage, error) {
	props := map[string]any{
		"resourceGroupName": rgName,
		"name":              planName,
	}
	if result.Location != nil {
		props["location"] = normalizeLocation(*result.Location)
	}
	if result.Kind != nil {
		props["kind"] = *result.Kind
	}
	if sku := result.SKU; sku != nil {
		s := map[string]any{}
		if sku.Name != nil {
			s["name"] = *sku.Name
		}
		if sku.Tier != nil {
			s["tier"] = *sku.Tier
		}
		if sku.Capacity != nil {
			s["capacity"] = *sku.Capacity
		}
		props["sku"] = s
	}
	if p := result.Properties; p != nil {
		if p.Reserved != nil {
			props["reserved"] = *p.Reserved
		}
		if p.ProvisioningState != nil {
			props["provisioningState"] = string(*p.ProvisioningState)
		}
		if p.NumberOfSites != nil {
			props["numberOfSites"] = *p.NumberOfSites
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

func (a *AppServicePlan) Create(ctx context.Context, request *resource.CreateRequest) (*resource.CreateResult, error) {
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
	planName := nameOrLabel(props, request.Label)

	params := buildAppServicePlanParams(props, location)
	params.Tags = formaeTagsToAzureTags(request.Properties)

	poller, err := a.Client.PlansClient.BeginCreateOrUpdate(ctx, rgName, planName, params, nil)
	if err != nil {
		return &resource.CreateResult{
			ProgressResult: failedProgress(resource.OperationCreate, "", "", err),
		}, fmt.Errorf("failed to start AppServicePlan creation: %w", err)
	}

	expectedNativeID := fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/Microsoft.Web/serverfarms/%s",
		a.Config.SubscriptionId, rgName, planName)

	progress, err := startedProgress(ctx, resource.OperationCreate, poller, expectedNativeID, a.finishCreate(rgName, planName))
	return &resource.CreateResult{ProgressResult: progress}, err
}

func (a *AppServicePlan) finishCreate(rgName, planName string) finalizer[armappservice.PlansClientCreateOrUpdateResponse] {
	return func(result armappservice.PlansClientCreateOrUpdateResponse) (string, json.RawMessage, error) {
		propsJSON, err := serializeAppServicePlanProperties(result.Plan, rgName, planName)
		if err != nil {
			return "", nil, fmt.Errorf("failed to serialize AppServicePlan properties: %w", err)
		}
		id := ""
		if result.ID != nil {
			id = *result.ID
		}
		return id, propsJSON, nil
	}
}

func (a *AppServicePlan) Read(ctx context.Context, request *resource.ReadRequest) (*resource.ReadResult, error) {
	rgName, names, err := idSegments(request.NativeID, "serverfarms")
	if err != nil {
		return nil, err
	}

	result, err := a.Client.PlansClient.Get(ctx, rgName, names[0], nil)
	if err != nil {
		return &resource.ReadResult{
			ErrorCode: mapAzureErrorToOperationErrorCode(err),
		}, fmt.Errorf("failed to read AppServicePlan: %w", err)
	}

	propsJSON, err := serializeAppServicePlanProperties(result.Plan, rgName, names[0])
	if err != nil {
		return nil, fmt.Errorf("failed to serialize AppServicePlan properties: %w", err)
	}
	return &resource.ReadResult{Properties: string(propsJSON)}, nil
}

func (a *AppServicePlan) Update(ctx context.Context, request *resource.UpdateRequest) (*resource.UpdateResult, error) {
	rgName, names, err := idSegments(request.NativeID, "serverfarms")
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

	// Scaling the SKU goes through the same create-or-update LRO
	params := buildAppServicePlanParams(props, location)
	params.Tags = formaeTagsToAzureTags(request.DesiredProperties)

	poller, err := a.Client.PlansClient.BeginCreateOrUpdate(ctx, rgName, names[0], params, nil)
	if err != nil {
		return &resource.UpdateResult{
			ProgressResult: failedProgress(resource.OperationUpdate, request.NativeID, "", err),
		}, fmt.Errorf("failed to start AppServicePlan update: %w", err)
	}

	progress, err := startedProgress(ctx, resource.OperationUpdate, poller, request.NativeID, a.finishCreate(rgName, names[0]))
	return &resource.UpdateResult{ProgressResult: progress}, err
}

func (a *AppServicePlan) Delete(ctx context.Context, request *resource.DeleteRequest) (*resource.DeleteResult, error) {
	rgName, names, err := idSegments(request.NativeID, "serverfarms")
	if err != nil {
		return nil, err
	}

	// A plan still hosting sites refuses deletion; the apps are torn down first.
	_, err = a.Client.PlansClient.Delete(ctx, rgName, names[0], nil)
	return deleteResult(request.NativeID, "AppServicePlan", err)
}

func (a *AppServicePlan) Status(ctx context.Context, request *resource.StatusRequest) (*resource.StatusResult, error) {
	reqID, err := parseRequestID(request.RequestID)
	if err != nil {
		return badRequestIDStatus(request, err)
	}

	switch reqID.OperationType {
	case lroCreate, lroUpdate:
		rgName, names, err := idSegments(reqID.NativeID, "serverfarms")
		if err != nil {
			return badRequestIDStatus(request, err)
		}
		return resumeStatus(ctx, a.Client, request, reqID, a.finishCreate(rgName, names[0]))
	default:
		return badRequestIDStatus(request, fmt.Errorf("unknown operation type: %s", reqID.OperationType))
	}
}

func (a *AppServicePlan) List(ctx context.Context, request *resource.ListRequest) (*resource.ListResult, error) {
	rgName := request.AdditionalProperties["resourceGroupName"]
	if rgName == "" {
		return nil, fmt.Errorf("resourceGroupName is required in AdditionalProperties for listing AppServicePlans")
	}

	pager := a.Client.PlansClient.NewListByResourceGroupPager(rgName, nil)
	var nativeIDs []string
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list app service plans in resource group %s: %w", rgName, err)
		}
		for _, plan := range page.Value {
			if plan.ID != nil {
				nativeIDs = append(nativeIDs, *plan.ID)
			}
		}
	}
	return &resource.ListResult{NativeIDs: nativeIDs}, nil
}
