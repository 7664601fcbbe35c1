// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v2"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/client"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/config"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/prov"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/registry"
	"github.com/platform-engineering-labs/formae/pkg/plugin/resource"
)

const ResourceTypeFunctionApp = "Azure::Web::FunctionApp"

func init() {
	registry.Register(ResourceTypeFunctionApp, func(client *client.Client, cfg *config.Config) prov.Provisioner {
		return &FunctionApp{client, cfg}
	})
}

// FunctionApp is the provisioner for function apps hosted on an App Service plan.
// The app reaches its AzureWebJobsStorage account through a user-assigned identity,
// never with an account key.
type FunctionApp struct {
	Client *client.Client
	Config *config.Config
}

// functionAppSettings returns the app settings for a function app, sorted by name.
// Explicit appSettings override the generated ones.
func functionAppSettings(props map[string]any) ([]*armappservice.NameValuePair, error) {
	storageAccount, err := requiredString(props, "storageAccountName")
	if err != nil {
		return nil, err
	}
	clientID, err := requiredString(props, "identityClientId")
	if err != nil {
		return nil, err
	}
	runtime := optionalString(props, "runtime")
	if runtime == "" {
		runtime = "dotnet-isolated"
	}

	settings := map[string]string{
		"FUNCTIONS_EXTENSION_VERSION":          "~4",
		"FUNCTIONS_WORKER_RUNTIME":             runtime,
		"AzureWebJobsStorage__accountName":     storageAccount,
		"AzureWebJobsStorage__credential":      "managedidentity",
		"AzureWebJobsStorage__clientId":        clientID,
		"AzureWebJobsStorage__blobServiceUri":  fmt.Sprintf("https://%s.blob.core.windows.net", storageAccount),
		"AzureWebJobsStorage__queueServiceUri": fmt.Sprintf("https://%s.queue.core.windows.net", storageAccount),
	}
	if extra, ok := props["appSettings"].(map[string]any); ok {
		for k, v := range extra {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("appSettings.%s must be a string", k)
			}
			settings[k] = s
		}
	}

	pairs := make([]*armappservice.NameValuePair, 0, len(settings))
	for _, name := range slices.Sorted(maps.Keys(settings)) {
		pairs = append(pairs, &armappservice.NameValuePair{Name: to.Ptr(name), Value: to.Ptr(settings[name])})
	}
	return pairs, nil
}

func buildFunctionAppParams(props map[string]any, location string) (armappservice.Site, error) {
	serverFarmID, err := requiredString(props, "serverFarmId")
	if err != nil {
		return armappservice.Site{}, err
	}
	identityID, err := requiredString(props, "identityId")
	if err != nil {
		return armappservice.Site{}, err
	}
	appSettings, err := functionAppSettings(props)
	if err != nil {
		return armappservice.Site{}, err
	}

	siteConfig := &armappservice.SiteConfig{
		AppSettings:   appSettings,
		FtpsState:     to.Ptr(armappservice.FtpsStateDisabled),
		MinTLSVersion: to.Ptr(armappservice.SupportedTLSVersionsOne2),
		AlwaysOn:      to.Ptr(true),
	}
	kind := "functionapp"
	if fx := optionalString(props, "linuxFxVersion"); fx != "" {
		siteConfig.LinuxFxVersion = to.Ptr(fx)
		kind = "functionapp,linux"
	}

	return armappservice.Site{
		Location: stringPtr(location),
		Kind:     stringPtr(kind),
		Identity: &armappservice.ManagedServiceIdentity{
			Type: to.Ptr(armappservice.ManagedServiceIdentityTypeUserAssigned),
			UserAssignedIdentities: map[string]*armappservice.UserAssignedIdentity{
				identityID: {},
			},
		},
		Properties: &armappservice.SiteProperties{
			ServerFarmID:              stringPtr(serverFarmID),
			HTTPSOnly:                 to.Ptr(true),
			KeyVaultReferenceIdentity: stringPtr(identityID),
			SiteConfig:                siteConfig,
		},
	}, nil
}

func serializeFunctionAppProperties(result armappservice.Site, rgName, appName string) (json.RawMessage, error) {
	props := map[string]any{
		"resourceGroupName": rgName,
		"name":              appName,
	}
	if result.Location != nil {
		props["location"] = normalizeLocation(*result.Location)
	}
	if result.Kind != nil {
		props["kind"] = *result.Kind
	}
	if result.Identity != nil {
		for id := range result.Identity.UserAssignedIdentities {
			props["identityId"] = id
		}
	}
	if p := result.Properties; p != nil {
		if p.ServerFarmID != nil {
			props["serverFarmId"] = *p.ServerFarmID
		}
		if p.DefaultHostName != nil {
			props["defaultHostName"] = *p.DefaultHostName
		}
		if p.CustomDomainVerificationID != nil {
			props["customDomainVerificationId"] = *p.CustomDomainVerificationID
		}
		if p.State != nil {
			props["state"] = *p.State
		}
		if p.HTTPSOnly != nil {
			props["httpsOnly"] = *p.HTTPSOnly
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

func (f *FunctionApp) Create(ctx context.Context, request *resource.CreateRequest) (*resource.CreateResult, error) {
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
	appName := nameOrLabel(props, request.Label)

	params, err := buildFunctionAppParams(props, location)
	if err != nil {
		return nil, err
	}
	params.Tags = formaeTagsToAzureTags(request.Properties)

	poller, err := f.Client.WebAppsClient.BeginCreateOrUpdate(ctx, rgName, appName, params, nil)
	if err != nil {
		return &resource.CreateResult{
			ProgressResult: failedProgress(resource.OperationCreate, "", "", err),
		}, fmt.Errorf("failed to start FunctionApp creation: %w", err)
	}

	expectedNativeID := fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/Microsoft.Web/sites/%s",
		f.Config.SubscriptionId, rgName, appName)

	progress, err := startedProgress(ctx, resource.OperationCreate, poller, expectedNativeID, f.finishCreate(rgName, appName))
	return &resource.CreateResult{ProgressResult: progress}, err
}

func (f *FunctionApp) finishCreate(rgName, appName string) finalizer[armappservice.WebAppsClientCreateOrUpdateResponse] {
	return func(result armappservice.WebAppsClientCreateOrUpdateResponse) (string, json.RawMessage, error) {
		propsJSON, err := serializeFunctionAppProperties(result.Site, rgName, appName)
		if err != nil {
			return "", nil, fmt.Errorf("failed to serialize FunctionApp properties: %w", err)
		}
		id := ""
		if result.ID != nil {
			id = *result.ID
		}
		return id, propsJSON, nil
	}
}

func (f *FunctionApp) Read(ctx context.Context, request *resource.ReadRequest) (*resource.ReadResult, error) {
	rgName, names, err := idSegments(request.NativeID, "sites")
	if err != nil {
		return nil, err
	}

	result, err := f.Client.WebAppsClient.Get(ctx, rgName, names[0], nil)
	if err != nil {
		return &resource.ReadResult{
			ErrorCode: mapAzureErrorToOperationErrorCode(err),
		}, fmt.Errorf("failed to read FunctionApp: %w", err)
	}

	propsJSON, err := serializeFunctionAppProperties(result.Site, rgName, names[0])
	if err != nil {
		return nil, fmt.Errorf("failed to serialize FunctionApp properties: %w", err)
	}
	return &resource.ReadResult{Properties: string(propsJSON)}, nil
}

func (f *FunctionApp) Update(ctx context.Context, request *resource.UpdateRequest) (*resource.UpdateResult, error) {
	rgName, names, err := idSegments(request.NativeID, "sites")
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

	params, err := buildFunctionAppParams(props, location)
	if err != nil {
		return nil, err
	}
	params.Tags = formaeTagsToAzureTags(request.DesiredProperties)

	poller, err := f.Client.WebAppsClient.BeginCreateOrUpdate(ctx, rgName, names[0], params, nil)
	if err != nil {
		return &resource.UpdateResult{
			ProgressResult: failedProgress(resource.OperationUpdate, request.NativeID, "", err),
		}, fmt.Errorf("failed to start FunctionApp update: %w", err)
	}

	progress, err := startedProgress(ctx, resource.OperationUpdate, poller, request.NativeID, f.finishCreate(rgName, names[0]))
	return &resource.UpdateResult{ProgressResult: progress}, err
}

func (f *FunctionApp) Delete(ctx context.Context, request *resource.DeleteRequest) (*resource.DeleteResult, error) {
	rgName, names, err := idSegments(request.NativeID, "sites")
	if err != nil {
		return nil, err
	}

	// The plan is a step of its own; never let the app delete take it along
	_, err = f.Client.WebAppsClient.Delete(ctx, rgName, names[0], &armappservice.WebAppsClientDeleteOptions{
		DeleteEmptyServerFarm: to.Ptr(false),
	})
	return deleteResult(request.NativeID, "FunctionApp", err)
}

func (f *FunctionApp) Status(ctx context.Context, request *resource.StatusRequest) (*resource.StatusResult, error) {
	reqID, err := parseRequestID(request.RequestID)
	if err != nil {
		return badRequestIDStatus(request, err)
	}

	switch reqID.OperationType {
	case lroCreate, lroUpdate:
		rgName, names, err := idSegments(reqID.NativeID, "sites")
		if err != nil {
			return badRequestIDStatus(request, err)
		}
		return resumeStatus(ctx, f.Client, request, reqID, f.finishCreate(rgName, names[0]))
	default:
		return badRequestIDStatus(request, fmt.Errorf("unknown operation type: %s", reqID.OperationType))
	}
}

func (f *FunctionApp) List(ctx context.Context, request *resource.ListRequest) (*resource.ListResult, error) {
	rgName := request.AdditionalProperties["resourceGroupName"]
	if rgName == "" {
		return nil, fmt.Errorf("resourceGroupName is required in AdditionalProperties for listing FunctionApps")
	}

	pager := f.Client.WebAppsClient.NewListByResourceGroupPager(rgName, nil)
	var nativeIDs []string
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list sites in resource group %s: %w", rgName, err)
		}
		for _, site := range page.Value {
			if site.ID != nil {
				nativeIDs = append(nativeIDs, *site.ID)
			}
		}
	}
	return &resource.ListResult{NativeIDs: nativeIDs}, nil
}
