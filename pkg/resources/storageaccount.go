// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/client"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/config"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/prov"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/registry"
	"github.com/platform-engineering-labs/formae/pkg/plugin/resource"
)

const ResourceTypeStorageAccount = "Azure::Storage::StorageAccount"

func init() {
	registry.Register(ResourceTypeStorageAccount, func(client *client.Client, cfg *config.Config) prov.Provisioner {
		return &StorageAccount{client, cfg}
	})
}

// StorageAccount backs the function apps' AzureWebJobsStorage.
type StorageAccount struct {
	Client *client.Client
	Config *config.Config
}

func serializeStorageAccountProperties(result armstorage.Account, rgName, accountName string) (json.RawMessage, error) {
	props := map[string]any{
		"resourceGroupName": rgName,
		"name":              accountName,
	}
	if result.Name != nil {
		props["name"] = *result.Name
	}
	if result.Location != nil {
		props["location"] = normalizeLocation(*result.Location)
	}
	if result.SKU != nil && result.SKU.Name != nil {
		props["sku"] = map[string]any{"name": string(*result.SKU.Name)}
	}
	if result.Kind != nil {
		props["kind"] = string(*result.Kind)
	}
	if p := result.Properties; p != nil {
		if p.EnableHTTPSTrafficOnly != nil {
			props["enableHttpsTrafficOnly"] = *p.EnableHTTPSTrafficOnly
		}
		if p.MinimumTLSVersion != nil {
			props["minimumTlsVersion"] = string(*p.MinimumTLSVersion)
		}
		if p.AllowBlobPublicAccess != nil {
			props["allowBlobPublicAccess"] = *p.AllowBlobPublicAccess
		}
		if p.AllowSharedKeyAccess != nil {
			props["allowSharedKeyAccess"] = *p.AllowSharedKeyAccess
		}
		if p.PrimaryEndpoints != nil {
			if p.PrimaryEndpoints.Blob != nil {
				props["blobEndpoint"] = *p.PrimaryEndpoints.Blob
			}
			if p.PrimaryEndpoints.Queue != nil {
				props["queueEndpoint"] = *p.PrimaryEndpoints.Queue
			}
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

// buildStorageAccountParams maps demo properties onto create parameters. Function
// apps reach the account with their managed identity, so shared keys are off unless
// asked for.
func buildStorageAccountParams(props map[string]any, location string) (armstorage.AccountCreateParameters, error) {
	skuName := "Standard_LRS"
	if sku, ok := props["sku"].(map[string]any); ok {
		if name, ok := sku["name"].(string); ok && name != "" {
			skuName = name
		}
	}
	kind := armstorage.KindStorageV2
	if k := optionalString(props, "kind"); k != "" {
		kind = armstorage.Kind(k)
	}

	params := armstorage.AccountCreateParameters{
		Location: stringPtr(location),
		SKU:      &armstorage.SKU{Name: to.Ptr(armstorage.SKUName(skuName))},
		Kind:     &kind,
		Properties: &armstorage.AccountPropertiesCreateParameters{
			EnableHTTPSTrafficOnly: to.Ptr(true),
			MinimumTLSVersion:      to.Ptr(armstorage.MinimumTLSVersionTLS12),
			AllowBlobPublicAccess:  to.Ptr(false),
			AllowSharedKeyAccess:   to.Ptr(false),
		},
	}
	if v, ok := props["allowSharedKeyAccess"].(bool); ok {
		params.Properties.AllowSharedKeyAccess = &v
	}
	if v := optionalString(props, "minimumTlsVersion"); v != "" {
		params.Properties.MinimumTLSVersion = to.Ptr(armstorage.MinimumTLSVersion(v))
	}
	return params, nil
}

func (s *StorageAccount) Create(ctx context.Context, request *resource.CreateRequest) (*resource.CreateResult, error) {
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
	accountName := nameOrLabel(props, request.Label)

	params, err := buildStorageAccountParams(props, location)
	if err != nil {
		return nil, err
	}
	params.Tags = formaeTagsToAzureTags(request.Properties)

	// Storage account creation is async (LRO)
	poller, err := s.Client.StorageAccountsClient.BeginCreate(ctx, rgName, accountName, params, nil)
	if err != nil {
		return &resource.CreateResult{
			ProgressResult: failedProgress(resource.OperationCreate, "", "", err),
		}, fmt.Errorf("failed to start StorageAccount creation: %w", err)
	}

	expectedNativeID := fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/Microsoft.Storage/storageAccounts/%s",
		s.Config.SubscriptionId, rgName, accountName)

	progress, err := startedProgress(ctx, resource.OperationCreate, poller, expectedNativeID, s.finishCreate(rgName, accountName))
	return &resource.CreateResult{ProgressResult: progress}, err
}

func (s *StorageAccount) finishCreate(rgName, accountName string) finalizer[armstorage.AccountsClientCreateResponse] {
	return func(result armstorage.AccountsClientCreateResponse) (string, json.RawMessage, error) {
		propsJSON, err := serializeStorageAccountProperties(result.Account, rgName, accountName)
		if err != nil {
			return "", nil, fmt.Errorf("failed to serialize StorageAccount properties: %w", err)
		}
		return derefID(result.ID), propsJSON, nil
	}
}

func (s *StorageAccount) Read(ctx context.Context, request *resource.ReadRequest) (*resource.ReadResult, error) {
	rgName, names, err := idSegments(request.NativeID, "storageaccounts")
	if err != nil {
		return nil, err
	}

	result, err := s.Client.StorageAccountsClient.GetProperties(ctx, rgName, names[0], nil)
	if err != nil {
		return &resource.ReadResult{
			ErrorCode: mapAzureErrorToOperationErrorCode(err),
		}, fmt.Errorf("failed to read StorageAccount: %w", err)
	}

	propsJSON, err := serializeStorageAccountProperties(result.Account, rgName, names[0])
	if err != nil {
		return nil, fmt.Errorf("failed to serialize StorageAccount properties: %w", err)
	}
	return &resource.ReadResult{Properties: string(propsJSON)}, nil
}

func (s *StorageAccount) Update(ctx context.Context, request *resource.UpdateRequest) (*resource.UpdateResult, error) {
	rgName, names, err := idSegments(request.NativeID, "storageaccounts")
	if err != nil {
		return nil, err
	}
	props, err := parseProperties(request.DesiredProperties)
	if err != nil {
		return nil, err
	}

	params := armstorage.AccountUpdateParameters{
		Tags:       formaeTagsToAzureTags(request.DesiredProperties),
		Properties: &armstorage.AccountPropertiesUpdateParameters{},
	}
	if v, ok := props["allowSharedKeyAccess"].(bool); ok {
		params.Properties.AllowSharedKeyAccess = &v
	}
	if v := optionalString(props, "minimumTlsVersion"); v != "" {
		params.Properties.MinimumTLSVersion = to.Ptr(armstorage.MinimumTLSVersion(v))
	}

	// Storage account update is synchronous
	result, err := s.Client.StorageAccountsClient.Update(ctx, rgName, names[0], params, nil)
	if err != nil {
		return &resource.UpdateResult{
			ProgressResult: failedProgress(resource.OperationUpdate, request.NativeID, "", err),
		}, fmt.Errorf("failed to update StorageAccount: %w", err)
	}

	propsJSON, err := serializeStorageAccountProperties(result.Account, rgName, names[0])
	if err != nil {
		return nil, fmt.Errorf("failed to serialize StorageAccount properties: %w", err)
	}
	return &resource.UpdateResult{
		ProgressResult: successProgress(resource.OperationUpdate, derefID(result.ID), "", propsJSON),
	}, nil
}

func (s *StorageAccount) Delete(ctx context.Context, request *resource.DeleteRequest) (*resource.DeleteResult, error) {
	rgName, names, err := idSegments(request.NativeID, "storageaccounts")
	if err != nil {
		return nil, err
	}

	// Storage account deletion is synchronous
	_, err = s.Client.StorageAccountsClient.Delete(ctx, rgName, names[0], nil)
	return deleteResult(request.NativeID, "StorageAccount", err)
}

func (s *StorageAccount) Status(ctx context.Context, request *resource.StatusRequest) (*resource.StatusResult, error) {
	reqID, err := parseRequestID(request.RequestID)
	if err != nil {
		return badRequestIDStatus(request, err)
	}

	switch reqID.OperationType {
	case lroCreate:
		rgName, names, err := idSegments(reqID.NativeID, "storageaccounts")
		if err != nil {
			return badRequestIDStatus(request, err)
		}
		return resumeStatus(ctx, s.Client, request, reqID, s.finishCreate(rgName, names[0]))
	default:
		return badRequestIDStatus(request, fmt.Errorf("unknown operation type: %s", reqID.OperationType))
	}
}

func (s *StorageAccount) List(ctx context.Context, request *resource.ListRequest) (*resource.ListResult, error) {
	rgName := request.AdditionalProperties["resourceGroupName"]
	if rgName == "" {
		return nil, fmt.Errorf("resourceGroupName is required in AdditionalProperties for listing StorageAccounts")
	}

	pager := s.Client.StorageAccountsClient.NewListByResourceGroupPager(rgName, nil)
	var nativeIDs []string
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list storage accounts: %w", err)
		}
		for _, account := range page.Value {
			if account.ID != nil {
				nativeIDs = append(nativeIDs, *account.ID)
			}
		}
	}
	return &resource.ListResult{NativeIDs: nativeIDs}, nil
}
