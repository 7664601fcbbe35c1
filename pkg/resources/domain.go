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
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/dns/armdns"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/client"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/config"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/prov"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/registry"
	"github.com/platform-engineering-labs/formae/pkg/plugin"
	"github.com/platform-engineering-labs/formae/pkg/plugin/resource"
)

const ResourceTypeDomain = "Azure::DomainRegistration::Domain"

func init() {
	registry.Register(ResourceTypeDomain, func(client *client.Client, cfg *config.Config) prov.Provisioner {
		return &Domain{client, cfg}
	})
}

// Domain purchases an App Service domain together with the Azure DNS zone it
// delegates to. Registration is a real purchase; deleting the resource does not
// refund it.
type Domain struct {
	Client *client.Client
	Config *config.Config
}

// topLevelDomain returns the part of name after its first label.
func topLevelDomain(name string) (string, error) {
	_, tld, ok := strings.Cut(name, ".")
	if !ok || tld == "" {
		return "", fmt.Errorf("invalid domain name %q", name)
	}
	return tld, nil
}

// contactFromProperties builds the registrant contact. The same contact is used for
// the admin, billing, registrant and technical roles.
func contactFromProperties(props map[string]any) (*armappservice.Contact, error) {
	raw, ok := props["contact"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("contact is required")
	}
	v := make(map[string]string)
	for _, key := range []string{"nameFirst", "nameLast", "email", "phone", "address1", "city", "state", "country", "postalCode"} {
		value, err := requiredString(raw, key)
		if err != nil {
			return nil, fmt.Errorf("contact.%w", err)
		}
		v[key] = value
	}

	contact := &armappservice.Contact{
		NameFirst: to.Ptr(v["nameFirst"]),
		NameLast:  to.Ptr(v["nameLast"]),
		Email:     to.Ptr(v["email"]),
		Phone:     to.Ptr(v["phone"]),
		AddressMailing: &armappservice.Address{
			Address1:   to.Ptr(v["address1"]),
			City:       to.Ptr(v["city"]),
			State:      to.Ptr(v["state"]),
			Country:    to.Ptr(v["country"]),
			PostalCode: to.Ptr(v["postalCode"]),
		},
	}
	if org := optionalString(raw, "organization"); org != "" {
		contact.Organization = to.Ptr(org)
	}
	if addr := optionalString(raw, "address2"); addr != "" {
		contact.AddressMailing.Address2 = to.Ptr(addr)
	}
	return contact, nil
}

func buildDomainParams(props map[string]any, agreementKeys []string, zoneID string, agreedAt time.Time) (armappservice.Domain, error) {
	contact, err := contactFromProperties(props)
	if err != nil {
		return armappservice.Domain{}, err
	}
	agreedBy, err := requiredString(props, "agreedBy")
	if err != nil {
		return armappservice.Domain{}, err
	}

	autoRenew := false
	if v, ok := props["autoRenew"].(bool); ok {
		autoRenew = v
	}
	privacy := true
	if v, ok := props["privacy"].(bool); ok {
		privacy = v
	}

	keys := make([]*string, 0, len(agreementKeys))
	for _, k := range agreementKeys {
		keys = append(keys, to.Ptr(k))
	}

	return armappservice.Domain{
		// Domains are not regional
		Location: to.Ptr("global"),
		Properties: &armappservice.DomainProperties{
			ContactAdmin:      contact,
			ContactBilling:    contact,
			ContactRegistrant: contact,
			ContactTech:       contact,
			Consent: &armappservice.DomainPurchaseConsent{
				AgreedAt:      to.Ptr(agreedAt.UTC()),
				AgreedBy:      to.Ptr(agreedBy),
				AgreementKeys: keys,
			},
			AutoRenew: to.Ptr(autoRenew),
			Privacy:   to.Ptr(privacy),
			DNSType:   to.Ptr(armappservice.DNSTypeAzureDNS),
			DNSZoneID: to.Ptr(zoneID),
		},
	}, nil
}

func serializeDomainProperties(result armappservice.Domain, rgName, domainName string) (json.RawMessage, error) {
	props := map[string]any{
		"resourceGroupName": rgName,
		"name":              domainName,
		"zoneName":          domainName,
	}
	if p := result.Properties; p != nil {
		if p.DNSZoneID != nil {
			props["dnsZoneId"] = *p.DNSZoneID
		}
		if p.RegistrationStatus != nil {
			props["registrationStatus"] = string(*p.RegistrationStatus)
		}
		if p.ProvisioningState != nil {
			props["provisioningState"] = string(*p.ProvisioningState)
		}
		if p.AutoRenew != nil {
			props["autoRenew"] = *p.AutoRenew
		}
		if p.ExpirationTime != nil {
			props["expirationTime"] = p.ExpirationTime.UTC().Format(time.RFC3339)
		}
		if len(p.NameServers) > 0 {
			ns := make([]string, 0, len(p.NameServers))
			for _, s := range p.NameServers {
				if s != nil {
					ns = append(ns, *s)
				}
			}
			props["nameServers"] = ns
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

func (d *Domain) agreementKeys(ctx context.Context, tld string) ([]string, error) {
	pager := d.Client.TopLevelDomainsClient.NewListAgreementsPager(tld, armappservice.TopLevelDomainAgreementOption{
		IncludePrivacy: to.Ptr(true),
		ForTransfer:    to.Ptr(false),
	}, nil)

	var keys []string
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list legal agreements for %s: %w", tld, err)
		}
		for _, agreement := range page.Value {
			if agreement.AgreementKey != nil {
				keys = append(keys, *agreement.AgreementKey)
			}
		}
	}
	return keys, nil
}

func (d *Domain) Create(ctx context.Context, request *resource.CreateRequest) (*resource.CreateResult, error) {
	log := plugin.LoggerFromContext(ctx)

	props, err := parseProperties(request.Properties)
	if err != nil {
		return nil, err
	}
	rgName, err := requiredString(props, "resourceGroupName")
	if err != nil {
		return nil, err
	}
	domainName := nameOrLabel(props, request.Label)
	tld, err := topLevelDomain(domainName)
	if err != nil {
		return nil, err
	}

	availability, err := d.Client.DomainsClient.CheckAvailability(ctx, armappservice.NameIdentifier{Name: to.Ptr(domainName)}, nil)
	if err != nil {
		return &resource.CreateResult{
			ProgressResult: failedProgress(resource.OperationCreate, "", "", err),
		}, fmt.Errorf("failed to check availability of %s: %w", domainName, err)
	}
	if availability.Available == nil || !*availability.Available {
		return &resource.CreateResult{
			ProgressResult: &resource.ProgressResult{
				Operation:       resource.OperationCreate,
				OperationStatus: resource.OperationStatusFailure,
				ErrorCode:       resource.OperationErrorCodeResourceConflict,
				StatusMessage:   fmt.Sprintf("domain %s is not available for purchase", domainName),
			},
		}, fmt.Errorf("domain %s is not available for purchase", domainName)
	}

	keys, err := d.agreementKeys(ctx, tld)
	if err != nil {
		return &resource.CreateResult{
			ProgressResult: failedProgress(resource.OperationCreate, "", "", err),
		}, err
	}

	zone, err := d.Client.ZonesClient.CreateOrUpdate(ctx, rgName, domainName, armdns.Zone{
		Location:   to.Ptr("global"),
		Properties: &armdns.ZoneProperties{ZoneType: to.Ptr(armdns.ZoneTypePublic)},
		Tags:       formaeTagsToAzureTags(request.Properties),
	}, nil)
	if err != nil {
		return &resource.CreateResult{
			ProgressResult: failedProgress(resource.OperationCreate, "", "", err),
		}, fmt.Errorf("failed to create DNS zone %s: %w", domainName, err)
	}

	if zone.ID == nil {
		err := fmt.Errorf("DNS zone %s was created without an id", domainName)
		return &resource.CreateResult{
			ProgressResult: failedProgress(resource.OperationCreate, "", "", err),
		}, err
	}

	params, err := buildDomainParams(props, keys, *zone.ID, time.Now())
	if err != nil {
		return nil, err
	}
	params.Tags = formaeTagsToAzureTags(request.Properties)

	log.Debug("Domain.Create purchasing", "domain", domainName, "agreements", len(keys))
	poller, err := d.Client.DomainsClient.BeginCreateOrUpdate(ctx, rgName, domainName, params, nil)
	if err != nil {
		return &resource.CreateResult{
			ProgressResult: failedProgress(resource.OperationCreate, "", "", err),
		}, fmt.Errorf("failed to start Domain creation: %w", err)
	}

	expectedNativeID := fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/Microsoft.DomainRegistration/domains/%s",
		d.Config.SubscriptionId, rgName, domainName)

	progress, err := startedProgress(ctx, resource.OperationCreate, poller, expectedNativeID, d.finishCreate(rgName, domainName))
	return &resource.CreateResult{ProgressResult: progress}, err
}

func (d *Domain) finishCreate(rgName, domainName string) finalizer[armappservice.DomainsClientCreateOrUpdateResponse] {
	return func(result armappservice.DomainsClientCreateOrUpdateResponse) (string, json.RawMessage, error) {
		propsJSON, err := serializeDomainProperties(result.Domain, rgName, domainName)
		if err != nil {
			return "", nil, fmt.Errorf("failed to serialize Domain properties: %w", err)
		}
		id := ""
		if result.ID != nil {
			id = *result.ID
		}
		return id, propsJSON, nil
	}
}

func (d *Domain) Read(ctx context.Context, request *resource.ReadRequest) (*resource.ReadResult, error) {
	rgName, names, err := idSegments(request.NativeID, "domains")
	if err != nil {
		return nil, err
	}

	result, err := d.Client.DomainsClient.Get(ctx, rgName, names[0], nil)
	if err != nil {
		return &resource.ReadResult{
			ErrorCode: mapAzureErrorToOperationErrorCode(err),
		}, fmt.Errorf("failed to read Domain: %w", err)
	}

	propsJSON, err := serializeDomainProperties(result.Domain, rgName, names[0])
	if err != nil {
		return nil, fmt.Errorf("failed to serialize Domain properties: %w", err)
	}
	return &resource.ReadResult{Properties: string(propsJSON)}, nil
}

func (d *Domain) Update(ctx context.Context, request *resource.UpdateRequest) (*resource.UpdateResult, error) {
	rgName, names, err := idSegments(request.NativeID, "domains")
	if err != nil {
		return nil, err
	}
	props, err := parseProperties(request.DesiredProperties)
	if err != nil {
		return nil, err
	}

	// Only renewal and privacy can change after purchase
	patch := armappservice.DomainPatchResource{Properties: &armappservice.DomainPatchResourceProperties{}}
	if v, ok := props["autoRenew"].(bool); ok {
		patch.Properties.AutoRenew = to.Ptr(v)
	}
	if v, ok := props["privacy"].(bool); ok {
		patch.Properties.Privacy = to.Ptr(v)
	}

	result, err := d.Client.DomainsClient.Update(ctx, rgName, names[0], patch, nil)
	if err != nil {
		return &resource.UpdateResult{
			ProgressResult: failedProgress(resource.OperationUpdate, request.NativeID, "", err),
		}, fmt.Errorf("failed to update Domain: %w", err)
	}

	propsJSON, err := serializeDomainProperties(result.Domain, rgName, names[0])
	if err != nil {
		return nil, fmt.Errorf("failed to serialize Domain properties: %w", err)
	}
	return &resource.UpdateResult{
		ProgressResult: successProgress(resource.OperationUpdate, request.NativeID, "", propsJSON),
	}, nil
}

// Delete removes the registration, then starts deleting the DNS zone; Status
// follows the zone deletion.
func (d *Domain) Delete(ctx context.Context, request *resource.DeleteRequest) (*resource.DeleteResult, error) {
	rgName, names, err := idSegments(request.NativeID, "domains")
	if err != nil {
		return nil, err
	}

	_, err = d.Client.DomainsClient.Delete(ctx, rgName, names[0], &armappservice.DomainsClientDeleteOptions{
		ForceHardDeleteDomain: to.Ptr(true),
	})
	if err != nil && !isDeleteSuccessError(err) {
		return &resource.DeleteResult{
			ProgressResult: failedProgress(resource.OperationDelete, request.NativeID, "", err),
		}, fmt.Errorf("failed to delete Domain: %w", err)
	}

	poller, err := d.Client.ZonesClient.BeginDelete(ctx, rgName, names[0], nil)
	if err != nil {
		return deleteResult(request.NativeID, "DNS zone", err)
	}

	progress, err := startedProgress(ctx, resource.OperationDelete, poller, request.NativeID,
		deleted[armdns.ZonesClientDeleteResponse](request.NativeID))
	return &resource.DeleteResult{ProgressResult: progress}, err
}

func (d *Domain) Status(ctx context.Context, request *resource.StatusRequest) (*resource.StatusResult, error) {
	reqID, err := parseRequestID(request.RequestID)
	if err != nil {
		return badRequestIDStatus(request, err)
	}

	switch reqID.OperationType {
	case lroCreate:
		rgName, names, err := idSegments(reqID.NativeID, "domains")
		if err != nil {
			return badRequestIDStatus(request, err)
		}
		return resumeStatus(ctx, d.Client, request, reqID, d.finishCreate(rgName, names[0]))
	case lroDelete:
		return resumeStatus(ctx, d.Client, request, reqID, deleted[armdns.ZonesClientDeleteResponse](reqID.NativeID))
	default:
		return badRequestIDStatus(request, fmt.Errorf("unknown operation type: %s", reqID.OperationType))
	}
}

func (d *Domain) List(ctx context.Context, request *resource.ListRequest) (*resource.ListResult, error) {
	rgName := request.AdditionalProperties["resourceGroupName"]
	if rgName == "" {
		return nil, fmt.Errorf("resourceGroupName is required in AdditionalProperties for listing Domains")
	}

	pager := d.Client.DomainsClient.NewListByResourceGroupPager(rgName, nil)
	var nativeIDs []string
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list domains in resource group %s: %w", rgName, err)
		}
		for _, domain := range page.Value {
			if domain.ID != nil {
				nativeIDs = append(nativeIDs, *domain.ID)
			}
		}
	}
	return &resource.ListResult{NativeIDs: nativeIDs}, nil
}
