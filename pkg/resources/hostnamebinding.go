// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/dns/armdns"
	"github.com/cenkalti/backoff/v5"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/client"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/config"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/prov"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/registry"
	"github.com/platform-engineering-labs/formae/pkg/plugin"
	"github.com/platform-engineering-labs/formae/pkg/plugin/resource"
)

const ResourceTypeHostNameBinding = "Azure::Web::HostNameBinding"

const dnsRecordTTL int64 = 3600

// certificateIssueTimeout bounds the wait for a managed certificate's thumbprint.
var certificateIssueTimeout = 15 * time.Minute

func init() {
	registry.Register(ResourceTypeHostNameBinding, func(client *client.Client, cfg *config.Config) prov.Provisioner {
		return &HostNameBinding{client, cfg}
	})
}

// HostNameBinding binds a custom hostname to a site and secures it with an App
// Service managed certificate. It owns the DNS records proving the hostname and
// the certificate, and removes them on delete.
//
// The hostname must be exactly one label below its DNS zone.
type HostNameBinding struct {
	Client *client.Client
	Config *config.Config
}

// splitHostName returns the record label and the zone of a hostname.
func splitHostName(hostName string) (string, string, error) {
	label, zone, ok := strings.Cut(hostName, ".")
	if !ok || label == "" || !strings.Contains(zone, ".") {
		return "", "", fmt.Errorf("hostName %q must be a subdomain of a registered domain", hostName)
	}
	return label, zone, nil
}

// verificationRecordName is the TXT record App Service checks for domain ownership.
func verificationRecordName(label string) string {
	return "asuid." + label
}

func certificateName(hostName string) string {
	return strings.ReplaceAll(hostName, ".", "-")
}

func bindingParams(siteName string, thumbprint string) armappservice.HostNameBinding {
	props := &armappservice.HostNameBindingProperties{
		SiteName:                    to.Ptr(siteName),
		HostNameType:                to.Ptr(armappservice.HostNameTypeVerified),
		CustomHostNameDNSRecordType: to.Ptr(armappservice.CustomHostNameDNSRecordTypeCName),
		SSLState:                    to.Ptr(armappservice.SSLStateDisabled),
	}
	if thumbprint != "" {
		props.SSLState = to.Ptr(armappservice.SSLStateSniEnabled)
		props.Thumbprint = to.Ptr(thumbprint)
	}
	return armappservice.HostNameBinding{Properties: props}
}

func txtRecordSet(value string) armdns.RecordSet {
	return armdns.RecordSet{
		Properties: &armdns.RecordSetProperties{
			TTL:        to.Ptr(dnsRecordTTL),
			TxtRecords: []*armdns.TxtRecord{{Value: []*string{to.Ptr(value)}}},
		},
	}
}

func cnameRecordSet(target string) armdns.RecordSet {
	return armdns.RecordSet{
		Properties: &armdns.RecordSetProperties{
			TTL:         to.Ptr(dnsRecordTTL),
			CnameRecord: &armdns.CnameRecord{Cname: to.Ptr(target)},
		},
	}
}

func serializeHostNameBindingProperties(result armappservice.HostNameBinding, rgName, siteName, hostName string) (json.RawMessage, error) {
	props := map[string]any{
		"resourceGroupName": rgName,
		"siteName":          siteName,
		"hostName":          hostName,
	}
	if p := result.Properties; p != nil {
		if p.SSLState != nil {
			props["sslState"] = string(*p.SSLState)
		}
		if p.Thumbprint != nil {
			props["thumbprint"] = *p.Thumbprint
		}
		if p.HostNameType != nil {
			props["hostNameType"] = string(*p.HostNameType)
		}
	}
	if result.ID != nil {
		props["id"] = *result.ID
	}
	return json.Marshal(props)
}

// awaitThumbprint waits until the managed certificate has been issued.
func (h *HostNameBinding) awaitThumbprint(ctx context.Context, rgName, certName string) (string, error) {
	return backoff.Retry(ctx, func() (string, error) {
		cert, err := h.Client.CertificatesClient.Get(ctx, rgName, certName, nil)
		if err != nil {
			if isDeleteSuccessError(err) {
				return "", err
			}
			return "", backoff.Permanent(err)
		}
		if cert.Properties == nil || cert.Properties.Thumbprint == nil || *cert.Properties.Thumbprint == "" {
			return "", fmt.Errorf("certificate %s not yet issued", certName)
		}
		return *cert.Properties.Thumbprint, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxElapsedTime(certificateIssueTimeout))
}

func (h *HostNameBinding) Create(ctx context.Context, request *resource.CreateRequest) (*resource.CreateResult, error) {
	log := plugin.LoggerFromContext(ctx)

	props, err := parseProperties(request.Properties)
	if err != nil {
		return nil, err
	}
	var values []string
	for _, key := range []string{"resourceGroupName", "siteName", "hostName", "defaultHostName", "customDomainVerificationId"} {
		v, err := requiredString(props, key)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	rgName, siteName, hostName, defaultHostName, verificationID := values[0], values[1], values[2], values[3], values[4]

	label, zone, err := splitHostName(hostName)
	if err != nil {
		return nil, err
	}
	fail := func(err error, msg string) (*resource.CreateResult, error) {
		return &resource.CreateResult{
			ProgressResult: failedProgress(resource.OperationCreate, "", "", err),
		}, fmt.Errorf("%s: %w", msg, err)
	}

	if _, err := h.Client.RecordSetsClient.CreateOrUpdate(ctx, rgName, zone, verificationRecordName(label), armdns.RecordTypeTXT, txtRecordSet(verificationID), nil); err != nil {
		return fail(err, "failed to create domain verification record")
	}
	if _, err := h.Client.RecordSetsClient.CreateOrUpdate(ctx, rgName, zone, label, armdns.RecordTypeCNAME, cnameRecordSet(defaultHostName), nil); err != nil {
		return fail(err, "failed to create CNAME record")
	}

	binding, err := h.Client.WebAppsClient.CreateOrUpdateHostNameBinding(ctx, rgName, siteName, hostName, bindingParams(siteName, ""), nil)
	if err != nil {
		return fail(err, "failed to bind hostname")
	}
	log.Debug("HostNameBinding bound", "hostName", hostName, "site", siteName)

	if ssl, ok := props["ssl"].(bool); ok && !ssl {
		propsJSON, err := serializeHostNameBindingProperties(binding.HostNameBinding, rgName, siteName, hostName)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize HostNameBinding properties: %w", err)
		}
		return &resource.CreateResult{
			ProgressResult: successProgress(resource.OperationCreate, derefID(binding.ID), "", propsJSON),
		}, nil
	}

	location, err := requiredString(props, "location")
	if err != nil {
		return nil, err
	}
	serverFarmID, err := requiredString(props, "serverFarmId")
	if err != nil {
		return nil, err
	}

	certName := certificateName(hostName)
	if _, err := h.Client.CertificatesClient.CreateOrUpdate(ctx, rgName, certName, armappservice.AppCertificate{
		Location: to.Ptr(location),
		Properties: &armappservice.AppCertificateProperties{
			CanonicalName: to.Ptr(hostName),
			ServerFarmID:  to.Ptr(serverFarmID),
		},
	}, nil); err != nil {
		return fail(err, "failed to create managed certificate")
	}

	thumbprint, err := h.awaitThumbprint(ctx, rgName, certName)
	if err != nil {
		return fail(err, "failed to obtain managed certificate thumbprint")
	}

	binding, err = h.Client.WebAppsClient.CreateOrUpdateHostNameBinding(ctx, rgName, siteName, hostName, bindingParams(siteName, thumbprint), nil)
	if err != nil {
		return fail(err, "failed to enable SNI SSL on hostname binding")
	}
	log.Debug("HostNameBinding secured", "hostName", hostName, "certificate", certName)

	propsJSON, err := serializeHostNameBindingProperties(binding.HostNameBinding, rgName, siteName, hostName)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize HostNameBinding properties: %w", err)
	}
	return &resource.CreateResult{
		ProgressResult: successProgress(resource.OperationCreate, derefID(binding.ID), "", propsJSON),
	}, nil
}

func (h *HostNameBinding) get(ctx context.Context, nativeID string) (json.RawMessage, string, error) {
	rgName, names, err := idSegments(nativeID, "sites", "hostnamebindings")
	if err != nil {
		return nil, "", err
	}
	result, err := h.Client.WebAppsClient.GetHostNameBinding(ctx, rgName, names[0], names[1], nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read HostNameBinding: %w", err)
	}
	propsJSON, err := serializeHostNameBindingProperties(result.HostNameBinding, rgName, names[0], names[1])
	if err != nil {
		return nil, "", fmt.Errorf("failed to serialize HostNameBinding properties: %w", err)
	}
	return propsJSON, derefID(result.ID), nil
}

func (h *HostNameBinding) Read(ctx context.Context, request *resource.ReadRequest) (*resource.ReadResult, error) {
	propsJSON, _, err := h.get(ctx, request.NativeID)
	if err != nil {
		return &resource.ReadResult{ErrorCode: mapAzureErrorToOperationErrorCode(err)}, err
	}
	return &resource.ReadResult{Properties: string(propsJSON)}, nil
}

func (h *HostNameBinding) Update(ctx context.Context, request *resource.UpdateRequest) (*resource.UpdateResult, error) {
	return &resource.UpdateResult{
		ProgressResult: &resource.ProgressResult{
			Operation:       resource.OperationUpdate,
			OperationStatus: resource.OperationStatusFailure,
			NativeID:        request.NativeID,
			ErrorCode:       resource.OperationErrorCodeGeneralServiceException,
			StatusMessage:   "HostNameBindings are immutable and cannot be updated. Delete and recreate instead.",
		},
	}, fmt.Errorf("HostNameBindings are immutable and cannot be updated")
}

// Delete unbinds the hostname, then removes the certificate and both DNS records.
// Everything is attempted; pieces already gone are skipped.
func (h *HostNameBinding) Delete(ctx context.Context, request *resource.DeleteRequest) (*resource.DeleteResult, error) {
	rgName, names, err := idSegments(request.NativeID, "sites", "hostnamebindings")
	if err != nil {
		return nil, err
	}
	siteName, hostName := names[0], names[1]
	label, zone, err := splitHostName(hostName)
	if err != nil {
		return nil, err
	}

	// The certificate cannot go while the binding still references it
	if _, err := h.Client.WebAppsClient.DeleteHostNameBinding(ctx, rgName, siteName, hostName, nil); err != nil && !isDeleteSuccessError(err) {
		return deleteResult(request.NativeID, "HostNameBinding", err)
	}

	var errs []error
	if _, err := h.Client.CertificatesClient.Delete(ctx, rgName, certificateName(hostName), nil); err != nil && !isDeleteSuccessError(err) {
		errs = append(errs, fmt.Errorf("certificate: %w", err))
	}
	if _, err := h.Client.RecordSetsClient.Delete(ctx, rgName, zone, label, armdns.RecordTypeCNAME, nil); err != nil && !isDeleteSuccessError(err) {
		errs = append(errs, fmt.Errorf("CNAME record: %w", err))
	}
	if _, err := h.Client.RecordSetsClient.Delete(ctx, rgName, zone, verificationRecordName(label), armdns.RecordTypeTXT, nil); err != nil && !isDeleteSuccessError(err) {
		errs = append(errs, fmt.Errorf("TXT record: %w", err))
	}
	return deleteResult(request.NativeID, "HostNameBinding", errors.Join(errs...))
}

func (h *HostNameBinding) Status(ctx context.Context, request *resource.StatusRequest) (*resource.StatusResult, error) {
	propsJSON, id, err := h.get(ctx, request.NativeID)
	return readStatus(request, propsJSON, id, err)
}

func (h *HostNameBinding) List(ctx context.Context, request *resource.ListRequest) (*resource.ListResult, error) {
	rgName := request.AdditionalProperties["resourceGroupName"]
	if rgName == "" {
		return nil, fmt.Errorf("resourceGroupName is required in AdditionalProperties for listing HostNameBindings")
	}

	sites := h.Client.WebAppsClient.NewListByResourceGroupPager(rgName, nil)
	var nativeIDs []string
	for sites.More() {
		page, err := sites.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list sites in resource group %s: %w", rgName, err)
		}
		for _, site := range page.Value {
			if site.Name == nil {
				continue
			}
			bindings := h.Client.WebAppsClient.NewListHostNameBindingsPager(rgName, *site.Name, nil)
			for bindings.More() {
				bpage, err := bindings.NextPage(ctx)
				if err != nil {
					return nil, fmt.Errorf("failed to list hostname bindings of %s: %w", *site.Name, err)
				}
				for _, b := range bpage.Value {
					// Skip the default *.azurewebsites.net binding every site has
					if b.ID == nil || b.Name == nil || strings.HasSuffix(*b.Name, ".azurewebsites.net") {
						continue
					}
					nativeIDs = append(nativeIDs, *b.ID)
				}
			}
		}
	}
	return &resource.ListResult{NativeIDs: nativeIDs}, nil
}
