// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package client

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/dns/armdns"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/msi/armmsi"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/config"
)

const (
	// Module name and version for ARM client (used for telemetry)
	moduleName    = "github.com/platform-engineering-labs/formae/plugins/azure-appservice"
	moduleVersion = "v0.1.0"
)

// Client wraps the typed ARM clients the App Service provisioners use.
//
// Typed clients carry the CRUD calls. armClient only exists to hand its pipeline
// to ResumePoller, so a long-running operation started by one call can be polled
// by a later Status call from its resume token.
type Client struct {
	Config                       *config.Config
	ResourceGroupsClient         *armresources.ResourceGroupsClient
	StorageAccountsClient        *armstorage.AccountsClient
	UserAssignedIdentitiesClient *armmsi.UserAssignedIdentitiesClient
	RoleAssignmentsClient        *armauthorization.RoleAssignmentsClient
	PlansClient                  *armappservice.PlansClient
	WebAppsClient                *armappservice.WebAppsClient
	CertificatesClient           *armappservice.CertificatesClient
	DomainsClient                *armappservice.DomainsClient
	TopLevelDomainsClient        *armappservice.TopLevelDomainsClient
	ZonesClient                  *armdns.ZonesClient
	RecordSetsClient             *armdns.RecordSetsClient
	credential                   azcore.TokenCredential
	clientOptions                *arm.ClientOptions
	armClient                    *arm.Client
}

// NewClient authenticates with cfg and builds every typed client.
func NewClient(cfg *config.Config) (*Client, error) {
	ctx := context.Background()
	cred, err := cfg.ToAzureCredential(ctx)
	if err != nil {
		return nil, err
	}

	clientOptions := &arm.ClientOptions{}
	sub := cfg.SubscriptionId

	c := &Client{
		Config:        cfg,
		credential:    cred,
		clientOptions: clientOptions,
	}

	if c.ResourceGroupsClient, err = armresources.NewResourceGroupsClient(sub, cred, clientOptions); err != nil {
		return nil, err
	}
	if c.StorageAccountsClient, err = armstorage.NewAccountsClient(sub, cred, clientOptions); err != nil {
		return nil, err
	}
	if c.UserAssignedIdentitiesClient, err = armmsi.NewUserAssignedIdentitiesClient(sub, cred, clientOptions); err != nil {
		return nil, err
	}
	if c.RoleAssignmentsClient, err = armauthorization.NewRoleAssignmentsClient(sub, cred, clientOptions); err != nil {
		return nil, err
	}
	if c.PlansClient, err = armappservice.NewPlansClient(sub, cred, clientOptions); err != nil {
		return nil, err
	}
	if c.WebAppsClient, err = armappservice.NewWebAppsClient(sub, cred, clientOptions); err != nil {
		return nil, err
	}
	if c.CertificatesClient, err = armappservice.NewCertificatesClient(sub, cred, clientOptions); err != nil {
		return nil, err
	}
	if c.DomainsClient, err = armappservice.NewDomainsClient(sub, cred, clientOptions); err != nil {
		return nil, err
	}
	if c.TopLevelDomainsClient, err = armappservice.NewTopLevelDomainsClient(sub, cred, clientOptions); err != nil {
		return nil, err
	}
	if c.ZonesClient, err = armdns.NewZonesClient(sub, cred, clientOptions); err != nil {
		return nil, err
	}
	if c.RecordSetsClient, err = armdns.NewRecordSetsClient(sub, cred, clientOptions); err != nil {
		return nil, err
	}

	if c.armClient, err = arm.NewClient(moduleName, moduleVersion, cred, clientOptions); err != nil {
		return nil, err
	}
	return c, nil
}

// ResumePoller rebuilds a poller of response type T from a resume token. Methods
// cannot take type parameters, hence a function rather than one Resume* method per
// operation.
func ResumePoller[T any](c *Client, token string) (*runtime.Poller[T], error) {
	return runtime.NewPollerFromResumeToken[T](
		token,
		c.armClient.Pipeline(),
		nil,
	)
}
