// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package azureplugin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/client"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/config"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/nativeid"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/prov"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/registry"
	"github.com/platform-engineering-labs/formae/pkg/plugin"
	"github.com/platform-engineering-labs/formae/pkg/plugin/resource"

	// Import resources to trigger init() registration
	_ "github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/resources"
)

// Plugin implements the Formae ResourcePlugin interface over the provisioner
// registry. NativeIDs leave the plugin encoded and are decoded on the way in.
type Plugin struct {
	client *client.Client
}

// Compile-time check: Plugin must satisfy ResourcePlugin interface.
var _ plugin.ResourcePlugin = &Plugin{}

// New returns a Plugin. A nil client makes every request build its own client
// from the request's target config, as formae does when hosting the plugin.
func New(c *client.Client) *Plugin {
	return &Plugin{client: c}
}

// =============================================================================
// Configuration Methods
// =============================================================================

// RateLimit returns the rate limiting configuration for this plugin.
func (p *Plugin) RateLimit() plugin.RateLimitConfig {
	return plugin.RateLimitConfig{
		Scope:                            plugin.RateLimitScopeNamespace,
		MaxRequestsPerSecondForNamespace: 10,
	}
}

// DiscoveryFilters returns filters to exclude certain resources from discovery.
func (p *Plugin) DiscoveryFilters() []plugin.MatchFilter {
	return []plugin.MatchFilter{}
}

// LabelConfig returns the configuration for extracting human-readable labels
// from discovered resources.
func (p *Plugin) LabelConfig() plugin.LabelConfig {
	return plugin.LabelConfig{}
}

// provisioner resolves the provisioner for resourceType, checking the type before
// any credential work happens.
func (p *Plugin) provisioner(resourceType string, targetConfig json.RawMessage) (prov.Provisioner, error) {
	if !registry.HasProvisioner(resourceType) {
		return nil, fmt.Errorf("unsupported resource type: %s", resourceType)
	}

	if p.client != nil {
		return registry.Get(resourceType, p.client, p.client.Config), nil
	}

	cfg := config.FromTargetConfig(targetConfig)
	azureClient, err := client.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}
	return registry.Get(resourceType, azureClient, cfg), nil
}

// =============================================================================
// CRUD Operations
// =============================================================================

// Create provisions a new Azure resource.
func (p *Plugin) Create(ctx context.Context, request *resource.CreateRequest) (*resource.CreateResult, error) {
	prov, err := p.provisioner(request.ResourceType, request.TargetConfig)
	if err != nil {
		return nil, err
	}

	result, err := prov.Create(ctx, request)
	if result != nil && result.ProgressResult != nil {
		result.ProgressResult.NativeID = nativeid.Encode(result.ProgressResult.NativeID).String()
	}
	return result, err
}

// Read retrieves the current state of an Azure resource.
func (p *Plugin) Read(ctx context.Context, request *resource.ReadRequest) (*resource.ReadResult, error) {
	prov, err := p.provisioner(request.ResourceType, request.TargetConfig)
	if err != nil {
		return nil, err
	}

	request.NativeID = nativeid.NativeID(request.NativeID).ArmID()
	return prov.Read(ctx, request)
}

// Update modifies an existing Azure resource.
func (p *Plugin) Update(ctx context.Context, request *resource.UpdateRequest) (*resource.UpdateResult, error) {
	prov, err := p.provisioner(request.ResourceType, request.TargetConfig)
	if err != nil {
		return nil, err
	}

	originalNativeID := request.NativeID
	request.NativeID = nativeid.NativeID(request.NativeID).ArmID()

	result, err := prov.Update(ctx, request)
	if result != nil && result.ProgressResult != nil {
		result.ProgressResult.NativeID = nativeid.ReEncode(originalNativeID, result.ProgressResult.NativeID).String()
	}
	return result, err
}

// Delete removes an Azure resource.
func (p *Plugin) Delete(ctx context.Context, request *resource.DeleteRequest) (*resource.DeleteResult, error) {
	prov, err := p.provisioner(request.ResourceType, request.TargetConfig)
	if err != nil {
		return nil, err
	}

	originalNativeID := request.NativeID
	request.NativeID = nativeid.NativeID(request.NativeID).ArmID()

	result, err := prov.Delete(ctx, request)
	if result != nil && result.ProgressResult != nil {
		result.ProgressResult.NativeID = nativeid.ReEncode(originalNativeID, result.ProgressResult.NativeID).String()
	}
	return result, err
}

// Status checks the progress of an async operation.
func (p *Plugin) Status(ctx context.Context, request *resource.StatusRequest) (*resource.StatusResult, error) {
	prov, err := p.provisioner(request.ResourceType, request.TargetConfig)
	if err != nil {
		return nil, err
	}

	originalNativeID := request.NativeID
	request.NativeID = nativeid.NativeID(request.NativeID).ArmID()

	result, err := prov.Status(ctx, request)
	if result != nil && result.ProgressResult != nil {
		result.ProgressResult.NativeID = nativeid.ReEncode(originalNativeID, result.ProgressResult.NativeID).String()
	}
	return result, err
}

// List returns all resource identifiers of a given type for discovery.
func (p *Plugin) List(ctx context.Context, request *resource.ListRequest) (*resource.ListResult, error) {
	log := plugin.LoggerFromContext(ctx)
	log.Debug("List called",
		"resourceType", request.ResourceType,
		"additionalProperties", request.AdditionalProperties,
	)

	prov, err := p.provisioner(request.ResourceType, request.TargetConfig)
	if err != nil {
		log.Error("List setup failed", "resourceType", request.ResourceType, "error", err)
		return nil, err
	}

	result, err := prov.List(ctx, request)
	if err != nil {
		log.Error("List failed", "resourceType", request.ResourceType, "error", err)
		return result, err
	}

	log.Debug("List completed",
		"resourceType", request.ResourceType,
		"nativeIDCount", len(result.NativeIDs),
	)
	return result, nil
}
