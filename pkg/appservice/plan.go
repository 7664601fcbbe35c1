// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package appservice

import (
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/pipeline"
	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/resources"
)

// Step names of the demo topology.
const (
	StepResourceGroup = "resource-group"
	StepStorage       = "storage"
	StepIdentity      = "identity"
	StepStorageRole   = "storage-role"
	StepPlan          = "plan"
	StepApp1          = "app1"
	StepApp2          = "app2"
	StepDomain        = "domain"
	StepBinding       = "binding"
)

// BuildPlan lays out the demo: a resource group holding an App Service plan and
// two function apps that share an identity-secured storage account, plus, when a
// domain is set, the domain purchase and an SSL hostname binding on the first app.
func BuildPlan(s Settings) (*pipeline.Plan, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	rgName := pipeline.Ref{Step: StepResourceGroup, Output: "name"}
	p := pipeline.NewPlan()
	b := &builder{plan: p}

	b.add(resources.ResourceTypeResourceGroup, StepResourceGroup, s.Location, map[string]any{
		"name": s.resourceGroupName(),
	})
	b.add(resources.ResourceTypeStorageAccount, StepStorage, s.Location, map[string]any{
		"name":              s.storageAccountName(),
		"resourceGroupName": rgName,
	}, StepResourceGroup)
	b.add(resources.ResourceTypeUserAssignedIdentity, StepIdentity, s.Location, map[string]any{
		"name":              s.identityName(),
		"resourceGroupName": rgName,
	}, StepResourceGroup)
	b.add(resources.ResourceTypeRoleAssignment, StepStorageRole, "", map[string]any{
		"name":             s.storageRoleName(),
		"scope":            pipeline.Ref{Step: StepStorage, Output: "id"},
		"principalId":      pipeline.Ref{Step: StepIdentity, Output: "principalId"},
		"roleDefinitionId": resources.RoleDefinitionID(s.SubscriptionID, resources.StorageBlobDataOwnerRoleID),
	}, StepStorage, StepIdentity)
	b.add(resources.ResourceTypeAppServicePlan, StepPlan, s.Location, map[string]any{
		"name":              s.planName(),
		"resourceGroupName": rgName,
		"sku":               map[string]any{"name": s.PlanSKU, "tier": s.PlanTier},
	}, StepResourceGroup)

	// The apps only start once the role exists, or the host fails its first
	// storage call.
	for i, step := range []string{StepApp1, StepApp2} {
		b.add(resources.ResourceTypeFunctionApp, step, s.Location, map[string]any{
			"name":               s.appName(i + 1),
			"resourceGroupName":  rgName,
			"serverFarmId":       pipeline.Ref{Step: StepPlan, Output: "id"},
			"identityId":         pipeline.Ref{Step: StepIdentity, Output: "id"},
			"identityClientId":   pipeline.Ref{Step: StepIdentity, Output: "clientId"},
			"storageAccountName": pipeline.Ref{Step: StepStorage, Output: "name"},
			"runtime":            s.Runtime,
		}, StepResourceGroup, StepPlan, StepStorage, StepIdentity, StepStorageRole)
	}

	if s.Domain != "" {
		c := s.Contact
		b.add(resources.ResourceTypeDomain, StepDomain, "", map[string]any{
			"name":              s.Domain,
			"resourceGroupName": rgName,
			"agreedBy":          s.AgreedBy,
			"contact": map[string]any{
				"nameFirst":  c.FirstName,
				"nameLast":   c.LastName,
				"email":      c.Email,
				"phone":      c.Phone,
				"address1":   c.Address,
				"city":       c.City,
				"state":      c.State,
				"country":    c.Country,
				"postalCode": c.PostalCode,
			},
		}, StepResourceGroup)
		b.add(resources.ResourceTypeHostNameBinding, StepBinding, s.Location, map[string]any{
			"resourceGroupName":          rgName,
			"siteName":                   pipeline.Ref{Step: StepApp1, Output: "name"},
			"hostName":                   s.HostName(),
			"defaultHostName":            pipeline.Ref{Step: StepApp1, Output: "defaultHostName"},
			"customDomainVerificationId": pipeline.Ref{Step: StepApp1, Output: "customDomainVerificationId"},
			"serverFarmId":               pipeline.Ref{Step: StepPlan, Output: "id"},
		}, StepResourceGroup, StepPlan, StepApp1, StepDomain)
	}

	if b.err != nil {
		return nil, b.err
	}
	return p, nil
}

// builder keeps the first AddStep error so BuildPlan reads as a list of steps.
type builder struct {
	plan *pipeline.Plan
	err  error
}

func (b *builder) add(kind, name, region string, config map[string]any, dependsOn ...string) {
	if b.err != nil {
		return
	}
	_, b.err = b.plan.AddStep(pipeline.NewResourceSpec(kind, name, region, config), dependsOn...)
}
