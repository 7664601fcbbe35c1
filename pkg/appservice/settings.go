// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package appservice

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Contact is the registrant for a purchased domain.
type Contact struct {
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Address    string
	City       string
	State      string
	Country    string
	PostalCode string
}

// Settings describes one demo run. Names of Azure resources are derived from
// Prefix and Suffix.
type Settings struct {
	SubscriptionID string
	Location       string
	Prefix         string
	// Suffix keeps names unique across runs; DefaultSettings fills it randomly.
	Suffix string

	// Domain is bought and bound to the first function app. Empty skips the domain
	// and the binding.
	Domain    string
	HostLabel string
	Contact   Contact
	// AgreedBy is the client IP address recorded with the purchase consent.
	AgreedBy string

	PlanSKU     string
	PlanTier    string
	Runtime     string
	Concurrency int
}

// DefaultSettings returns settings for a sequential run in westeurope with a
// fresh random suffix.
func DefaultSettings() Settings {
	return Settings{
		Location:  "westeurope",
		Prefix:    "fademo",
		Suffix:    randomSuffix(),
		HostLabel: "www",
		Contact: Contact{
			FirstName:  "Jon",
			LastName:   "Doe",
			Email:      "jondoe@contoso.com",
			Phone:      "+1.4258828080",
			Address:    "1 Microsoft Way",
			City:       "Redmond",
			State:      "WA",
			Country:    "US",
			PostalCode: "98052",
		},
		AgreedBy:    "127.0.0.1",
		PlanSKU:     "B1",
		PlanTier:    "Basic",
		Runtime:     "dotnet-isolated",
		Concurrency: 1,
	}
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

var (
	namePart  = regexp.MustCompile(`^[a-z0-9]+$`)
	domainRe  = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z]{2,})+$`)
	hostLabel = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)
)

// Validate checks the settings before anything is planned. Every problem is
// reported, not just the first.
func (s Settings) Validate() error {
	var errs []error
	if s.SubscriptionID == "" {
		errs = append(errs, errors.New("subscription id is required"))
	}
	if s.Location == "" {
		errs = append(errs, errors.New("location is required"))
	}
	if !namePart.MatchString(s.Prefix) {
		errs = append(errs, fmt.Errorf("prefix %q must be lowercase letters and digits", s.Prefix))
	}
	if !namePart.MatchString(s.Suffix) {
		errs = append(errs, fmt.Errorf("suffix %q must be lowercase letters and digits", s.Suffix))
	}
	// Storage account names are the tightest constraint: 3 to 24 characters
	if n := len(s.storageAccountName()); n > 24 {
		errs = append(errs, fmt.Errorf("prefix and suffix are too long for a storage account name (%d > 24)", n))
	}
	if s.PlanSKU == "" || s.PlanTier == "" {
		errs = append(errs, errors.New("plan sku and tier are required"))
	}
	if s.Runtime == "" {
		errs = append(errs, errors.New("runtime is required"))
	}
	if s.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", s.Concurrency))
	}
	if s.Domain != "" {
		if !domainRe.MatchString(s.Domain) {
			errs = append(errs, fmt.Errorf("domain %q is not a valid domain name", s.Domain))
		}
		if !hostLabel.MatchString(s.HostLabel) {
			errs = append(errs, fmt.Errorf("host label %q is not a valid DNS label", s.HostLabel))
		}
		if s.AgreedBy == "" {
			errs = append(errs, errors.New("agreed-by address is required to purchase a domain"))
		}
		c := s.Contact
		for _, field := range []struct{ name, value string }{
			{"first name", c.FirstName}, {"last name", c.LastName}, {"email", c.Email},
			{"phone", c.Phone}, {"address", c.Address}, {"city", c.City},
			{"state", c.State}, {"country", c.Country}, {"postal code", c.PostalCode},
		} {
			if field.value == "" {
				errs = append(errs, fmt.Errorf("contact %s is required to purchase a domain", field.name))
			}
		}
	}
	return errors.Join(errs...)
}

func (s Settings) name(kind string) string {
	return fmt.Sprintf("%s-%s-%s", s.Prefix, kind, s.Suffix)
}

func (s Settings) resourceGroupName() string { return s.name("rg") }
func (s Settings) identityName() string      { return s.name("id") }
func (s Settings) planName() string          { return s.name("plan") }
func (s Settings) appName(n int) string      { return s.name(fmt.Sprintf("func%d", n)) }
func (s Settings) storageAccountName() string {
	return s.Prefix + "st" + s.Suffix
}

// storageRoleName is the role assignment name. Azure requires a UUID; deriving it
// from the run's names keeps it stable across retries of the same run.
func (s Settings) storageRoleName() string {
	key := strings.Join([]string{s.SubscriptionID, s.resourceGroupName(), s.storageAccountName(), s.identityName(), StepStorageRole}, "/")
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// HostName is the custom hostname bound to the first function app.
func (s Settings) HostName() string {
	if s.Domain == "" {
		return ""
	}
	return s.HostLabel + "." + s.Domain
}
