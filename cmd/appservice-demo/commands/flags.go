// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package commands

import (
	"github.com/spf13/pflag"

	"github.com/platform-engineering-labs/formae-plugin-azure-appservice/pkg/appservice"
)

// bindSettings registers the flags shared by run and plan, defaulting to s.
func bindSettings(flags *pflag.FlagSet, s *appservice.Settings) {
	flags.StringVarP(&s.Location, "location", "l", s.Location, "Azure region for every regional resource")
	flags.StringVar(&s.Prefix, "prefix", s.Prefix, "Lowercase prefix for resource names")
	flags.StringVar(&s.Suffix, "suffix", s.Suffix, "Lowercase suffix for resource names (random by default)")
	flags.StringVar(&s.PlanSKU, "sku", s.PlanSKU, "App Service plan SKU name")
	flags.StringVar(&s.PlanTier, "tier", s.PlanTier, "App Service plan SKU tier")
	flags.StringVar(&s.Runtime, "runtime", s.Runtime, "Functions worker runtime")
	flags.IntVar(&s.Concurrency, "concurrency", s.Concurrency, "Maximum number of independent steps created at once")

	flags.StringVar(&s.Domain, "domain", s.Domain, "Domain to purchase and bind; empty skips domain and binding")
	flags.StringVar(&s.HostLabel, "host-label", s.HostLabel, "Label of the custom hostname under the domain")
	flags.StringVar(&s.AgreedBy, "agreed-by", s.AgreedBy, "Client IP address recorded with the domain purchase consent")
	flags.StringVar(&s.Contact.FirstName, "contact-first-name", s.Contact.FirstName, "Domain contact first name")
	flags.StringVar(&s.Contact.LastName, "contact-last-name", s.Contact.LastName, "Domain contact last name")
	flags.StringVar(&s.Contact.Email, "contact-email", s.Contact.Email, "Domain contact email")
	flags.StringVar(&s.Contact.Phone, "contact-phone", s.Contact.Phone, "Domain contact phone (+1.4258828080 form)")
	flags.StringVar(&s.Contact.Address, "contact-address", s.Contact.Address, "Domain contact street address")
	flags.StringVar(&s.Contact.City, "contact-city", s.Contact.City, "Domain contact city")
	flags.StringVar(&s.Contact.State, "contact-state", s.Contact.State, "Domain contact state")
	flags.StringVar(&s.Contact.Country, "contact-country", s.Contact.Country, "Domain contact country code")
	flags.StringVar(&s.Contact.PostalCode, "contact-postal-code", s.Contact.PostalCode, "Domain contact postal code")
}
