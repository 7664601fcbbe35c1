// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package config

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// Environment keys read by FromEnv.
const (
	EnvTenantID       = "AZURE_TENANT_ID"
	EnvClientID       = "AZURE_CLIENT_ID"
	EnvClientSecret   = "AZURE_CLIENT_SECRET"
	EnvSubscriptionID = "AZURE_SUBSCRIPTION_ID"
)

// ConfigurationError reports a missing or invalid process input.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("configuration: %s is required", e.Key)
	}
	return fmt.Sprintf("configuration: %s %s", e.Key, e.Reason)
}

// Config holds the Azure identity and subscription a run works against.
// It is collected once at startup and passed down explicitly.
type Config struct {
	TenantID       string
	ClientID       string
	ClientSecret   string
	SubscriptionId string
}

// FromEnv builds a Config from environment-style lookups and validates it.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}
	cfg := &Config{
		TenantID:       get(EnvTenantID),
		ClientID:       get(EnvClientID),
		ClientSecret:   get(EnvClientSecret),
		SubscriptionId: get(EnvSubscriptionID),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every credential input is present, in the order the
// environment keys are listed.
func (c *Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{EnvTenantID, c.TenantID},
		{EnvClientID, c.ClientID},
		{EnvClientSecret, c.ClientSecret},
		{EnvSubscriptionID, c.SubscriptionId},
	}
	for _, r := range required {
		if r.value == "" {
			return &ConfigurationError{Key: r.key}
		}
	}
	return nil
}

// FromTargetConfig extracts Azure configuration from target config JSON.
// Only the subscription travels in target config; credentials come from the
// default chain.
func FromTargetConfig(targetConfig json.RawMessage) *Config {
	if targetConfig == nil {
		return &Config{}
	}

	var cfg map[string]any
	if err := json.Unmarshal(targetConfig, &cfg); err != nil {
		return &Config{}
	}

	subscriptionID, _ := cfg["SubscriptionId"].(string)
	return &Config{
		SubscriptionId: subscriptionID,
	}
}

// TargetConfig renders the target config JSON for this Config. Secrets are left out.
func (c *Config) TargetConfig() json.RawMessage {
	data, _ := json.Marshal(map[string]string{"SubscriptionId": c.SubscriptionId})
	return data
}

// ToAzureCredential returns a client secret credential when tenant, client id and
// secret are all set, and the DefaultAzureCredential chain otherwise.
func (c *Config) ToAzureCredential(ctx context.Context) (azcore.TokenCredential, error) {
	if c.TenantID != "" && c.ClientID != "" && c.ClientSecret != "" {
		return azidentity.NewClientSecretCredential(c.TenantID, c.ClientID, c.ClientSecret, nil)
	}
	return azidentity.NewDefaultAzureCredential(nil)
}
