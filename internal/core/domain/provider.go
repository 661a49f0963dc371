package domain

import (
	"fmt"
	"strings"
)

// ProviderType identifies a third-party platform the broker can authorize against
type ProviderType string

const (
	ProviderTypeHubSpot  ProviderType = "hubspot"
	ProviderTypeAirtable ProviderType = "airtable"
	ProviderTypeNotion   ProviderType = "notion"
)

// SupportedProviders returns the fixed set of providers the broker knows about.
// Adding a platform means adding a constant here and one adapter variant.
func SupportedProviders() []ProviderType {
	return []ProviderType{
		ProviderTypeHubSpot,
		ProviderTypeAirtable,
		ProviderTypeNotion,
	}
}

// ParseProviderType converts a raw path or config value into a ProviderType.
// Matching is case-insensitive; unknown values yield ErrUnsupportedProvider.
func ParseProviderType(s string) (ProviderType, error) {
	candidate := ProviderType(strings.ToLower(strings.TrimSpace(s)))
	for _, p := range SupportedProviders() {
		if p == candidate {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, s)
}

// IsValid reports whether the provider is one of SupportedProviders.
func (p ProviderType) IsValid() bool {
	for _, known := range SupportedProviders() {
		if p == known {
			return true
		}
	}
	return false
}

// DisplayName returns a human-readable name for the provider
func (p ProviderType) DisplayName() string {
	switch p {
	case ProviderTypeHubSpot:
		return "HubSpot"
	case ProviderTypeAirtable:
		return "Airtable"
	case ProviderTypeNotion:
		return "Notion"
	default:
		return string(p)
	}
}

// ProviderStatus describes whether a provider can currently serve authorization flows.
type ProviderStatus struct {
	Provider      ProviderType `json:"provider" example:"hubspot"`
	Name          string       `json:"name" example:"HubSpot"`
	Configured    bool         `json:"configured"`
	Reason        string       `json:"reason,omitempty" example:"client secret is missing"`
	SupportsItems bool         `json:"supports_items"`
}
