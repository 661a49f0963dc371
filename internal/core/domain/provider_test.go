package domain

import (
	"errors"
	"testing"
)

func TestProviderTypeConstants(t *testing.T) {
	tests := []struct {
		provider ProviderType
		expected string
	}{
		{ProviderTypeHubSpot, "hubspot"},
		{ProviderTypeAirtable, "airtable"},
		{ProviderTypeNotion, "notion"},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			if string(tt.provider) != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, string(tt.provider))
			}
		})
	}
}

func TestSupportedProviders(t *testing.T) {
	providers := SupportedProviders()
	if len(providers) != 3 {
		t.Fatalf("expected 3 providers, got %d", len(providers))
	}
	for _, p := range providers {
		if !p.IsValid() {
			t.Errorf("expected %s to be valid", p)
		}
	}
}

func TestParseProviderType(t *testing.T) {
	tests := []struct {
		input   string
		want    ProviderType
		wantErr bool
	}{
		{"hubspot", ProviderTypeHubSpot, false},
		{"HubSpot", ProviderTypeHubSpot, false},
		{" notion ", ProviderTypeNotion, false},
		{"airtable", ProviderTypeAirtable, false},
		{"github", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseProviderType(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedProvider) {
					t.Errorf("expected ErrUnsupportedProvider, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestProviderType_DisplayName(t *testing.T) {
	if ProviderTypeHubSpot.DisplayName() != "HubSpot" {
		t.Errorf("unexpected display name %s", ProviderTypeHubSpot.DisplayName())
	}
	if ProviderType("custom").DisplayName() != "custom" {
		t.Error("unknown providers should fall back to their raw value")
	}
}
