package hubspot

import (
	"golang.org/x/oauth2"

	"github.com/custodia-labs/oauth-broker/internal/adapters/driven/connectors"
	"github.com/custodia-labs/oauth-broker/internal/core/domain"
)

const (
	// AuthURL is HubSpot's consent screen.
	AuthURL = "https://app.hubspot.com/oauth/authorize"

	// TokenURL is HubSpot's token endpoint.
	TokenURL = "https://api.hubapi.com/oauth/v1/token"

	// APIBaseURL is the CRM API root.
	APIBaseURL = "https://api.hubapi.com"
)

// DefaultScopes grants read access to contacts, companies and deals.
func DefaultScopes() []string {
	return []string{
		"oauth",
		"crm.objects.contacts.read",
		"crm.objects.companies.read",
		"crm.objects.deals.read",
	}
}

// AdapterConfig returns the HubSpot OAuth client configuration.
// HubSpot expects client credentials in the form body.
func AdapterConfig(settings connectors.ClientSettings) connectors.AdapterConfig {
	return settings.Apply(connectors.AdapterConfig{
		Provider:  domain.ProviderTypeHubSpot,
		AuthURL:   AuthURL,
		TokenURL:  TokenURL,
		Scopes:    DefaultScopes(),
		AuthStyle: oauth2.AuthStyleInParams,
	})
}
