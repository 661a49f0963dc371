package airtable

import (
	"golang.org/x/oauth2"

	"github.com/custodia-labs/oauth-broker/internal/adapters/driven/connectors"
	"github.com/custodia-labs/oauth-broker/internal/core/domain"
)

const (
	// AuthURL is Airtable's consent screen.
	AuthURL = "https://airtable.com/oauth2/v1/authorize"

	// TokenURL is Airtable's token endpoint.
	TokenURL = "https://airtable.com/oauth2/v1/token"
)

// DefaultScopes covers records, record comments and base schemas.
func DefaultScopes() []string {
	return []string{
		"data.records:read",
		"data.records:write",
		"data.recordComments:read",
		"data.recordComments:write",
		"schema.bases:read",
		"schema.bases:write",
	}
}

// AdapterConfig returns the Airtable OAuth client configuration.
// Airtable requires PKCE and HTTP basic client authentication.
func AdapterConfig(settings connectors.ClientSettings) connectors.AdapterConfig {
	return settings.Apply(connectors.AdapterConfig{
		Provider:  domain.ProviderTypeAirtable,
		AuthURL:   AuthURL,
		TokenURL:  TokenURL,
		Scopes:    DefaultScopes(),
		AuthStyle: oauth2.AuthStyleInHeader,
		PKCE:      true,
	})
}
