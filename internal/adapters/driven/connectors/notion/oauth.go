package notion

import (
	"golang.org/x/oauth2"

	"github.com/custodia-labs/oauth-broker/internal/adapters/driven/connectors"
	"github.com/custodia-labs/oauth-broker/internal/core/domain"
)

const (
	AuthURL    = "https://api.notion.com/v1/oauth/authorize"
	TokenURL   = "https://api.notion.com/v1/oauth/token"
	APIBaseURL = "https://api.notion.com"

	// APIVersion is sent as the Notion-Version header.
	APIVersion = "2022-06-28"
)

// AdapterConfig returns the Notion OAuth client configuration.
// Notion has no scopes; access is granted per page by the user, and
// owner=user is mandatory on the consent URL.
func AdapterConfig(settings connectors.ClientSettings) connectors.AdapterConfig {
	return settings.Apply(connectors.AdapterConfig{
		Provider:   domain.ProviderTypeNotion,
		AuthURL:    AuthURL,
		TokenURL:   TokenURL,
		AuthStyle:  oauth2.AuthStyleInHeader,
		AuthParams: map[string]string{"owner": "user"},
	})
}
