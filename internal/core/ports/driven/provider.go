package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/oauth-broker/internal/core/domain"
)

// OAuthToken represents tokens returned by a provider's token endpoint.
type OAuthToken struct {
	AccessToken  string
	RefreshToken string
	TokenType    string    // Usually "Bearer"
	Scope        string    // Space or comma separated scopes, as reported by the provider
	Expiry       time.Time // Zero when the provider reports no lifetime
}

// ExchangeRequest carries the inputs of an authorization-code exchange.
type ExchangeRequest struct {
	Code         string
	RedirectURI  string
	CodeVerifier string // PKCE verifier; empty for providers without PKCE
}

// ProviderAdapter knows how to talk OAuth to one platform.
// Each supported domain.ProviderType has exactly one adapter variant.
type ProviderAdapter interface {
	// Provider returns the platform this adapter serves.
	Provider() domain.ProviderType

	// BuildAuthorizationURL constructs the consent-screen URL embedding the
	// state token and the adapter's fixed scope list. Must not perform I/O.
	BuildAuthorizationURL(state *domain.AuthorizationState) (string, error)

	// ExchangeCode trades an authorization code for tokens.
	// Failures are *domain.ProviderExchangeError, domain.ErrProviderTimeout
	// or domain.ErrNetwork.
	ExchangeCode(ctx context.Context, req ExchangeRequest) (*OAuthToken, error)

	// RedirectURL is the callback URL registered with the provider.
	RedirectURL() string

	// Scopes returns the scopes requested during authorization.
	Scopes() []string

	// UsesPKCE reports whether the adapter needs a code verifier.
	UsesPKCE() bool
}

// ItemLoader fetches a provider's objects with an access token and maps
// them into domain.IntegrationItem envelopes.
type ItemLoader interface {
	Provider() domain.ProviderType

	// LoadItems returns domain.ErrProviderUnauthorized when the provider
	// refuses the access token.
	LoadItems(ctx context.Context, accessToken string) ([]domain.IntegrationItem, error)
}

// ProviderRegistry resolves adapters and item loaders by provider type.
type ProviderRegistry interface {
	// Adapter returns domain.ErrUnsupportedProvider for unknown providers and
	// domain.ErrProviderMisconfigured for providers whose configuration was
	// rejected at startup.
	Adapter(provider domain.ProviderType) (ProviderAdapter, error)

	// ItemLoader returns domain.ErrUnsupportedProvider when the provider has
	// no loader registered.
	ItemLoader(provider domain.ProviderType) (ItemLoader, error)

	// Status reports the configuration state of every supported provider.
	Status() []domain.ProviderStatus
}
