package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/oauth-broker/internal/core/domain"
)

// AuthorizationService brokers OAuth authorization-code flows and exposes
// the resulting credentials to calling code.
type AuthorizationService interface {
	// BeginAuthorization issues a state token and returns the provider's
	// consent URL for client-side redirect.
	BeginAuthorization(ctx context.Context, req BeginRequest) (*BeginResponse, error)

	// HandleCallback consumes the state token and exchanges the code.
	// Invalid state is terminal: the caller must restart the flow.
	HandleCallback(ctx context.Context, req CallbackRequest) (*domain.Credential, error)

	// FetchCredential reads the live credential for key without consuming it.
	FetchCredential(ctx context.Context, key domain.CredentialKey) (*domain.Credential, error)

	// Disconnect revokes the credential for key. Idempotent.
	Disconnect(ctx context.Context, key domain.CredentialKey) error

	// Providers reports which providers can currently serve flows.
	Providers(ctx context.Context) []domain.ProviderStatus
}

// ItemService loads provider objects with a stored credential.
type ItemService interface {
	LoadItems(ctx context.Context, key domain.CredentialKey) ([]domain.IntegrationItem, error)
}

// BeginRequest represents a request to start an authorization flow.
// @Description Request to start an OAuth authorization flow
type BeginRequest struct {
	domain.Correlation
	Provider domain.ProviderType `json:"-"`
}

// BeginResponse contains the authorization URL and state.
// @Description Response containing the provider consent URL
type BeginResponse struct {
	// AuthorizationURL is the URL to redirect the user to for authorization.
	AuthorizationURL string `json:"authorization_url" example:"https://app.hubspot.com/oauth/authorize?client_id=..."`

	// State is the anti-forgery token embedded in the URL.
	// Returned for reference - the frontend does not need to track it.
	State string `json:"state" example:"q0k3n..."`

	// ExpiresAt is when the state stops being redeemable.
	ExpiresAt time.Time `json:"expires_at" example:"2024-01-15T10:10:00Z"`

	Phase domain.AuthorizationPhase `json:"phase" example:"pending_callback"`
}

// CallbackRequest represents the provider redirect back to the broker.
type CallbackRequest struct {
	// State is the anti-forgery token returned by the provider.
	State string

	// Code is the authorization code from the provider.
	Code string

	// RedirectURI overrides the redirect URI recorded with the state.
	// Leave empty to use the recorded one.
	RedirectURI string

	// Provider is the provider the callback arrived for, when known from
	// the route. Must match the state's provider.
	Provider domain.ProviderType

	// Error is set if the provider returned an error (e.g. access_denied).
	Error string

	// ErrorDescription provides details about the error.
	ErrorDescription string
}

// CredentialResponse is the caller-facing view of a stored credential.
// Unlike domain.Credential it carries the access token explicitly.
// @Description Live credential for a (provider, user, organization) key
type CredentialResponse struct {
	Provider       domain.ProviderType `json:"provider" example:"hubspot"`
	UserID         string              `json:"user_id" example:"u1"`
	OrganizationID string              `json:"organization_id" example:"o1"`
	AccessToken    string              `json:"access_token" example:"tok123"`
	RefreshToken   string              `json:"refresh_token,omitempty"`
	TokenType      string              `json:"token_type,omitempty" example:"bearer"`
	Scopes         []string            `json:"scopes,omitempty"`
	ObtainedAt     time.Time           `json:"obtained_at"`
	ExpiresAt      *time.Time          `json:"expires_at,omitempty"`

	// Phase is always exchanged: only exchanged credentials are stored.
	Phase domain.AuthorizationPhase `json:"phase" example:"exchanged"`
}

// NewCredentialResponse maps a domain credential to its API view
func NewCredentialResponse(c *domain.Credential) *CredentialResponse {
	return &CredentialResponse{
		Provider:       c.Provider,
		UserID:         c.UserID,
		OrganizationID: c.OrganizationID,
		AccessToken:    c.AccessToken,
		RefreshToken:   c.RefreshToken,
		TokenType:      c.TokenType,
		Scopes:         c.Scopes,
		ObtainedAt:     c.ObtainedAt,
		ExpiresAt:      c.ExpiresAt,
		Phase:          domain.PhaseExchanged,
	}
}
