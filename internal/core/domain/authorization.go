package domain

import (
	"strings"
	"time"
)

// DefaultStateTTL is how long an issued state token stays redeemable.
const DefaultStateTTL = 10 * time.Minute

// AuthorizationPhase is the position of one (user, organization, provider)
// key in the authorize -> callback -> exchange protocol.
type AuthorizationPhase string

const (
	PhasePendingCallback AuthorizationPhase = "pending_callback"
	PhaseExchanged       AuthorizationPhase = "exchanged"
)

// Correlation carries the caller-supplied identifiers that tie an
// authorization attempt back to the user and organization that started it.
type Correlation struct {
	UserID         string `json:"user_id" example:"u1"`
	OrganizationID string `json:"organization_id" example:"o1"`
}

// Validate checks that both identifiers are present
func (c Correlation) Validate() error {
	if strings.TrimSpace(c.UserID) == "" || strings.TrimSpace(c.OrganizationID) == "" {
		return ErrInvalidInput
	}
	return nil
}

// AuthorizationState is one in-flight authorization attempt.
// It is written once when the flow begins and read once on callback.
type AuthorizationState struct {
	Token          string       `json:"token"`
	UserID         string       `json:"user_id"`
	OrganizationID string       `json:"organization_id"`
	Provider       ProviderType `json:"provider"`

	// RedirectURI is the callback URL sent to the provider; the token
	// exchange must present the same value.
	RedirectURI string `json:"redirect_uri,omitempty"`

	// CodeVerifier is the PKCE verifier for providers that require it.
	CodeVerifier string `json:"code_verifier,omitempty"`

	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Correlation returns the identifiers the state was issued for
func (s *AuthorizationState) Correlation() Correlation {
	return Correlation{UserID: s.UserID, OrganizationID: s.OrganizationID}
}

// IsExpired reports whether the state is past its redemption window at now.
func (s *AuthorizationState) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// CredentialKey identifies the single live credential slot for a
// user within an organization on one provider.
type CredentialKey struct {
	Provider       ProviderType `json:"provider" example:"hubspot"`
	UserID         string       `json:"user_id" example:"u1"`
	OrganizationID string       `json:"organization_id" example:"o1"`
}

// Validate checks the key is fully populated
func (k CredentialKey) Validate() error {
	if !k.Provider.IsValid() {
		return ErrUnsupportedProvider
	}
	return Correlation{UserID: k.UserID, OrganizationID: k.OrganizationID}.Validate()
}

// Credential is an exchanged, usable access grant.
// Credentials are replaced wholesale, never partially mutated.
type Credential struct {
	Provider       ProviderType `json:"provider"`
	UserID         string       `json:"user_id"`
	OrganizationID string       `json:"organization_id"`

	AccessToken  string `json:"-"` // Never serialize
	RefreshToken string `json:"-"` // Never serialize
	TokenType    string `json:"token_type,omitempty"`

	Scopes     []string   `json:"scopes,omitempty"`
	ObtainedAt time.Time  `json:"obtained_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"` // nil when the provider reports no lifetime
}

// Key returns the storage key of the credential
func (c *Credential) Key() CredentialKey {
	return CredentialKey{
		Provider:       c.Provider,
		UserID:         c.UserID,
		OrganizationID: c.OrganizationID,
	}
}

// IsExpired checks if the credential is past its expiry at now
func (c *Credential) IsExpired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !now.Before(*c.ExpiresAt)
}

// TTL returns the remaining lifetime at now. Zero means no expiry;
// a negative value means the credential is already dead.
func (c *Credential) TTL(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	ttl := c.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return -1
	}
	return ttl
}
