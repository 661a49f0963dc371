package driven

import "github.com/custodia-labs/oauth-broker/internal/core/domain"

// CallerClaims identify the application user calling the broker API.
type CallerClaims struct {
	UserID         string
	OrganizationID string
	IssuedAt       int64
	ExpiresAt      int64
}

// Correlation returns the claims as a correlation pair
func (c *CallerClaims) Correlation() domain.Correlation {
	return domain.Correlation{UserID: c.UserID, OrganizationID: c.OrganizationID}
}

// CallerAuthenticator validates bearer tokens presented to the broker API.
type CallerAuthenticator interface {
	// GenerateToken signs claims into a bearer token.
	GenerateToken(claims *CallerClaims) (string, error)

	// ParseToken validates a bearer token and returns its claims.
	// Returns domain.ErrUnauthorized for any invalid or expired token.
	ParseToken(token string) (*CallerClaims, error)
}
