package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/oauth-broker/internal/core/domain"
	"github.com/custodia-labs/oauth-broker/internal/core/ports/driven"
)

// Ensure Adapter implements CallerAuthenticator
var _ driven.CallerAuthenticator = (*Adapter)(nil)

// leeway absorbs clock skew between the issuing application and the broker.
const leeway = 30 * time.Second

// jwtClaims wraps driven.CallerClaims for JWT compatibility
type jwtClaims struct {
	UserID         string `json:"user_id"`
	OrganizationID string `json:"org_id"`
	jwt.RegisteredClaims
}

// Adapter validates HS256 bearer tokens minted by the host application
type Adapter struct {
	jwtSecret []byte
}

// NewAdapter creates a new auth adapter with the given JWT secret
func NewAdapter(jwtSecret string) *Adapter {
	return &Adapter{jwtSecret: []byte(jwtSecret)}
}

// GenerateToken creates a signed JWT from caller claims
func (a *Adapter) GenerateToken(claims *driven.CallerClaims) (string, error) {
	jc := jwtClaims{
		UserID:         claims.UserID,
		OrganizationID: claims.OrganizationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.UserID,
			IssuedAt:  jwt.NewNumericDate(time.Unix(claims.IssuedAt, 0)),
			ExpiresAt: jwt.NewNumericDate(time.Unix(claims.ExpiresAt, 0)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jc)
	return token.SignedString(a.jwtSecret)
}

// ParseToken validates a JWT and extracts caller claims.
// Every failure is reported as domain.ErrUnauthorized.
func (a *Adapter) ParseToken(tokenString string) (*driven.CallerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
		return a.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*jwtClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", domain.ErrUnauthorized)
	}
	if claims.UserID == "" || claims.OrganizationID == "" {
		return nil, fmt.Errorf("%w: token lacks user_id or org_id", domain.ErrUnauthorized)
	}

	out := &driven.CallerClaims{
		UserID:         claims.UserID,
		OrganizationID: claims.OrganizationID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Unix()
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Unix()
	}
	return out, nil
}
