package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/oauth-broker/internal/core/domain"
	"github.com/custodia-labs/oauth-broker/internal/core/ports/driven"
)

func validClaims() *driven.CallerClaims {
	now := time.Now()
	return &driven.CallerClaims{
		UserID:         "u1",
		OrganizationID: "o1",
		IssuedAt:       now.Unix(),
		ExpiresAt:      now.Add(time.Hour).Unix(),
	}
}

func TestGenerateToken(t *testing.T) {
	adapter := NewAdapter("test-jwt-secret")

	token, err := adapter.GenerateToken(validClaims())
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	// JWT tokens have 3 parts separated by dots
	if parts := strings.Count(token, "."); parts != 2 {
		t.Errorf("expected JWT with 2 dots (3 parts), got %d dots", parts)
	}
}

func TestParseToken_ValidToken(t *testing.T) {
	adapter := NewAdapter("test-jwt-secret")

	original := validClaims()
	token, _ := adapter.GenerateToken(original)

	parsed, err := adapter.ParseToken(token)
	if err != nil {
		t.Fatalf("failed to parse token: %v", err)
	}
	if parsed.UserID != original.UserID {
		t.Errorf("expected UserID %s, got %s", original.UserID, parsed.UserID)
	}
	if parsed.OrganizationID != original.OrganizationID {
		t.Errorf("expected OrganizationID %s, got %s", original.OrganizationID, parsed.OrganizationID)
	}
	if parsed.ExpiresAt != original.ExpiresAt {
		t.Errorf("expected ExpiresAt %d, got %d", original.ExpiresAt, parsed.ExpiresAt)
	}
	if got := parsed.Correlation(); got.UserID != "u1" || got.OrganizationID != "o1" {
		t.Errorf("Correlation() = %+v", got)
	}
}

func TestParseToken_Rejected(t *testing.T) {
	adapter := NewAdapter("test-jwt-secret")

	expired := validClaims()
	expired.IssuedAt = time.Now().Add(-3 * time.Hour).Unix()
	expired.ExpiresAt = time.Now().Add(-2 * time.Hour).Unix()
	expiredToken, _ := adapter.GenerateToken(expired)

	noOrg := validClaims()
	noOrg.OrganizationID = ""
	noOrgToken, _ := adapter.GenerateToken(noOrg)

	otherSecret, _ := NewAdapter("another-secret").GenerateToken(validClaims())

	// HS512 with the right secret is still refused
	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, jwtClaims{
		UserID:         "u1",
		OrganizationID: "o1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-jwt-secret"))

	// No exp claim at all
	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		UserID:         "u1",
		OrganizationID: "o1",
	}).SignedString([]byte("test-jwt-secret"))

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expiredToken},
		{"missing org", noOrgToken},
		{"wrong secret", otherSecret},
		{"wrong algorithm", hs512},
		{"no expiry", noExp},
		{"malformed", "invalid.token.here"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := adapter.ParseToken(tt.token)
			if !errors.Is(err, domain.ErrUnauthorized) {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}
