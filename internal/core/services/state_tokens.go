package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/custodia-labs/oauth-broker/internal/core/domain"
	"github.com/custodia-labs/oauth-broker/internal/core/ports/driven"
)

const (
	// stateTokenBytes is the entropy of a state token (256 bits).
	stateTokenBytes = 32

	// Encoded token length bounds; anything outside cannot have been issued by us.
	minStateTokenLen = 32
	maxStateTokenLen = 128
)

// IssueOptions carries per-flow data recorded alongside a state token.
type IssueOptions struct {
	RedirectURI  string
	CodeVerifier string
}

// StateTokenStore issues and single-use-consumes anti-forgery state tokens.
// Persistence is delegated to a driven.StateStore whose GetAndDelete is atomic.
type StateTokenStore struct {
	store driven.StateStore
	ttl   time.Duration
	now   func() time.Time
}

// NewStateTokenStore creates a state token store. A non-positive ttl
// falls back to domain.DefaultStateTTL.
func NewStateTokenStore(store driven.StateStore, ttl time.Duration) *StateTokenStore {
	if ttl <= 0 {
		ttl = domain.DefaultStateTTL
	}
	return &StateTokenStore{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// TTL returns the redemption window of issued tokens
func (s *StateTokenStore) TTL() time.Duration {
	return s.ttl
}

// Issue generates a fresh token and records the authorization state.
func (s *StateTokenStore) Issue(ctx context.Context, corr domain.Correlation, provider domain.ProviderType, opts IssueOptions) (*domain.AuthorizationState, error) {
	if err := corr.Validate(); err != nil {
		return nil, err
	}

	token, err := generateRandomToken(stateTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}

	now := s.now()
	state := &domain.AuthorizationState{
		Token:          token,
		UserID:         corr.UserID,
		OrganizationID: corr.OrganizationID,
		Provider:       provider,
		RedirectURI:    opts.RedirectURI,
		CodeVerifier:   opts.CodeVerifier,
		IssuedAt:       now,
		ExpiresAt:      now.Add(s.ttl),
	}

	if err := s.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("save authorization state: %w", err)
	}

	return state, nil
}

// Consume atomically retrieves and removes the state for token.
// Unknown, already consumed and expired tokens all yield
// domain.ErrInvalidOrExpiredState.
func (s *StateTokenStore) Consume(ctx context.Context, token string) (*domain.AuthorizationState, error) {
	if !wellFormedToken(token) {
		return nil, domain.ErrInvalidOrExpiredState
	}

	state, err := s.store.GetAndDelete(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("consume authorization state: %w", err)
	}
	if state == nil {
		return nil, domain.ErrInvalidOrExpiredState
	}

	// Backends reap lazily; ExpiresAt is authoritative.
	if state.IsExpired(s.now()) {
		return nil, domain.ErrInvalidOrExpiredState
	}

	return state, nil
}

// wellFormedToken rejects tokens we could never have issued without a store round trip.
func wellFormedToken(token string) bool {
	if len(token) < minStateTokenLen || len(token) > maxStateTokenLen {
		return false
	}
	for _, c := range token {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// generateRandomToken returns n cryptographically random bytes, base64url encoded.
func generateRandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// fingerprint is a log-safe identifier for a secret value.
func fingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:4])
}
