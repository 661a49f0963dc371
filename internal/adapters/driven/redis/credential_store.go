package redis

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/oauth-broker/internal/core/domain"
	"github.com/custodia-labs/oauth-broker/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CredentialStore = (*CredentialStore)(nil)

// credentialPrefix namespaces credentials: cred:{provider}:{organizationId}:{userId}.
// The id parts are query-escaped so ids containing ':' cannot collide.
const credentialPrefix = "cred:"

// CredentialStore implements driven.CredentialStore using Redis.
// Entries carry a TTL matching the token lifetime; credentials without
// an expiry are stored without one.
type CredentialStore struct {
	client *redis.Client
	sealer driven.CredentialSealer
	now    func() time.Time
}

// NewCredentialStore creates a new Redis-backed CredentialStore
func NewCredentialStore(client *redis.Client, sealer driven.CredentialSealer) *CredentialStore {
	return &CredentialStore{
		client: client,
		sealer: sealer,
		now:    time.Now,
	}
}

func credentialKey(key domain.CredentialKey) string {
	return credentialPrefix + string(key.Provider) + ":" + url.QueryEscape(key.OrganizationID) + ":" + url.QueryEscape(key.UserID)
}

// Put overwrites the credential under its key.
func (s *CredentialStore) Put(ctx context.Context, cred *domain.Credential) error {
	key := credentialKey(cred.Key())

	ttl := cred.TTL(s.now())
	if ttl < 0 {
		// Already dead: the write still replaces whatever was there
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to delete credential: %w", err)
		}
		return nil
	}

	blob, err := s.sealer.Seal(cred)
	if err != nil {
		return err
	}

	// A zero TTL also clears any expiry left by a previous credential
	if err := s.client.Set(ctx, key, blob, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// Get returns the credential for key.
func (s *CredentialStore) Get(ctx context.Context, key domain.CredentialKey) (*domain.Credential, error) {
	blob, err := s.client.Get(ctx, credentialKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	cred, err := s.sealer.Open(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential: %w", err)
	}
	if cred.Key() != key {
		return nil, fmt.Errorf("credential stored under %s belongs to another key", credentialKey(key))
	}
	return cred, nil
}

// Delete removes the credential. Missing keys are not an error.
func (s *CredentialStore) Delete(ctx context.Context, key domain.CredentialKey) error {
	if err := s.client.Del(ctx, credentialKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

// Cleanup is a no-op; Redis expires credentials natively.
func (s *CredentialStore) Cleanup(ctx context.Context) error {
	return nil
}
