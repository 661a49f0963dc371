package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/oauth-broker/internal/core/domain"
	"github.com/custodia-labs/oauth-broker/internal/core/ports/driven"
)

// CredentialStore holds exchanged credentials with lifetime bounded by
// token expiry. Reads never write; freshness is re-checked against
// ExpiresAt on every read.
type CredentialStore struct {
	store  driven.CredentialStore
	logger *slog.Logger
	now    func() time.Time
}

// NewCredentialStore creates a credential store over a driven backend.
func NewCredentialStore(store driven.CredentialStore, logger *slog.Logger) *CredentialStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialStore{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Put upserts cred, overwriting any credential under the same key.
func (s *CredentialStore) Put(ctx context.Context, cred *domain.Credential) error {
	if cred == nil || cred.AccessToken == "" {
		return domain.ErrInvalidInput
	}
	if err := cred.Key().Validate(); err != nil {
		return err
	}

	if err := s.store.Put(ctx, cred); err != nil {
		return fmt.Errorf("put credential: %w", err)
	}
	return nil
}

// Get returns the live credential for key.
func (s *CredentialStore) Get(ctx context.Context, key domain.CredentialKey) (*domain.Credential, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	cred, err := s.store.Get(ctx, key)
	if errors.Is(err, domain.ErrCredentialNotFound) {
		return nil, domain.ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}

	if cred.IsExpired(s.now()) {
		// Left for the backend TTL or the janitor. Deleting here could
		// remove a fresh credential written since the read.
		s.logger.Debug("expired credential not yet reaped", "provider", key.Provider)
		return nil, domain.ErrCredentialNotFound
	}

	return cred, nil
}

// Revoke deletes the credential for key. Revoking a missing key succeeds.
func (s *CredentialStore) Revoke(ctx context.Context, key domain.CredentialKey) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("revoke credential: %w", err)
	}
	return nil
}
