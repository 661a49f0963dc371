package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/oauth-broker/internal/core/domain"
	"github.com/custodia-labs/oauth-broker/internal/core/ports/driven"
)

// Ensure CredentialStore implements the interface.
var _ driven.CredentialStore = (*CredentialStore)(nil)

// CredentialStore implements driven.CredentialStore using PostgreSQL.
// The credential, secrets included, is stored as one sealed payload;
// expires_at is kept in clear for filtering and cleanup.
type CredentialStore struct {
	db     *DB
	sealer driven.CredentialSealer
}

// NewCredentialStore creates a new PostgreSQL-backed credential store.
func NewCredentialStore(db *DB, sealer driven.CredentialSealer) *CredentialStore {
	return &CredentialStore{db: db, sealer: sealer}
}

// Put upserts the credential; the last writer wins.
func (s *CredentialStore) Put(ctx context.Context, cred *domain.Credential) error {
	payload, err := s.sealer.Seal(cred)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO oauth_credentials (provider, organization_id, user_id, payload, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (provider, organization_id, user_id) DO UPDATE SET
			payload = EXCLUDED.payload,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		string(cred.Provider),
		cred.OrganizationID,
		cred.UserID,
		payload,
		NullTime(cred.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("put credential: %w", err)
	}
	return nil
}

// Get returns the live credential for key.
func (s *CredentialStore) Get(ctx context.Context, key domain.CredentialKey) (*domain.Credential, error) {
	query := `
		SELECT payload FROM oauth_credentials
		WHERE provider = $1 AND organization_id = $2 AND user_id = $3
		  AND (expires_at IS NULL OR expires_at > NOW())
	`

	var payload []byte
	err := s.db.QueryRowContext(ctx, query, string(key.Provider), key.OrganizationID, key.UserID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}

	cred, err := s.sealer.Open(payload)
	if err != nil {
		return nil, fmt.Errorf("open credential: %w", err)
	}
	if cred.Key() != key {
		return nil, fmt.Errorf("credential row %s/%s/%s holds another key", key.Provider, key.OrganizationID, key.UserID)
	}
	return cred, nil
}

// Delete removes the credential. Missing rows are not an error.
func (s *CredentialStore) Delete(ctx context.Context, key domain.CredentialKey) error {
	query := `DELETE FROM oauth_credentials WHERE provider = $1 AND organization_id = $2 AND user_id = $3`
	if _, err := s.db.ExecContext(ctx, query, string(key.Provider), key.OrganizationID, key.UserID); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

// Cleanup removes expired credentials.
func (s *CredentialStore) Cleanup(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM oauth_credentials WHERE expires_at <= NOW()`); err != nil {
		return fmt.Errorf("cleanup credentials: %w", err)
	}
	return nil
}
