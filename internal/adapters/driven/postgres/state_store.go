package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/oauth-broker/internal/core/domain"
	"github.com/custodia-labs/oauth-broker/internal/core/ports/driven"
)

// Ensure StateStore implements the interface.
var _ driven.StateStore = (*StateStore)(nil)

// StateStore implements driven.StateStore using PostgreSQL.
type StateStore struct {
	db *DB
}

// NewStateStore creates a new PostgreSQL-backed state store.
func NewStateStore(db *DB) *StateStore {
	return &StateStore{db: db}
}

// Save stores a new authorization state. A duplicate token fails on the
// primary key rather than replacing the pending state.
func (s *StateStore) Save(ctx context.Context, state *domain.AuthorizationState) error {
	query := `
		INSERT INTO oauth_states (state, provider, user_id, organization_id, redirect_uri, code_verifier, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		state.Token,
		string(state.Provider),
		state.UserID,
		state.OrganizationID,
		state.RedirectURI,
		state.CodeVerifier,
		state.IssuedAt,
		state.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}
	return nil
}

// GetAndDelete atomically retrieves and deletes the state.
// DELETE ... RETURNING gives the row to exactly one concurrent caller;
// expired rows are never returned.
func (s *StateStore) GetAndDelete(ctx context.Context, token string) (*domain.AuthorizationState, error) {
	query := `
		DELETE FROM oauth_states
		WHERE state = $1 AND expires_at > NOW()
		RETURNING state, provider, user_id, organization_id, redirect_uri, code_verifier, issued_at, expires_at
	`

	var (
		state    domain.AuthorizationState
		provider string
	)
	err := s.db.QueryRowContext(ctx, query, token).Scan(
		&state.Token,
		&provider,
		&state.UserID,
		&state.OrganizationID,
		&state.RedirectURI,
		&state.CodeVerifier,
		&state.IssuedAt,
		&state.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // State not found or expired
	}
	if err != nil {
		return nil, fmt.Errorf("get and delete oauth state: %w", err)
	}

	state.Provider = domain.ProviderType(provider)
	return &state, nil
}

// Cleanup removes expired states.
func (s *StateStore) Cleanup(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM oauth_states WHERE expires_at <= NOW()`); err != nil {
		return fmt.Errorf("cleanup oauth states: %w", err)
	}
	return nil
}

// Ping checks if the database is reachable
func (s *StateStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
