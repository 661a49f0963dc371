package driven

import (
	"context"

	"github.com/custodia-labs/oauth-broker/internal/core/domain"
)

// StateStore persists pending authorization states for CSRF protection.
// States are write-once, read-once and expire after a short period.
type StateStore interface {
	// Save stores a new state. The entry must expire at state.ExpiresAt.
	Save(ctx context.Context, state *domain.AuthorizationState) error

	// GetAndDelete atomically retrieves and deletes the state.
	// This ensures single-use semantics even under concurrent callers.
	// Returns nil, nil if the state doesn't exist or has expired.
	GetAndDelete(ctx context.Context, token string) (*domain.AuthorizationState, error)

	// Cleanup removes expired states.
	// Backends with native expiry may implement this as a no-op.
	Cleanup(ctx context.Context) error

	// Ping checks if the backend is healthy.
	Ping(ctx context.Context) error
}
