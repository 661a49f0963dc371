package driven

import (
	"context"

	"github.com/custodia-labs/oauth-broker/internal/core/domain"
)

// CredentialStore holds exchanged credentials keyed by (provider, user, organization).
type CredentialStore interface {
	// Put upserts the credential, replacing any prior one under the same key.
	// Store-level expiry follows cred.ExpiresAt; nil means no auto-expiry.
	Put(ctx context.Context, cred *domain.Credential) error

	// Get returns the credential for key without consuming it.
	// Returns domain.ErrCredentialNotFound if absent.
	Get(ctx context.Context, key domain.CredentialKey) (*domain.Credential, error)

	// Delete removes the credential. Deleting a missing key is not an error.
	Delete(ctx context.Context, key domain.CredentialKey) error

	// Cleanup removes expired credentials.
	// Backends with native expiry may implement this as a no-op.
	Cleanup(ctx context.Context) error
}
