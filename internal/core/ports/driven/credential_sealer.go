package driven

import "github.com/custodia-labs/oauth-broker/internal/core/domain"

// CredentialSealer encodes credentials, secrets included, for storage.
// Implementations may encrypt; stores treat the output as opaque bytes.
type CredentialSealer interface {
	// Seal encodes cred into a storage blob.
	Seal(cred *domain.Credential) ([]byte, error)

	// Open decodes a blob produced by Seal.
	Open(blob []byte) (*domain.Credential, error)
}
