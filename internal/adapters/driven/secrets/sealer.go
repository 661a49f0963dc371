package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/oauth-broker/internal/core/domain"
	"github.com/custodia-labs/oauth-broker/internal/core/ports/driven"
)

// Ensure CredentialSealer implements the interface.
var _ driven.CredentialSealer = (*CredentialSealer)(nil)

// ErrSealedWithoutKey is returned when a sealed blob is read by a
// sealer that has no encryption key.
var ErrSealedWithoutKey = errors.New("credential is sealed but no encryption key is configured")

// record is the stored form of a credential, secrets included.
type record struct {
	Provider       domain.ProviderType `json:"provider"`
	UserID         string              `json:"user_id"`
	OrganizationID string              `json:"organization_id"`
	AccessToken    string              `json:"access_token"`
	RefreshToken   string              `json:"refresh_token,omitempty"`
	TokenType      string              `json:"token_type,omitempty"`
	Scopes         []string            `json:"scopes,omitempty"`
	ObtainedAt     time.Time           `json:"obtained_at"`
	ExpiresAt      *time.Time          `json:"expires_at,omitempty"`
}

// envelope carries the key in clear so the AAD can be rebuilt on read.
type envelope struct {
	Provider       domain.ProviderType `json:"provider"`
	UserID         string              `json:"user_id"`
	OrganizationID string              `json:"organization_id"`
	Sealed         []byte              `json:"sealed,omitempty"`
	Plain          *record             `json:"plain,omitempty"`
}

// CredentialSealer encodes credentials for the stores. With an encryptor
// the secrets are sealed with AES-256-GCM bound to the credential key;
// without one they are stored as plain JSON.
type CredentialSealer struct {
	encryptor *SecretEncryptor
}

// NewCredentialSealer creates a sealer. encryptor may be nil.
func NewCredentialSealer(encryptor *SecretEncryptor) *CredentialSealer {
	return &CredentialSealer{encryptor: encryptor}
}

// Encrypted reports whether credentials are sealed at rest.
func (s *CredentialSealer) Encrypted() bool {
	return s.encryptor != nil
}

// Seal encodes cred into a storage blob.
func (s *CredentialSealer) Seal(cred *domain.Credential) ([]byte, error) {
	rec := record{
		Provider:       cred.Provider,
		UserID:         cred.UserID,
		OrganizationID: cred.OrganizationID,
		AccessToken:    cred.AccessToken,
		RefreshToken:   cred.RefreshToken,
		TokenType:      cred.TokenType,
		Scopes:         cred.Scopes,
		ObtainedAt:     cred.ObtainedAt,
		ExpiresAt:      cred.ExpiresAt,
	}
	env := envelope{
		Provider:       cred.Provider,
		UserID:         cred.UserID,
		OrganizationID: cred.OrganizationID,
	}

	if s.encryptor == nil {
		env.Plain = &rec
	} else {
		sealed, err := s.encryptor.Encrypt(rec, associatedData(cred.Key()))
		if err != nil {
			return nil, fmt.Errorf("seal credential: %w", err)
		}
		env.Sealed = sealed
	}

	blob, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal credential: %w", err)
	}
	return blob, nil
}

// Open decodes a blob produced by Seal.
func (s *CredentialSealer) Open(blob []byte) (*domain.Credential, error) {
	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return nil, fmt.Errorf("unmarshal credential: %w", err)
	}

	var rec record
	switch {
	case env.Plain != nil:
		rec = *env.Plain
	case len(env.Sealed) > 0:
		if s.encryptor == nil {
			return nil, ErrSealedWithoutKey
		}
		key := domain.CredentialKey{Provider: env.Provider, UserID: env.UserID, OrganizationID: env.OrganizationID}
		if err := s.encryptor.Decrypt(env.Sealed, associatedData(key), &rec); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("credential blob has no payload")
	}

	return &domain.Credential{
		Provider:       rec.Provider,
		UserID:         rec.UserID,
		OrganizationID: rec.OrganizationID,
		AccessToken:    rec.AccessToken,
		RefreshToken:   rec.RefreshToken,
		TokenType:      rec.TokenType,
		Scopes:         rec.Scopes,
		ObtainedAt:     rec.ObtainedAt,
		ExpiresAt:      rec.ExpiresAt,
	}, nil
}

func associatedData(key domain.CredentialKey) []byte {
	return []byte(string(key.Provider) + "\x00" + key.OrganizationID + "\x00" + key.UserID)
}
