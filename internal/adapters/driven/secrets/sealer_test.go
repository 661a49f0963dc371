package secrets

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/oauth-broker/internal/core/domain"
)

func testCredential() *domain.Credential {
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	return &domain.Credential{
		Provider:       domain.ProviderTypeHubSpot,
		UserID:         "u1",
		OrganizationID: "o1",
		AccessToken:    "tok123",
		RefreshToken:   "ref456",
		TokenType:      "bearer",
		Scopes:         []string{"oauth"},
		ObtainedAt:     time.Date(2029, 12, 31, 23, 0, 0, 0, time.UTC),
		ExpiresAt:      &expires,
	}
}

func TestCredentialSealer_Plain(t *testing.T) {
	sealer := NewCredentialSealer(nil)
	assert.False(t, sealer.Encrypted())

	blob, err := sealer.Seal(testCredential())
	require.NoError(t, err)
	assert.True(t, bytes.Contains(blob, []byte("tok123")))

	got, err := sealer.Open(blob)
	require.NoError(t, err)
	assert.Equal(t, testCredential(), got)
}

func TestCredentialSealer_Encrypted(t *testing.T) {
	encryptor, err := NewSecretEncryptor(testKey)
	require.NoError(t, err)
	sealer := NewCredentialSealer(encryptor)
	assert.True(t, sealer.Encrypted())

	blob, err := sealer.Seal(testCredential())
	require.NoError(t, err)
	assert.False(t, bytes.Contains(blob, []byte("tok123")), "access token leaked into blob")
	assert.False(t, bytes.Contains(blob, []byte("ref456")), "refresh token leaked into blob")

	got, err := sealer.Open(blob)
	require.NoError(t, err)
	assert.Equal(t, testCredential(), got)

	// Unsealing requires the key
	_, err = NewCredentialSealer(nil).Open(blob)
	assert.True(t, errors.Is(err, ErrSealedWithoutKey))
}

func TestCredentialSealer_RejectsMovedBlob(t *testing.T) {
	encryptor, err := NewSecretEncryptor(testKey)
	require.NoError(t, err)
	sealer := NewCredentialSealer(encryptor)

	blob, err := sealer.Seal(testCredential())
	require.NoError(t, err)

	// Re-label the envelope as another user's credential
	var env map[string]any
	require.NoError(t, json.Unmarshal(blob, &env))
	env["user_id"] = "u2"
	moved, err := json.Marshal(env)
	require.NoError(t, err)

	_, err = sealer.Open(moved)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestCredentialSealer_Garbage(t *testing.T) {
	sealer := NewCredentialSealer(nil)
	_, err := sealer.Open([]byte("not json"))
	assert.Error(t, err)
	_, err = sealer.Open([]byte(`{"provider":"hubspot"}`))
	assert.Error(t, err)
}
