//go:build integration

package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/oauth-broker/internal/adapters/driven/secrets"
	"github.com/custodia-labs/oauth-broker/internal/core/domain"
)

func setupDB(t *testing.T) *DB {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Fatal("DATABASE_URL must be set for integration tests")
	}

	ctx := context.Background()
	db, err := Connect(ctx, DefaultConfig(dbURL))
	require.NoError(t, err)
	require.NoError(t, db.InitSchema(ctx))
	t.Cleanup(func() { db.Close() })
	return db
}

func newState(expiresIn time.Duration) *domain.AuthorizationState {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.AuthorizationState{
		Token:          uuid.NewString(),
		UserID:         "u1",
		OrganizationID: "o1",
		Provider:       domain.ProviderTypeAirtable,
		RedirectURI:    "https://broker.example.com/cb",
		CodeVerifier:   "verifier",
		IssuedAt:       now,
		ExpiresAt:      now.Add(expiresIn),
	}
}

func TestStateStore_Integration(t *testing.T) {
	db := setupDB(t)
	store := NewStateStore(db)
	ctx := context.Background()

	state := newState(10 * time.Minute)
	require.NoError(t, store.Save(ctx, state))
	assert.Error(t, store.Save(ctx, state), "duplicate token")

	got, err := store.GetAndDelete(ctx, state.Token)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, state.Provider, got.Provider)
	assert.Equal(t, state.CodeVerifier, got.CodeVerifier)
	assert.True(t, state.ExpiresAt.Equal(got.ExpiresAt))

	again, err := store.GetAndDelete(ctx, state.Token)
	require.NoError(t, err)
	assert.Nil(t, again)

	expired := newState(-time.Second)
	require.NoError(t, store.Save(ctx, expired))
	got, err = store.GetAndDelete(ctx, expired.Token)
	require.NoError(t, err)
	assert.Nil(t, got)
	require.NoError(t, store.Cleanup(ctx))
}

func TestStateStore_Integration_ConcurrentConsume(t *testing.T) {
	db := setupDB(t)
	store := NewStateStore(db)
	ctx := context.Background()

	state := newState(10 * time.Minute)
	require.NoError(t, store.Save(ctx, state))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := store.GetAndDelete(ctx, state.Token)
			assert.NoError(t, err)
			if got != nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestCredentialStore_Integration(t *testing.T) {
	db := setupDB(t)
	encryptor, err := secrets.NewSecretEncryptorFromPassphrase("integration-test-passphrase")
	require.NoError(t, err)
	store := NewCredentialStore(db, secrets.NewCredentialSealer(encryptor))
	ctx := context.Background()

	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	cred := &domain.Credential{
		Provider:       domain.ProviderTypeHubSpot,
		UserID:         uuid.NewString(),
		OrganizationID: "o1",
		AccessToken:    "tok123",
		TokenType:      "bearer",
		ObtainedAt:     time.Now().UTC().Truncate(time.Second),
		ExpiresAt:      &expires,
	}
	require.NoError(t, store.Put(ctx, cred))

	got, err := store.Get(ctx, cred.Key())
	require.NoError(t, err)
	assert.Equal(t, "tok123", got.AccessToken)

	cred.AccessToken = "tok999"
	cred.ExpiresAt = nil
	require.NoError(t, store.Put(ctx, cred))
	got, err = store.Get(ctx, cred.Key())
	require.NoError(t, err)
	assert.Equal(t, "tok999", got.AccessToken)
	assert.Nil(t, got.ExpiresAt)

	require.NoError(t, store.Delete(ctx, cred.Key()))
	require.NoError(t, store.Delete(ctx, cred.Key()))
	_, err = store.Get(ctx, cred.Key())
	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)

	past := time.Now().Add(-time.Minute)
	cred.ExpiresAt = &past
	require.NoError(t, store.Put(ctx, cred))
	_, err = store.Get(ctx, cred.Key())
	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
	require.NoError(t, store.Cleanup(ctx))
}

func TestAdvisoryLock_Integration(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	replicaA := NewAdvisoryLock(db)
	replicaB := NewAdvisoryLock(db)
	name := "test-" + uuid.NewString()

	ok, err := replicaA.Acquire(ctx, name, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = replicaB.Acquire(ctx, name, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, replicaA.Release(ctx, name))
	ok, err = replicaB.Acquire(ctx, name, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, replicaB.Release(ctx, name))
	require.NoError(t, replicaB.Release(ctx, name))
}
