package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/custodia-labs/oauth-broker/internal/core/domain"
	"github.com/custodia-labs/oauth-broker/internal/core/ports/driven/mocks"
)

func testCredential(expiresIn time.Duration) *domain.Credential {
	now := time.Now()
	cred := &domain.Credential{
		Provider:       domain.ProviderTypeHubSpot,
		UserID:         "u1",
		OrganizationID: "o1",
		AccessToken:    "tok123",
		TokenType:      "bearer",
		ObtainedAt:     now,
	}
	if expiresIn != 0 {
		exp := now.Add(expiresIn)
		cred.ExpiresAt = &exp
	}
	return cred
}

func TestCredentialStore_PutGet(t *testing.T) {
	store := NewCredentialStore(mocks.NewMockCredentialStore(), nil)

	if err := store.Put(context.Background(), testCredential(time.Hour)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	key := domain.CredentialKey{Provider: domain.ProviderTypeHubSpot, UserID: "u1", OrganizationID: "o1"}
	for i := 0; i < 2; i++ {
		got, err := store.Get(context.Background(), key)
		if err != nil {
			t.Fatalf("Get() #%d error = %v", i, err)
		}
		if got.AccessToken != "tok123" {
			t.Errorf("expected tok123, got %q", got.AccessToken)
		}
	}
}

func TestCredentialStore_PutRejects(t *testing.T) {
	backend := mocks.NewMockCredentialStore()
	store := NewCredentialStore(backend, nil)

	noToken := testCredential(0)
	noToken.AccessToken = ""
	noOrg := testCredential(0)
	noOrg.OrganizationID = ""
	badProvider := testCredential(0)
	badProvider.Provider = "github"

	tests := []struct {
		name string
		cred *domain.Credential
		want error
	}{
		{"nil", nil, domain.ErrInvalidInput},
		{"no access token", noToken, domain.ErrInvalidInput},
		{"no org", noOrg, domain.ErrInvalidInput},
		{"unknown provider", badProvider, domain.ErrUnsupportedProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Put(context.Background(), tt.cred); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if backend.Len() != 0 {
		t.Error("rejected credentials must not be stored")
	}
}

func TestCredentialStore_Overwrite(t *testing.T) {
	store := NewCredentialStore(mocks.NewMockCredentialStore(), nil)
	first := testCredential(time.Hour)
	second := testCredential(2 * time.Hour)
	second.AccessToken = "tok456"

	_ = store.Put(context.Background(), first)
	_ = store.Put(context.Background(), second)

	got, err := store.Get(context.Background(), first.Key())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.AccessToken != "tok456" {
		t.Errorf("expected last write to win, got %q", got.AccessToken)
	}
}

func TestCredentialStore_ExpiredOnRead(t *testing.T) {
	backend := mocks.NewMockCredentialStore()
	store := NewCredentialStore(backend, nil)
	cred := testCredential(time.Minute)
	_ = store.Put(context.Background(), cred)

	store.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	if _, err := store.Get(context.Background(), cred.Key()); !errors.Is(err, domain.ErrCredentialNotFound) {
		t.Errorf("expected ErrCredentialNotFound, got %v", err)
	}
	if backend.Len() != 1 {
		t.Error("reads must leave reaping to the backend")
	}
}

// staleReadStore returns stale once, running between before handing it back.
type staleReadStore struct {
	*mocks.MockCredentialStore
	stale   *domain.Credential
	between func()
}

func (s *staleReadStore) Get(ctx context.Context, key domain.CredentialKey) (*domain.Credential, error) {
	if s.stale != nil {
		stale := s.stale
		s.stale = nil
		s.between()
		return stale, nil
	}
	return s.MockCredentialStore.Get(ctx, key)
}

func TestCredentialStore_ExpiredReadKeepsConcurrentWrite(t *testing.T) {
	stale := testCredential(time.Minute)
	past := time.Now().Add(-time.Minute)
	stale.ExpiresAt = &past

	fresh := testCredential(time.Hour)
	fresh.AccessToken = "tok456"

	backend := &staleReadStore{MockCredentialStore: mocks.NewMockCredentialStore(), stale: stale}
	store := NewCredentialStore(backend, nil)
	backend.between = func() {
		if err := store.Put(context.Background(), fresh); err != nil {
			t.Errorf("Put() error = %v", err)
		}
	}

	if _, err := store.Get(context.Background(), stale.Key()); !errors.Is(err, domain.ErrCredentialNotFound) {
		t.Fatalf("expected ErrCredentialNotFound for the stale read, got %v", err)
	}

	got, err := store.Get(context.Background(), fresh.Key())
	if err != nil {
		t.Fatalf("fresh credential lost: %v", err)
	}
	if got.AccessToken != "tok456" {
		t.Errorf("expected tok456, got %q", got.AccessToken)
	}
}

func TestCredentialStore_NoExpiry(t *testing.T) {
	store := NewCredentialStore(mocks.NewMockCredentialStore(), nil)
	cred := testCredential(0)
	_ = store.Put(context.Background(), cred)

	store.now = func() time.Time { return time.Now().Add(365 * 24 * time.Hour) }
	if _, err := store.Get(context.Background(), cred.Key()); err != nil {
		t.Errorf("credential without expiry should stay readable, got %v", err)
	}
}

func TestCredentialStore_Revoke(t *testing.T) {
	store := NewCredentialStore(mocks.NewMockCredentialStore(), nil)
	cred := testCredential(time.Hour)
	_ = store.Put(context.Background(), cred)

	if err := store.Revoke(context.Background(), cred.Key()); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if _, err := store.Get(context.Background(), cred.Key()); !errors.Is(err, domain.ErrCredentialNotFound) {
		t.Errorf("expected ErrCredentialNotFound after revoke, got %v", err)
	}
	if err := store.Revoke(context.Background(), cred.Key()); err != nil {
		t.Errorf("second Revoke() should succeed, got %v", err)
	}
}

func TestCredentialStore_BackendError(t *testing.T) {
	backendErr := errors.New("connection refused")
	backend := mocks.NewMockCredentialStore()
	backend.GetFn = func(domain.CredentialKey) (*domain.Credential, error) { return nil, backendErr }
	store := NewCredentialStore(backend, nil)

	_, err := store.Get(context.Background(), testCredential(0).Key())
	if !errors.Is(err, backendErr) || errors.Is(err, domain.ErrCredentialNotFound) {
		t.Errorf("expected wrapped backend error, got %v", err)
	}
}
