package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/oauth-broker/internal/adapters/driven/connectors"
	"github.com/custodia-labs/oauth-broker/internal/core/domain"
	"github.com/custodia-labs/oauth-broker/internal/core/ports/driven/mocks"
)

func newItemFixture(t *testing.T) (*IntegrationItemService, *CredentialStore, *connectors.Registry) {
	t.Helper()
	registry := connectors.NewRegistry()
	credentials := NewCredentialStore(mocks.NewMockCredentialStore(), nil)
	return NewIntegrationItemService(credentials, registry, nil), credentials, registry
}

func TestLoadItems(t *testing.T) {
	svc, credentials, registry := newItemFixture(t)
	registry.RegisterItemLoader(connectors.NewFakeItemLoader(domain.ProviderTypeHubSpot))
	require.NoError(t, credentials.Put(context.Background(), testCredential(time.Hour)))

	items, err := svc.LoadItems(context.Background(), testCredential(0).Key())
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, "John Doe", items[0].Name)
	assert.Equal(t, domain.ProviderTypeHubSpot, items[0].Provider)
}

func TestLoadItems_PassesStoredToken(t *testing.T) {
	svc, credentials, registry := newItemFixture(t)
	loader := &mocks.MockItemLoader{ProviderType: domain.ProviderTypeHubSpot}
	loader.On("LoadItems", mock.Anything, "tok123").Return([]domain.IntegrationItem{{ID: "1", Name: "one"}}, nil).Once()
	registry.RegisterItemLoader(loader)
	require.NoError(t, credentials.Put(context.Background(), testCredential(time.Hour)))

	items, err := svc.LoadItems(context.Background(), testCredential(0).Key())
	require.NoError(t, err)
	assert.Len(t, items, 1)
	loader.AssertExpectations(t)
}

func TestLoadItems_Errors(t *testing.T) {
	svc, credentials, registry := newItemFixture(t)
	loader := &mocks.MockItemLoader{ProviderType: domain.ProviderTypeHubSpot}
	loader.On("LoadItems", mock.Anything, "tok123").Return(nil, domain.ErrProviderUnauthorized)
	registry.RegisterItemLoader(loader)

	key := testCredential(0).Key()

	_, err := svc.LoadItems(context.Background(), key)
	assert.ErrorIs(t, err, domain.ErrCredentialNotFound, "no credential stored yet")

	require.NoError(t, credentials.Put(context.Background(), testCredential(time.Hour)))
	_, err = svc.LoadItems(context.Background(), key)
	assert.ErrorIs(t, err, domain.ErrProviderUnauthorized)

	_, err = svc.LoadItems(context.Background(), domain.CredentialKey{Provider: domain.ProviderTypeAirtable, UserID: "u1", OrganizationID: "o1"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedProvider)

	_, err = svc.LoadItems(context.Background(), domain.CredentialKey{Provider: domain.ProviderTypeHubSpot})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
