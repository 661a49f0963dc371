package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/custodia-labs/oauth-broker/internal/core/domain"
	"github.com/custodia-labs/oauth-broker/internal/core/ports/driven"
)

// MockProviderAdapter is a testify mock of ProviderAdapter.
// Provider, RedirectURL, Scopes and UsesPKCE answer from fields so tests
// only set expectations on the calls they care about.
type MockProviderAdapter struct {
	mock.Mock

	ProviderType domain.ProviderType
	Redirect     string
	ScopeList    []string
	PKCE         bool
}

// NewMockProviderAdapter creates a mock adapter for provider
func NewMockProviderAdapter(provider domain.ProviderType) *MockProviderAdapter {
	return &MockProviderAdapter{
		ProviderType: provider,
		Redirect:     "http://localhost:8080/api/v1/integrations/" + string(provider) + "/oauth2callback",
	}
}

func (m *MockProviderAdapter) Provider() domain.ProviderType { return m.ProviderType }
func (m *MockProviderAdapter) RedirectURL() string           { return m.Redirect }
func (m *MockProviderAdapter) Scopes() []string              { return m.ScopeList }
func (m *MockProviderAdapter) UsesPKCE() bool                { return m.PKCE }

func (m *MockProviderAdapter) BuildAuthorizationURL(state *domain.AuthorizationState) (string, error) {
	args := m.Called(state)
	return args.String(0), args.Error(1)
}

func (m *MockProviderAdapter) ExchangeCode(ctx context.Context, req driven.ExchangeRequest) (*driven.OAuthToken, error) {
	args := m.Called(ctx, req)
	if tok := args.Get(0); tok != nil {
		return tok.(*driven.OAuthToken), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockItemLoader is a testify mock of ItemLoader
type MockItemLoader struct {
	mock.Mock

	ProviderType domain.ProviderType
}

func (m *MockItemLoader) Provider() domain.ProviderType { return m.ProviderType }

func (m *MockItemLoader) LoadItems(ctx context.Context, accessToken string) ([]domain.IntegrationItem, error) {
	args := m.Called(ctx, accessToken)
	if items := args.Get(0); items != nil {
		return items.([]domain.IntegrationItem), args.Error(1)
	}
	return nil, args.Error(1)
}
