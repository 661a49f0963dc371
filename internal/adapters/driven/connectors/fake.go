package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/oauth-broker/internal/core/domain"
	"github.com/custodia-labs/oauth-broker/internal/core/ports/driven"
)

// MockCode is the authorization code the fake adapter grants by default.
const MockCode = "mock_code"

// Ensure fakes implement the interfaces.
var (
	_ driven.ProviderAdapter = (*FakeAdapter)(nil)
	_ driven.ItemLoader      = (*FakeItemLoader)(nil)
)

// FakeAdapter is an in-process provider used in mock mode and in tests.
// Its consent URL points straight back at the redirect URL with MockCode,
// so a flow completes without leaving the broker.
type FakeAdapter struct {
	provider    domain.ProviderType
	redirectURL string
	scopes      []string
	pkce        bool

	mu        sync.Mutex
	grants    map[string]*driven.OAuthToken
	failures  map[string]error
	exchanges int
	delay     time.Duration
}

// NewFakeAdapter creates a fake adapter that grants MockCode.
func NewFakeAdapter(provider domain.ProviderType, redirectURL string) *FakeAdapter {
	f := &FakeAdapter{
		provider:    provider,
		redirectURL: redirectURL,
		scopes:      []string{"mock.read"},
		grants:      make(map[string]*driven.OAuthToken),
		failures:    make(map[string]error),
	}
	f.grants[MockCode] = &driven.OAuthToken{
		AccessToken:  "mock_access_token_" + string(provider),
		RefreshToken: "mock_refresh_token_" + string(provider),
		TokenType:    "Bearer",
		Scope:        "mock.read",
	}
	return f
}

// WithCode makes code exchange for token.
func (f *FakeAdapter) WithCode(code string, token driven.OAuthToken) *FakeAdapter {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := token
	f.grants[code] = &t
	delete(f.failures, code)
	return f
}

// WithError makes code fail with err.
func (f *FakeAdapter) WithError(code string, err error) *FakeAdapter {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[code] = err
	delete(f.grants, code)
	return f
}

// WithPKCE toggles PKCE.
func (f *FakeAdapter) WithPKCE(enabled bool) *FakeAdapter {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pkce = enabled
	return f
}

// WithDelay makes every exchange wait d, honouring ctx.
func (f *FakeAdapter) WithDelay(d time.Duration) *FakeAdapter {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
	return f
}

// ExchangeCount returns the number of ExchangeCode calls.
func (f *FakeAdapter) ExchangeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exchanges
}

func (f *FakeAdapter) Provider() domain.ProviderType { return f.provider }
func (f *FakeAdapter) RedirectURL() string           { return f.redirectURL }
func (f *FakeAdapter) Scopes() []string              { return append([]string(nil), f.scopes...) }

func (f *FakeAdapter) UsesPKCE() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pkce
}

// BuildAuthorizationURL returns the redirect URL carrying MockCode and the state.
func (f *FakeAdapter) BuildAuthorizationURL(state *domain.AuthorizationState) (string, error) {
	if state == nil || state.Token == "" {
		return "", fmt.Errorf("%w: state token is required", domain.ErrInvalidInput)
	}
	target := state.RedirectURI
	if target == "" {
		target = f.redirectURL
	}
	q := url.Values{}
	q.Set("code", MockCode)
	q.Set("state", state.Token)
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + q.Encode(), nil
}

// ExchangeCode resolves code against the configured grants.
// Unknown codes fail with invalid_grant.
func (f *FakeAdapter) ExchangeCode(ctx context.Context, req driven.ExchangeRequest) (*driven.OAuthToken, error) {
	f.mu.Lock()
	f.exchanges++
	delay := f.delay
	grant, granted := f.grants[req.Code]
	failure := f.failures[req.Code]
	pkce := f.pkce
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrProviderTimeout, f.provider, ctx.Err())
		}
	}

	if failure != nil {
		return nil, failure
	}
	if pkce && req.CodeVerifier == "" {
		return nil, domain.NewProviderExchangeError(f.provider, "invalid_grant", "code verifier required")
	}
	if !granted {
		return nil, domain.NewProviderExchangeError(f.provider, "invalid_grant", "authorization code is invalid")
	}

	token := *grant
	return &token, nil
}

// FakeItemLoader returns a fixed set of items for any token.
type FakeItemLoader struct {
	provider domain.ProviderType
}

// NewFakeItemLoader creates a fake item loader.
func NewFakeItemLoader(provider domain.ProviderType) *FakeItemLoader {
	return &FakeItemLoader{provider: provider}
}

func (l *FakeItemLoader) Provider() domain.ProviderType { return l.provider }

// LoadItems returns sample contacts, a company and a deal.
func (l *FakeItemLoader) LoadItems(ctx context.Context, accessToken string) ([]domain.IntegrationItem, error) {
	if accessToken == "" {
		return nil, domain.ErrProviderUnauthorized
	}
	now := time.Now().UTC()
	sample := []struct {
		id, name, kind, path string
	}{
		{"1001", "John Doe", "Contact", "contacts/1001"},
		{"1002", "Jane Smith", "Contact", "contacts/1002"},
		{"2001", "Acme Corporation", "Company", "contacts/2001/company"},
		{"3001", "Enterprise Deal Q1", "Deal", "contacts/3001/deal"},
	}
	items := make([]domain.IntegrationItem, 0, len(sample))
	for _, s := range sample {
		raw, _ := json.Marshal(map[string]string{"id": s.id, "name": s.name})
		items = append(items, domain.IntegrationItem{
			ID:        s.id,
			Name:      s.name,
			Type:      s.kind,
			Provider:  l.provider,
			URL:       "https://app.hubspot.com/" + s.path,
			CreatedAt: &now,
			UpdatedAt: &now,
			Raw:       raw,
		})
	}
	return items, nil
}
