package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/oauth-broker/internal/core/domain"
	"github.com/custodia-labs/oauth-broker/internal/core/ports/driven"
)

// Ensure OAuth2Adapter implements the interface.
var _ driven.ProviderAdapter = (*OAuth2Adapter)(nil)

// DefaultExchangeTimeout bounds a token exchange round trip.
const DefaultExchangeTimeout = 10 * time.Second

// ClientSettings are the per-deployment values of a provider client.
// Empty endpoint and scope fields fall back to the provider's defaults.
type ClientSettings struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	Scopes       []string
	Timeout      time.Duration
}

// Apply overlays the settings on cfg and returns the result.
func (s ClientSettings) Apply(cfg AdapterConfig) AdapterConfig {
	cfg.ClientID = s.ClientID
	cfg.ClientSecret = s.ClientSecret
	cfg.RedirectURL = s.RedirectURL
	cfg.Timeout = s.Timeout
	if s.AuthURL != "" {
		cfg.AuthURL = s.AuthURL
	}
	if s.TokenURL != "" {
		cfg.TokenURL = s.TokenURL
	}
	if len(s.Scopes) > 0 {
		cfg.Scopes = append([]string(nil), s.Scopes...)
	}
	return cfg
}

// AdapterConfig configures one provider's OAuth client. Provider packages
// (hubspot, airtable, notion) fill in endpoints and scopes; client
// credentials come from process configuration.
type AdapterConfig struct {
	Provider     domain.ProviderType
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	RedirectURL  string
	Scopes       []string

	// AuthStyle selects how client credentials are sent to the token endpoint.
	AuthStyle oauth2.AuthStyle

	// PKCE enables S256 code challenges.
	PKCE bool

	// AuthParams are extra query parameters for the authorization URL.
	AuthParams map[string]string

	// Timeout bounds ExchangeCode. Defaults to DefaultExchangeTimeout.
	Timeout time.Duration

	// HTTPClient is used for the token exchange. Optional.
	HTTPClient *http.Client
}

// Validate reports configuration that makes the provider unusable.
func (c AdapterConfig) Validate() error {
	var problems []string
	if !c.Provider.IsValid() {
		problems = append(problems, "unknown provider")
	}
	if IsPlaceholder(c.ClientID) {
		problems = append(problems, "client id is missing or a placeholder")
	}
	if IsPlaceholder(c.ClientSecret) {
		problems = append(problems, "client secret is missing or a placeholder")
	}
	for name, raw := range map[string]string{"auth url": c.AuthURL, "token url": c.TokenURL, "redirect url": c.RedirectURL} {
		u, err := url.Parse(raw)
		if raw == "" || err != nil || u.Scheme == "" || u.Host == "" {
			problems = append(problems, name+" is not an absolute url")
		}
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("%w: %s", domain.ErrProviderMisconfigured, strings.Join(problems, "; "))
}

// placeholders are values shipped in sample configs that must never reach a provider.
var placeholders = map[string]struct{}{
	"xyz":                {},
	"changeme":           {},
	"change-me":          {},
	"replace-me":         {},
	"placeholder":        {},
	"todo":               {},
	"none":               {},
	"null":               {},
	"your-client-id":     {},
	"your-client-secret": {},
	"your_client_id":     {},
	"your_client_secret": {},
}

// IsPlaceholder reports whether a credential value is empty or an obvious placeholder.
func IsPlaceholder(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return true
	}
	if _, ok := placeholders[v]; ok {
		return true
	}
	return strings.HasPrefix(v, "<") && strings.HasSuffix(v, ">")
}

// OAuth2Adapter implements driven.ProviderAdapter on golang.org/x/oauth2.
// It is immutable after construction and safe for concurrent use.
type OAuth2Adapter struct {
	provider   domain.ProviderType
	config     oauth2.Config
	pkce       bool
	authParams map[string]string
	timeout    time.Duration
	httpClient *http.Client
}

// NewOAuth2Adapter validates cfg and creates the adapter.
// A missing or placeholder client configuration yields domain.ErrProviderMisconfigured.
func NewOAuth2Adapter(cfg AdapterConfig) (*OAuth2Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultExchangeTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	params := make(map[string]string, len(cfg.AuthParams))
	for k, v := range cfg.AuthParams {
		params[k] = v
	}

	return &OAuth2Adapter{
		provider: cfg.Provider,
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: cfg.AuthStyle,
			},
			RedirectURL: cfg.RedirectURL,
			Scopes:      append([]string(nil), cfg.Scopes...),
		},
		pkce:       cfg.PKCE,
		authParams: params,
		timeout:    timeout,
		httpClient: httpClient,
	}, nil
}

// Provider returns the platform this adapter serves.
func (a *OAuth2Adapter) Provider() domain.ProviderType {
	return a.provider
}

// RedirectURL returns the configured callback URL.
func (a *OAuth2Adapter) RedirectURL() string {
	return a.config.RedirectURL
}

// Scopes returns the requested scopes.
func (a *OAuth2Adapter) Scopes() []string {
	return append([]string(nil), a.config.Scopes...)
}

// UsesPKCE reports whether a code verifier is required.
func (a *OAuth2Adapter) UsesPKCE() bool {
	return a.pkce
}

// BuildAuthorizationURL constructs the provider consent URL for state.
func (a *OAuth2Adapter) BuildAuthorizationURL(state *domain.AuthorizationState) (string, error) {
	if state == nil || state.Token == "" {
		return "", fmt.Errorf("%w: state token is required", domain.ErrInvalidInput)
	}

	opts := make([]oauth2.AuthCodeOption, 0, len(a.authParams)+1)
	for k, v := range a.authParams {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}
	if a.pkce {
		if state.CodeVerifier == "" {
			return "", fmt.Errorf("%w: %s requires a PKCE code verifier", domain.ErrInvalidInput, a.provider)
		}
		opts = append(opts, oauth2.S256ChallengeOption(state.CodeVerifier))
	}

	return a.configFor(state.RedirectURI).AuthCodeURL(state.Token, opts...), nil
}

// ExchangeCode exchanges an authorization code for tokens.
func (a *OAuth2Adapter) ExchangeCode(ctx context.Context, req driven.ExchangeRequest) (*driven.OAuthToken, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)

	var opts []oauth2.AuthCodeOption
	if req.CodeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(req.CodeVerifier))
	}

	cfg := a.configFor(req.RedirectURI)
	token, err := cfg.Exchange(ctx, req.Code, opts...)
	if err != nil {
		return nil, a.classify(err)
	}

	scope, _ := token.Extra("scope").(string)
	return &driven.OAuthToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Scope:        scope,
		Expiry:       token.Expiry,
	}, nil
}

// configFor returns a copy of the client config using redirectURI when set.
func (a *OAuth2Adapter) configFor(redirectURI string) *oauth2.Config {
	cfg := a.config
	if redirectURI != "" {
		cfg.RedirectURL = redirectURI
	}
	return &cfg
}

// classify maps an exchange failure onto the domain error taxonomy.
func (a *OAuth2Adapter) classify(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		code, desc := retrieveErr.ErrorCode, retrieveErr.ErrorDescription
		if code == "" {
			code, desc = parseErrorBody(retrieveErr.Body)
		}
		if code == "" && retrieveErr.Response != nil {
			code = fmt.Sprintf("http_%d", retrieveErr.Response.StatusCode)
		}
		return domain.NewProviderExchangeError(a.provider, code, desc)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s token endpoint did not answer within %s", domain.ErrProviderTimeout, a.provider, a.timeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s token endpoint did not answer within %s", domain.ErrProviderTimeout, a.provider, a.timeout)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %s: %v", domain.ErrNetwork, a.provider, urlErr.Err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	// Token endpoint answered 2xx with something we cannot use
	return domain.NewProviderExchangeError(a.provider, "invalid_response", err.Error())
}

// parseErrorBody extracts an error code from non-standard provider error
// payloads, e.g. HubSpot's {"status":"BAD_AUTH_CODE","message":"..."}.
func parseErrorBody(body []byte) (code, description string) {
	var payload struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Status           string `json:"status"`
		Message          string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", ""
	}
	if payload.Error != "" {
		return payload.Error, payload.ErrorDescription
	}
	return payload.Status, payload.Message
}
