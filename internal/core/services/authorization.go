package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/custodia-labs/oauth-broker/internal/core/domain"
	"github.com/custodia-labs/oauth-broker/internal/core/ports/driven"
	"github.com/custodia-labs/oauth-broker/internal/core/ports/driving"
)

// Ensure AuthorizationOrchestrator implements AuthorizationService
var _ driving.AuthorizationService = (*AuthorizationOrchestrator)(nil)

// pkceVerifierBytes yields a 43 character verifier, the RFC 7636 minimum.
const pkceVerifierBytes = 32

// AuthorizationOrchestratorConfig holds the collaborators of the orchestrator.
type AuthorizationOrchestratorConfig struct {
	// States issues and consumes anti-forgery tokens.
	States *StateTokenStore

	// Credentials stores exchanged credentials.
	Credentials *CredentialStore

	// Registry resolves provider adapters.
	Registry driven.ProviderRegistry

	Logger *slog.Logger
}

// AuthorizationOrchestrator implements the authorize -> callback -> exchange
// protocol. It holds no per-flow state of its own: everything lives in the
// state and credential stores, coordinated by per-key atomic operations.
type AuthorizationOrchestrator struct {
	states      *StateTokenStore
	credentials *CredentialStore
	registry    driven.ProviderRegistry
	logger      *slog.Logger
	now         func() time.Time
}

// NewAuthorizationOrchestrator creates a new orchestrator.
func NewAuthorizationOrchestrator(cfg AuthorizationOrchestratorConfig) *AuthorizationOrchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationOrchestrator{
		states:      cfg.States,
		credentials: cfg.Credentials,
		registry:    cfg.Registry,
		logger:      logger.With("component", "authorization"),
		now:         time.Now,
	}
}

// BeginAuthorization issues a state token and builds the provider's consent URL.
func (o *AuthorizationOrchestrator) BeginAuthorization(ctx context.Context, req driving.BeginRequest) (*driving.BeginResponse, error) {
	if err := req.Correlation.Validate(); err != nil {
		return nil, err
	}

	adapter, err := o.registry.Adapter(req.Provider)
	if err != nil {
		return nil, err
	}

	opts := IssueOptions{RedirectURI: adapter.RedirectURL()}
	if adapter.UsesPKCE() {
		verifier, err := generateRandomToken(pkceVerifierBytes)
		if err != nil {
			return nil, fmt.Errorf("generate code verifier: %w", err)
		}
		opts.CodeVerifier = verifier
	}

	state, err := o.states.Issue(ctx, req.Correlation, req.Provider, opts)
	if err != nil {
		return nil, err
	}

	authURL, err := adapter.BuildAuthorizationURL(state)
	if err != nil {
		return nil, fmt.Errorf("build authorization url: %w", err)
	}

	o.logger.Info("authorization started",
		"provider", req.Provider,
		"user_id", req.UserID,
		"organization_id", req.OrganizationID,
		"state", fingerprint(state.Token),
		"expires_at", state.ExpiresAt,
	)

	return &driving.BeginResponse{
		AuthorizationURL: authURL,
		State:            state.Token,
		ExpiresAt:        state.ExpiresAt,
		Phase:            domain.PhasePendingCallback,
	}, nil
}

// HandleCallback consumes the state and exchanges the authorization code.
// Nothing here is retried: the state and the code are both single-use.
func (o *AuthorizationOrchestrator) HandleCallback(ctx context.Context, req driving.CallbackRequest) (*domain.Credential, error) {
	logger := o.logger.With("state", fingerprint(req.State))

	state, err := o.states.Consume(ctx, req.State)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidOrExpiredState) {
			logger.Warn("callback with invalid or expired state", "provider", req.Provider)
		}
		return nil, err
	}

	logger = logger.With(
		"provider", state.Provider,
		"user_id", state.UserID,
		"organization_id", state.OrganizationID,
	)

	if req.Provider != "" && req.Provider != state.Provider {
		logger.Warn("callback provider does not match state", "callback_provider", req.Provider)
		return nil, domain.ErrInvalidOrExpiredState
	}

	if req.Error != "" {
		logger.Info("provider denied authorization", "error", req.Error)
		return nil, domain.NewProviderExchangeError(state.Provider, req.Error, req.ErrorDescription)
	}
	if req.Code == "" {
		return nil, domain.NewProviderExchangeError(state.Provider, "invalid_request", "missing authorization code")
	}

	adapter, err := o.registry.Adapter(state.Provider)
	if err != nil {
		return nil, err
	}

	redirectURI := state.RedirectURI
	if req.RedirectURI != "" {
		redirectURI = req.RedirectURI
	}

	start := o.now()
	token, err := adapter.ExchangeCode(ctx, driven.ExchangeRequest{
		Code:         req.Code,
		RedirectURI:  redirectURI,
		CodeVerifier: state.CodeVerifier,
	})
	if err != nil {
		logger.Warn("code exchange failed", "duration", o.now().Sub(start), "error", err)
		return nil, err
	}

	cred := &domain.Credential{
		Provider:       state.Provider,
		UserID:         state.UserID,
		OrganizationID: state.OrganizationID,
		AccessToken:    token.AccessToken,
		RefreshToken:   token.RefreshToken,
		TokenType:      token.TokenType,
		Scopes:         splitScopes(token.Scope),
		ObtainedAt:     o.now(),
	}
	if len(cred.Scopes) == 0 {
		cred.Scopes = append([]string(nil), adapter.Scopes()...)
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		cred.ExpiresAt = &expiry
	}

	if err := o.credentials.Put(ctx, cred); err != nil {
		return nil, err
	}

	logger.Info("authorization exchanged",
		"duration", o.now().Sub(start),
		"expires_at", cred.ExpiresAt,
		"refreshable", cred.RefreshToken != "",
	)

	return cred, nil
}

// FetchCredential returns the live credential for key.
func (o *AuthorizationOrchestrator) FetchCredential(ctx context.Context, key domain.CredentialKey) (*domain.Credential, error) {
	return o.credentials.Get(ctx, key)
}

// Disconnect revokes the credential for key.
func (o *AuthorizationOrchestrator) Disconnect(ctx context.Context, key domain.CredentialKey) error {
	if err := o.credentials.Revoke(ctx, key); err != nil {
		return err
	}
	o.logger.Info("integration disconnected",
		"provider", key.Provider,
		"user_id", key.UserID,
		"organization_id", key.OrganizationID,
	)
	return nil
}

// Providers reports the configuration status of every supported provider.
func (o *AuthorizationOrchestrator) Providers(ctx context.Context) []domain.ProviderStatus {
	return o.registry.Status()
}

// splitScopes splits a space or comma separated scope string into a slice.
func splitScopes(scope string) []string {
	fields := strings.FieldsFunc(scope, func(r rune) bool {
		return r == ' ' || r == ','
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}
