package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/custodia-labs/oauth-broker/internal/core/domain"
	"github.com/custodia-labs/oauth-broker/internal/core/ports/driven"
	"github.com/custodia-labs/oauth-broker/internal/core/ports/driving"
)

// Ensure IntegrationItemService implements ItemService
var _ driving.ItemService = (*IntegrationItemService)(nil)

// IntegrationItemService loads provider objects using stored credentials.
type IntegrationItemService struct {
	credentials *CredentialStore
	registry    driven.ProviderRegistry
	logger      *slog.Logger
}

// NewIntegrationItemService creates a new item service
func NewIntegrationItemService(credentials *CredentialStore, registry driven.ProviderRegistry, logger *slog.Logger) *IntegrationItemService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntegrationItemService{
		credentials: credentials,
		registry:    registry,
		logger:      logger.With("component", "items"),
	}
}

// LoadItems fetches the provider's objects for key.
func (s *IntegrationItemService) LoadItems(ctx context.Context, key domain.CredentialKey) ([]domain.IntegrationItem, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	loader, err := s.registry.ItemLoader(key.Provider)
	if err != nil {
		return nil, err
	}

	cred, err := s.credentials.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	items, err := loader.LoadItems(ctx, cred.AccessToken)
	if err != nil {
		if errors.Is(err, domain.ErrProviderUnauthorized) {
			s.logger.Warn("provider rejected stored credential",
				"provider", key.Provider,
				"user_id", key.UserID,
				"organization_id", key.OrganizationID,
			)
		}
		return nil, err
	}

	s.logger.Info("items loaded", "provider", key.Provider, "count", len(items))
	return items, nil
}
