package connectors

import (
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/oauth-broker/internal/core/domain"
	"github.com/custodia-labs/oauth-broker/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ProviderRegistry = (*Registry)(nil)

// Registry maintains the provider adapters and item loaders, plus the
// providers whose configuration was rejected at startup.
type Registry struct {
	mu            sync.RWMutex
	adapters      map[domain.ProviderType]driven.ProviderAdapter
	loaders       map[domain.ProviderType]driven.ItemLoader
	misconfigured map[domain.ProviderType]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters:      make(map[domain.ProviderType]driven.ProviderAdapter),
		loaders:       make(map[domain.ProviderType]driven.ItemLoader),
		misconfigured: make(map[domain.ProviderType]string),
	}
}

// Register registers an adapter for its provider, clearing any
// misconfiguration previously recorded for it.
func (r *Registry) Register(adapter driven.ProviderAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Provider()] = adapter
	delete(r.misconfigured, adapter.Provider())
}

// RegisterOAuth2 builds an OAuth2Adapter from cfg and registers it.
// On a configuration error the provider is recorded as misconfigured
// and the error is returned for the caller to log.
func (r *Registry) RegisterOAuth2(cfg AdapterConfig) error {
	adapter, err := NewOAuth2Adapter(cfg)
	if err != nil {
		r.MarkMisconfigured(cfg.Provider, err.Error())
		return err
	}
	r.Register(adapter)
	return nil
}

// RegisterItemLoader registers an item loader for its provider.
func (r *Registry) RegisterItemLoader(loader driven.ItemLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[loader.Provider()] = loader
}

// MarkMisconfigured records why a provider cannot serve flows.
func (r *Registry) MarkMisconfigured(provider domain.ProviderType, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.adapters, provider)
	r.misconfigured[provider] = reason
}

// Adapter returns the adapter for a provider.
func (r *Registry) Adapter(provider domain.ProviderType) (driven.ProviderAdapter, error) {
	if !provider.IsValid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, provider)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if reason, ok := r.misconfigured[provider]; ok {
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrProviderMisconfigured, provider, reason)
	}
	adapter, ok := r.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s: no adapter registered", domain.ErrProviderMisconfigured, provider)
	}
	return adapter, nil
}

// ItemLoader returns the item loader for a provider.
func (r *Registry) ItemLoader(provider domain.ProviderType) (driven.ItemLoader, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	loader, ok := r.loaders[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no item loader", domain.ErrUnsupportedProvider, provider)
	}
	return loader, nil
}

// Status reports every supported provider, sorted by name.
func (r *Registry) Status() []domain.ProviderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make([]domain.ProviderStatus, 0, len(domain.SupportedProviders()))
	for _, p := range domain.SupportedProviders() {
		status := domain.ProviderStatus{
			Provider: p,
			Name:     p.DisplayName(),
		}
		_, status.Configured = r.adapters[p]
		_, status.SupportsItems = r.loaders[p]
		if reason, ok := r.misconfigured[p]; ok {
			status.Reason = reason
		} else if !status.Configured {
			status.Reason = "no adapter registered"
		}
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Provider < statuses[j].Provider
	})
	return statuses
}
