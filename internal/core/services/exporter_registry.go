package services

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/capshare/internal/core/domain"
	"github.com/custodia-labs/capshare/internal/core/ports/driven"
)

// ExporterRegistry maps provider types to exporters.
type ExporterRegistry struct {
	exporters map[domain.ProviderType]driven.Exporter
}

// NewExporterRegistry creates a registry with the given exporters.
func NewExporterRegistry(exporters ...driven.Exporter) *ExporterRegistry {
	r := &ExporterRegistry{exporters: make(map[domain.ProviderType]driven.Exporter)}
	for _, e := range exporters {
		r.Register(e)
	}
	return r
}

// Register adds or replaces an exporter.
func (r *ExporterRegistry) Register(e driven.Exporter) {
	r.exporters[e.Type()] = e
}

// Get returns the exporter for a provider type.
func (r *ExporterRegistry) Get(provider domain.ProviderType) (driven.Exporter, error) {
	e, ok := r.exporters[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, provider)
	}
	return e, nil
}

// Types returns the registered provider types in stable order.
func (r *ExporterRegistry) Types() []domain.ProviderType {
	types := make([]domain.ProviderType, 0, len(r.exporters))
	for t := range r.exporters {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// ClientResolver returns the OAuth client for a provider.
type ClientResolver func(provider domain.ProviderType) (driven.OAuthClient, error)

// ClientResolver builds OAuth clients from the registry and the current
// client credentials in settings.
func (r *ExporterRegistry) ClientResolver(settings *SettingsService, factory driven.OAuthClientFactory) ClientResolver {
	return func(provider domain.ProviderType) (driven.OAuthClient, error) {
		cfg, err := r.OAuthConfig(settings, provider)
		if err != nil {
			return nil, err
		}
		return factory(cfg), nil
	}
}

// OAuthConfig returns the validated OAuth configuration of a provider.
// A missing client id is a configuration error.
func (r *ExporterRegistry) OAuthConfig(settings *SettingsService, provider domain.ProviderType) (domain.OAuthProviderConfig, error) {
	exporter, err := r.Get(provider)
	if err != nil {
		return domain.OAuthProviderConfig{}, domain.NewError(domain.ErrConfiguration, "oauth config", err)
	}
	s, err := settings.Get()
	if err != nil {
		return domain.OAuthProviderConfig{}, domain.NewError(domain.ErrConfiguration, "oauth config", err)
	}
	cfg := exporter.OAuthConfig(s.Credentials(provider))
	if err := cfg.Validate(); err != nil {
		return cfg, domain.NewError(domain.ErrConfiguration, "oauth config",
			fmt.Errorf("%s client id is not configured (set %s.client_id; %s): %w",
				provider.DisplayName(), provider, exporter.SetupHint(), err))
	}
	return cfg, nil
}
