package config

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/oauth-broker/internal/core/domain"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"REDIS_URL": "redis://localhost:6379/0"})
	require.NoError(t, err)

	assert.Equal(t, RunModeAll, cfg.RunMode)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 10*time.Minute, cfg.StateTTL)
	assert.Equal(t, 10*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 5*time.Minute, cfg.CleanupInterval)
	assert.False(t, cfg.MockProviders)
	assert.Equal(t, BackendRedis, cfg.StateBackend())
	assert.Equal(t, BackendRedis, cfg.CredentialBackend())
	assert.False(t, cfg.UsesPostgres())
}

func TestLoadFrom_Providers(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"DATABASE_URL":              "postgres://localhost/broker",
		"PUBLIC_BASE_URL":           "https://broker.example.com/",
		"HUBSPOT_CLIENT_ID":         "hs-id",
		"HUBSPOT_CLIENT_SECRET":     "hs-secret",
		"HUBSPOT_SCOPES":            "oauth,crm.objects.contacts.read",
		"NOTION_REDIRECT_URL":       "https://custom.example.com/notion/cb",
		"AIRTABLE_TOKEN_URL":        "https://airtable.internal/token",
		"CORS_ALLOWED_ORIGINS":      "https://app.example.com,https://admin.example.com",
		"OAUTH_STATE_TTL":           "5m",
		"CREDENTIAL_ENCRYPTION_KEY": "a-sufficiently-long-key",
	})
	require.NoError(t, err)

	hs := cfg.Provider(domain.ProviderTypeHubSpot)
	assert.Equal(t, "hs-id", hs.ClientID)
	assert.Equal(t, []string{"oauth", "crm.objects.contacts.read"}, hs.Scopes)
	assert.Equal(t, "https://airtable.internal/token", cfg.Provider(domain.ProviderTypeAirtable).TokenURL)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, 5*time.Minute, cfg.StateTTL)

	assert.Equal(t, "https://broker.example.com/api/v1/integrations/hubspot/oauth2callback", cfg.RedirectURL(domain.ProviderTypeHubSpot))
	assert.Equal(t, "https://custom.example.com/notion/cb", cfg.RedirectURL(domain.ProviderTypeNotion))

	assert.Equal(t, BackendPostgres, cfg.StateBackend())
	assert.Equal(t, BackendPostgres, cfg.CredentialBackend())
	assert.True(t, cfg.UsesPostgres())
}

func TestLoadFrom_MixedBackends(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"REDIS_URL":    "redis://localhost:6379/0",
		"DATABASE_URL": "postgres://localhost/broker",
	})
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.StateBackend())
	assert.Equal(t, BackendPostgres, cfg.CredentialBackend())
	assert.True(t, cfg.UsesPostgres())
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
		want    string
	}{
		{"no backend", map[string]string{}, "REDIS_URL or DATABASE_URL"},
		{"bad run mode", map[string]string{"REDIS_URL": "redis://x", "RUN_MODE": "worker"}, "RUN_MODE"},
		{"bad log format", map[string]string{"REDIS_URL": "redis://x", "LOG_FORMAT": "xml"}, "LOG_FORMAT"},
		{"bad log level", map[string]string{"REDIS_URL": "redis://x", "LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"state ttl too long", map[string]string{"REDIS_URL": "redis://x", "OAUTH_STATE_TTL": "2h"}, "OAUTH_STATE_TTL"},
		{"relative base url", map[string]string{"REDIS_URL": "redis://x", "PUBLIC_BASE_URL": "/broker"}, "PUBLIC_BASE_URL"},
		{"short key", map[string]string{"REDIS_URL": "redis://x", "CREDENTIAL_ENCRYPTION_KEY": "short"}, "CREDENTIAL_ENCRYPTION_KEY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.environ)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := LoadFrom(map[string]string{"REDIS_URL": "redis://x", "PROVIDER_HTTP_TIMEOUT": "soon"})
	assert.Error(t, err, "unparseable duration")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	cfg := Config{LogFormat: "json", LogLevel: "warn"}
	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "provider", "hubspot")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"), "json output expected: %s", out)
	assert.Contains(t, out, `"provider":"hubspot"`)

	buf.Reset()
	cfg = Config{LogFormat: "text", LogLevel: "debug"}
	cfg.NewLogger(&buf).Debug("details", "state", "ab12cd34")
	assert.Contains(t, buf.String(), "state=ab12cd34")
}
