// Package config loads the broker's process configuration from the
// environment once at startup. The resulting Config is a plain value and
// is never mutated afterwards.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/custodia-labs/oauth-broker/internal/core/domain"
)

// Run modes select which parts of the process start.
const (
	RunModeAll     = "all"
	RunModeAPI     = "api"
	RunModeJanitor = "janitor"
)

// Storage backends.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// ProviderConfig holds one provider's client registration.
// Empty endpoint and scope values fall back to the provider defaults.
type ProviderConfig struct {
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	AuthURL      string   `env:"AUTH_URL"`
	TokenURL     string   `env:"TOKEN_URL"`
	APIURL       string   `env:"API_URL"`
	RedirectURL  string   `env:"REDIRECT_URL"`
	Scopes       []string `env:"SCOPES" envSeparator:","`
}

// Config is the immutable process configuration.
type Config struct {
	RunMode       string `env:"RUN_MODE" envDefault:"all"`
	Port          int    `env:"PORT" envDefault:"8080"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	// REDIS_URL selects Redis for authorization states (and credentials
	// when DATABASE_URL is unset). DATABASE_URL selects PostgreSQL for
	// credentials (and states when REDIS_URL is unset).
	RedisURL       string `env:"REDIS_URL"`
	DatabaseURL    string `env:"DATABASE_URL"`
	DBMaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`

	StateTTL        time.Duration `env:"OAUTH_STATE_TTL" envDefault:"10m"`
	ProviderTimeout time.Duration `env:"PROVIDER_HTTP_TIMEOUT" envDefault:"10s"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"5m"`

	// MockProviders replaces every provider with an in-process fake.
	MockProviders bool `env:"MOCK_PROVIDERS" envDefault:"false"`

	JWTSecret     string   `env:"AUTH_JWT_SECRET"`
	EncryptionKey string   `env:"CREDENTIAL_ENCRYPTION_KEY"`
	CORSOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	HubSpot  ProviderConfig `envPrefix:"HUBSPOT_"`
	Airtable ProviderConfig `envPrefix:"AIRTABLE_"`
	Notion   ProviderConfig `envPrefix:"NOTION_"`
}

// Load parses the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// LoadFrom parses the given environment instead of the process one.
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate reports problems that prevent the process from starting.
// Provider client problems are not fatal and are not reported here.
func (c Config) Validate() error {
	var errs []error

	switch c.RunMode {
	case RunModeAll, RunModeAPI, RunModeJanitor:
	default:
		errs = append(errs, fmt.Errorf("RUN_MODE must be one of all, api, janitor; got %q", c.RunMode))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if u, err := url.Parse(c.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("PUBLIC_BASE_URL must be an absolute url, got %q", c.PublicBaseURL))
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.RedisURL == "" && c.DatabaseURL == "" {
		errs = append(errs, errors.New("one of REDIS_URL or DATABASE_URL is required"))
	}
	if c.StateTTL <= 0 || c.StateTTL > time.Hour {
		errs = append(errs, fmt.Errorf("OAUTH_STATE_TTL must be in (0, 1h], got %s", c.StateTTL))
	}
	if c.ProviderTimeout <= 0 {
		errs = append(errs, fmt.Errorf("PROVIDER_HTTP_TIMEOUT must be positive, got %s", c.ProviderTimeout))
	}
	if c.CleanupInterval <= 0 {
		errs = append(errs, fmt.Errorf("CLEANUP_INTERVAL must be positive, got %s", c.CleanupInterval))
	}
	if c.EncryptionKey != "" && len(c.EncryptionKey) < 16 {
		errs = append(errs, errors.New("CREDENTIAL_ENCRYPTION_KEY must be at least 16 characters"))
	}

	return errors.Join(errs...)
}

// StateBackend names the store for authorization states.
func (c Config) StateBackend() string {
	if c.RedisURL != "" {
		return BackendRedis
	}
	return BackendPostgres
}

// CredentialBackend names the store for credentials.
func (c Config) CredentialBackend() string {
	if c.DatabaseURL != "" {
		return BackendPostgres
	}
	return BackendRedis
}

// UsesPostgres reports whether any store lives in PostgreSQL.
func (c Config) UsesPostgres() bool {
	return c.StateBackend() == BackendPostgres || c.CredentialBackend() == BackendPostgres
}

// Provider returns the client registration for p.
func (c Config) Provider(p domain.ProviderType) ProviderConfig {
	switch p {
	case domain.ProviderTypeHubSpot:
		return c.HubSpot
	case domain.ProviderTypeAirtable:
		return c.Airtable
	case domain.ProviderTypeNotion:
		return c.Notion
	default:
		return ProviderConfig{}
	}
}

// RedirectURL returns the callback URL registered with provider p.
func (c Config) RedirectURL(p domain.ProviderType) string {
	if u := c.Provider(p).RedirectURL; u != "" {
		return u
	}
	return strings.TrimSuffix(c.PublicBaseURL, "/") + "/api/v1/integrations/" + string(p) + "/oauth2callback"
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// NewLogger builds the process logger from LOG_FORMAT and LOG_LEVEL.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}
