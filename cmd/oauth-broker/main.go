// Package main is the oauth-broker entry point.
//
// @title           OAuth Broker API
// @version         1.0
// @description     Brokers OAuth 2.0 authorization-code flows for HubSpot, Airtable and Notion and keeps the resulting credentials per user and organization.
//
// @contact.name   oauth-broker maintainers
// @contact.url    https://github.com/custodia-labs/oauth-broker/issues
//
// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html
//
// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description HS256 JWT carrying user_id and org_id claims. Format: "Bearer {token}"
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/oauth-broker/internal/adapters/driven/auth"
	"github.com/custodia-labs/oauth-broker/internal/adapters/driven/connectors"
	"github.com/custodia-labs/oauth-broker/internal/adapters/driven/connectors/airtable"
	"github.com/custodia-labs/oauth-broker/internal/adapters/driven/connectors/hubspot"
	"github.com/custodia-labs/oauth-broker/internal/adapters/driven/connectors/notion"
	"github.com/custodia-labs/oauth-broker/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/oauth-broker/internal/adapters/driven/redis"
	"github.com/custodia-labs/oauth-broker/internal/adapters/driven/secrets"
	"github.com/custodia-labs/oauth-broker/internal/adapters/driving/http"
	"github.com/custodia-labs/oauth-broker/internal/config"
	"github.com/custodia-labs/oauth-broker/internal/core/domain"
	"github.com/custodia-labs/oauth-broker/internal/core/ports/driven"
	"github.com/custodia-labs/oauth-broker/internal/core/services"
	"github.com/custodia-labs/oauth-broker/internal/janitor"
)

var version = "dev"

// shutdownTimeout bounds graceful HTTP shutdown
const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	// A run mode argument overrides RUN_MODE
	if len(os.Args) > 1 {
		cfg.RunMode = os.Args[1]
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
			os.Exit(2)
		}
	}

	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("oauth-broker exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	logger.Info("oauth-broker starting",
		"version", version,
		"mode", cfg.RunMode,
		"state_backend", cfg.StateBackend(),
		"credential_backend", cfg.CredentialBackend(),
		"mock_providers", cfg.MockProviders,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ===== Storage =====
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("redis connected")
	}

	var db *postgres.DB
	if cfg.DatabaseURL != "" {
		dbConfig := postgres.DefaultConfig(cfg.DatabaseURL)
		dbConfig.MaxOpenConns = cfg.DBMaxOpenConns
		var err error
		db, err = postgres.Connect(ctx, dbConfig)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer db.Close()
		if err := db.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}
		logger.Info("postgres connected and schema initialized")
	}

	sealer, err := newSealer(cfg, logger)
	if err != nil {
		return err
	}

	checks := make(map[string]http.Pinger)
	if redisClient != nil {
		checks["redis"] = redisPinger{client: redisClient}
	}
	if db != nil {
		checks["postgres"] = db
	}

	var stateStore driven.StateStore
	if cfg.StateBackend() == config.BackendRedis {
		stateStore = redisadapter.NewStateStore(redisClient)
	} else {
		stateStore = postgres.NewStateStore(db)
	}

	var credentialStore driven.CredentialStore
	if cfg.CredentialBackend() == config.BackendPostgres {
		credentialStore = postgres.NewCredentialStore(db, sealer)
	} else {
		credentialStore = redisadapter.NewCredentialStore(redisClient, sealer)
	}

	// ===== Providers =====
	registry := buildRegistry(cfg, logger)

	// ===== Services =====
	states := services.NewStateTokenStore(stateStore, cfg.StateTTL)
	credentials := services.NewCredentialStore(credentialStore, logger)
	orchestrator := services.NewAuthorizationOrchestrator(services.AuthorizationOrchestratorConfig{
		States:      states,
		Credentials: credentials,
		Registry:    registry,
		Logger:      logger,
	})
	items := services.NewIntegrationItemService(credentials, registry, logger)

	// ===== Janitor =====
	runJanitor := cfg.RunMode != config.RunModeAPI && cfg.UsesPostgres()
	if runJanitor {
		var lock driven.DistributedLock
		if redisClient != nil {
			lock = redisadapter.NewLock(redisClient)
		} else {
			lock = postgres.NewAdvisoryLock(db)
		}
		j := janitor.New(janitor.Config{
			Cleaners: map[string]janitor.Cleaner{
				"states":      stateStore,
				"credentials": credentialStore,
			},
			Lock:     lock,
			Logger:   logger,
			Interval: cfg.CleanupInterval,
		})
		j.Start(ctx)
		defer j.Stop()
	} else if cfg.RunMode == config.RunModeJanitor {
		logger.Info("no postgres backend in use, nothing for the janitor to clean")
	}

	if cfg.RunMode == config.RunModeJanitor {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		return nil
	}

	// ===== HTTP =====
	var callerAuth driven.CallerAuthenticator
	if cfg.JWTSecret != "" {
		callerAuth = auth.NewAdapter(cfg.JWTSecret)
	} else {
		logger.Warn("AUTH_JWT_SECRET is not set: caller identity is taken from request bodies (development only)")
	}

	serverCfg := http.DefaultConfig()
	serverCfg.Port = cfg.Port
	serverCfg.Version = version
	serverCfg.CORSOrigins = cfg.CORSOrigins
	server := http.NewServer(serverCfg, orchestrator, items, callerAuth, checks, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Stop(shutdownCtx)
}

// newSealer builds the credential codec. Without a key credentials are
// stored as plain JSON.
func newSealer(cfg config.Config, logger *slog.Logger) (*secrets.CredentialSealer, error) {
	if cfg.EncryptionKey == "" {
		logger.Warn("CREDENTIAL_ENCRYPTION_KEY is not set: credentials are stored unencrypted")
		return secrets.NewCredentialSealer(nil), nil
	}
	enc, err := secrets.NewSecretEncryptorFromPassphrase(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("credential encryption key: %w", err)
	}
	return secrets.NewCredentialSealer(enc), nil
}

// buildRegistry registers one adapter per supported provider. A provider
// with bad client settings is recorded as misconfigured and the process
// keeps running.
func buildRegistry(cfg config.Config, logger *slog.Logger) *connectors.Registry {
	registry := connectors.NewRegistry()

	if cfg.MockProviders {
		logger.Warn("MOCK_PROVIDERS is set: no provider is contacted")
		for _, p := range domain.SupportedProviders() {
			registry.Register(connectors.NewFakeAdapter(p, cfg.RedirectURL(p)))
			registry.RegisterItemLoader(connectors.NewFakeItemLoader(p))
		}
		return registry
	}

	adapterConfigs := map[domain.ProviderType]func(connectors.ClientSettings) connectors.AdapterConfig{
		domain.ProviderTypeHubSpot:  hubspot.AdapterConfig,
		domain.ProviderTypeAirtable: airtable.AdapterConfig,
		domain.ProviderTypeNotion:   notion.AdapterConfig,
	}
	for _, p := range domain.SupportedProviders() {
		pc := cfg.Provider(p)
		settings := connectors.ClientSettings{
			ClientID:     pc.ClientID,
			ClientSecret: pc.ClientSecret,
			RedirectURL:  cfg.RedirectURL(p),
			AuthURL:      pc.AuthURL,
			TokenURL:     pc.TokenURL,
			Scopes:       pc.Scopes,
			Timeout:      cfg.ProviderTimeout,
		}
		if err := registry.RegisterOAuth2(adapterConfigs[p](settings)); err != nil {
			if !errors.Is(err, domain.ErrProviderMisconfigured) {
				logger.Error("provider registration failed", "provider", p, "error", err)
				continue
			}
			logger.Warn("provider misconfigured", "provider", p, "error", err)
		}
	}

	registry.RegisterItemLoader(hubspot.NewClient(apiURL(cfg.HubSpot, hubspot.APIBaseURL), cfg.ProviderTimeout).WithLogger(logger))
	registry.RegisterItemLoader(notion.NewClient(apiURL(cfg.Notion, notion.APIBaseURL), cfg.ProviderTimeout))

	return registry
}

func apiURL(pc config.ProviderConfig, fallback string) string {
	if pc.APIURL != "" {
		return pc.APIURL
	}
	return fallback
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
