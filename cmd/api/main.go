package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/domain"
	"server/internal/http/handlers"
	httpapi "server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/infra/geoip"
	"server/internal/jobs"
	"server/internal/middleware"
	"server/internal/providers"
	"server/internal/resolver"
	"server/internal/secrets"
	"server/internal/storage"
)

func main() {
	// Load .env (optional)
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	// DB pool (pgxpool)
	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	// Repositories
	catalogRepo := repo.NewCatalogRepository(dbpool)
	userRepo := repo.NewUserRepository(dbpool)
	jobRepo := repo.NewJobRepository(dbpool)
	secretStore := repo.NewSecretStore(dbpool)

	// Secret resolution: DB-backed store first, environment second.
	secretSource := secrets.Chain{secretStore, secrets.Env{}}

	// Local file store for providers that return results inline.
	fileStore, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init file store")
	}

	// Provider clients
	registry := providers.NewRegistry()
	registry.Register(domain.ProviderTypeReplicate, providers.NewReplicateClient(providers.ReplicateOptions{
		Secrets:        secretSource,
		Logger:         logger,
		RequestTimeout: cfg.ProviderTimeout,
	}))
	registry.Register(domain.ProviderTypeFal, providers.NewFalClient(providers.FalOptions{
		Secrets:        secretSource,
		Logger:         logger,
		RequestTimeout: cfg.ProviderTimeout,
	}))
	registry.Register(domain.ProviderTypeDashScope, providers.NewDashScopeClient(providers.DashScopeOptions{
		Secrets:        secretSource,
		Store:          fileStore,
		Logger:         logger,
		RequestTimeout: cfg.ProviderTimeout,
	}))
	logger.Info().Strs("providers", registry.Types()).Msg("provider clients registered")

	// Orchestrator
	jobService := jobs.NewService(jobs.Options{
		Users:    userRepo,
		Ledger:   userRepo,
		Jobs:     jobRepo,
		Catalog:  catalogRepo,
		Resolver: resolver.New(catalogRepo),
		Registry: registry,
		Logger:   logger,
	})

	app := handlers.NewApp(jobService, logger)

	// GeoIP country lookup for locale detection (optional).
	var country middleware.CountryLookup
	geoResolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if geoResolver != nil {
		country = geoResolver.CountryCode
	}

	router := httpapi.NewRouter(app, httpapi.RouterOptions{
		Config:  cfg,
		Logger:  logger,
		Country: country,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
