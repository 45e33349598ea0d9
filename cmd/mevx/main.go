package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/wnt/mevx/internal/api"
	"github.com/wnt/mevx/internal/autosnipe"
	"github.com/wnt/mevx/internal/config"
	"github.com/wnt/mevx/internal/credential"
	"github.com/wnt/mevx/internal/database"
	"github.com/wnt/mevx/internal/directory"
	"github.com/wnt/mevx/internal/events"
	"github.com/wnt/mevx/internal/localstate"
	"github.com/wnt/mevx/internal/logger"
	"github.com/wnt/mevx/internal/price"
	"github.com/wnt/mevx/internal/runner"
	"github.com/wnt/mevx/internal/solana"
	"github.com/wnt/mevx/internal/users"
	"github.com/wnt/mevx/internal/wallet"
	"gorm.io/gorm"
)

func main() {
	// Parse command-line arguments
	envFile := flag.String("envFile", ".env", "Path to .env file")
	adminToken := flag.Bool("adminToken", false, "Print a signed admin API token and exit")
	adminTokenTTL := flag.Duration("adminTokenTTL", 24*time.Hour, "Lifetime of the token printed by -adminToken")
	flag.Parse()

	// Load environment variables from the given file
	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("No .env file found at %s, using environment variables", *envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *adminToken {
		if cfg.AdminJWTSecret == "" {
			log.Fatal("ADMIN_JWT_SECRET is not set")
		}
		token, err := api.SignAdminToken([]byte(cfg.AdminJWTSecret), "admin", *adminTokenTTL)
		if err != nil {
			log.Fatalf("Failed to sign admin token: %v", err)
		}
		fmt.Println(token)
		return
	}

	appLogger := logger.New(cfg.LogLevel)
	if err := run(cfg, appLogger); err != nil {
		appLogger.Fatal().Err(err).Msg("Service failed")
	}
}

func run(cfg config.Config, appLogger zerolog.Logger) error {
	ctx := context.Background()

	var db *gorm.DB
	if cfg.DirectoryEnabled() {
		var err error
		db, err = database.Connect(cfg)
		if err != nil {
			// The stores keep working from the local cache without a directory
			appLogger.Error().Err(err).Msg("Failed to connect to directory database")
			db = nil
		}
	} else {
		appLogger.Warn().Msg("DB_HOST is not set, running without a remote directory")
	}

	backend, err := localstate.Open(cfg.LocalStateURL, appLogger)
	if err != nil {
		return fmt.Errorf("failed to open local state: %w", err)
	}
	local := localstate.NewStore(backend, appLogger)
	defer local.Close()

	sources := price.DefaultSources()
	if cfg.PriceSourcesFile != "" {
		sources, err = price.LoadSources(cfg.PriceSourcesFile)
		if err != nil {
			return err
		}
	}

	derivation, err := credential.ParseDerivation(cfg.CredentialDerivation)
	if err != nil {
		return err
	}

	chain, err := solana.NewClient(cfg.SolanaRPCURL, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create solana client: %w", err)
	}

	appLogger.Info().Str("endpoint", chain.Endpoint()).Msg("Using Solana RPC")

	bus := events.NewBus(appLogger)
	dir := directory.New(db, appLogger, directory.WithPollInterval(cfg.DirectoryPollInterval))
	if !dir.Available() {
		appLogger.Warn().Msg("Remote directory unavailable, users are kept in the local cache only")
	}
	userStore := users.NewStore(dir, bus, appLogger)

	snipes := autosnipe.NewStore(local, bus, appLogger)
	if err := snipes.Load(ctx); err != nil {
		appLogger.Warn().Err(err).Msg("Failed to load AutoSnipe configurations, starting empty")
	}
	stopCounters := autosnipe.SyncCounters(bus, snipes, userStore, appLogger)
	defer stopCounters()

	sessions := wallet.NewSessionStore(local, appLogger)
	if err := sessions.Load(ctx); err != nil {
		appLogger.Warn().Err(err).Msg("Failed to load wallet session, starting disconnected")
	}

	connector := wallet.NewConnector(
		credential.NewDecoder(credential.WithDerivation(derivation)),
		chain,
		userStore,
		dir,
		sessions,
		cfg.AuditPepper,
		appLogger,
	)

	oracle := price.NewOracle(sources, bus, appLogger, price.WithInterval(cfg.PriceRefreshInterval))

	manager := runner.NewManager(oracle, userStore, cfg.ReconcileSchedule, appLogger)
	if err := manager.Start(); err != nil {
		return fmt.Errorf("failed to start runner: %w", err)
	}
	defer manager.Stop()

	// Restore the current user of a persisted session once the cache is loaded
	if current := sessions.Current(); current.IsConnected {
		if user, ok := userStore.GetUserByWallet(current.WalletAddress); ok {
			userStore.SetCurrentUser(user.ID)
		}
	}

	apiServer := api.NewServer(api.Deps{
		Users:          userStore,
		AutoSnipe:      snipes,
		Connector:      connector,
		Sessions:       sessions,
		Oracle:         oracle,
		Bus:            bus,
		Audit:          dir,
		MinimumBalance: decimal.NewFromFloat(cfg.MinimumBalance),
		JWTSecret:      []byte(cfg.AdminJWTSecret),
	}, appLogger)
	defer apiServer.Close()

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           apiServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 2)
	go func() {
		appLogger.Info().Str("addr", cfg.HTTPAddr).Msg("Starting API server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("api server: %w", err)
		}
	}()
	go func() {
		appLogger.Info().Str("port", cfg.MetricsPort).Msg("Starting metrics server")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		appLogger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err = <-serveErr:
		appLogger.Error().Err(err).Msg("Server failed, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	apiServer.Close()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("Error shutting down API server")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("Error shutting down metrics server")
	}

	appLogger.Info().Msg("Shutdown complete")
	return err
}
