// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Command server runs the passkey relying party HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeremyhahn/go-passkey/internal/config"
	"github.com/jeremyhahn/go-passkey/internal/rest"
	"github.com/jeremyhahn/go-passkey/pkg/health"
	"github.com/jeremyhahn/go-passkey/pkg/logging"
	"github.com/jeremyhahn/go-passkey/pkg/metrics"
	"github.com/jeremyhahn/go-passkey/pkg/passkey"
	"github.com/jeremyhahn/go-passkey/pkg/session"
)

var (
	// Version information (set during build)
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("go-passkey server\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Git Commit: %s\n", commit)
		fmt.Printf("  Built:      %s\n", date)
		os.Exit(0)
	}

	// Check for config file override via environment
	if envConfig := os.Getenv("PASSKEY_CONFIG"); envConfig != "" {
		*configPath = envConfig
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	logger.Info("Starting passkey server",
		"version", version,
		"rp_id", cfg.RP.RPID,
		"origins", cfg.RP.RPOrigins)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("Server stopped successfully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	users := passkey.NewMemoryUserStoreWithOptions(
		cfg.Stores.UserCapacity,
		cfg.Stores.UserIdleTTL.Std(),
	)
	challenges := passkey.NewMemoryChallengeStoreWithTTL(cfg.Stores.ChallengeTTL.Std())

	service, err := passkey.NewService(passkey.ServiceParams{
		Config:         &cfg.RP,
		UserStore:      users,
		ChallengeStore: challenges,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create passkey service: %w", err)
	}

	sessions, err := session.NewManager(session.Config{
		Secret:     []byte(cfg.Session.Secret),
		Lifetime:   cfg.Session.Lifetime.Std(),
		CookieName: cfg.Session.CookieName,
		Secure:     cfg.Session.Secure,
	})
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}

	checker := health.NewChecker()
	checker.RegisterCheck("user_store", func(ctx context.Context) health.CheckResult {
		count := users.Count()
		status := health.StatusHealthy
		if count >= cfg.Stores.UserCapacity {
			status = health.StatusDegraded
		}
		return health.CheckResult{
			Name:    "user_store",
			Status:  status,
			Message: fmt.Sprintf("%d of %d users", count, cfg.Stores.UserCapacity),
		}
	})
	checker.RegisterCheck("challenge_store", func(ctx context.Context) health.CheckResult {
		return health.CheckResult{
			Name:    "challenge_store",
			Status:  health.StatusHealthy,
			Message: fmt.Sprintf("%d pending challenges", challenges.Count()),
		}
	})

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	tlsConfig, err := cfg.Server.TLS.LoadTLSConfig()
	if err != nil {
		return fmt.Errorf("failed to load TLS configuration: %w", err)
	}

	server, err := rest.NewServer(&rest.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		Service:      service,
		Sessions:     sessions,
		Checker:      checker,
		MetricsPath:  metricsPath,
		TLSConfig:    tlsConfig,
		Logger:       logger,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Background expiry sweeps for both stores
	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	users.StartCleanup(cleanupCtx, cfg.Stores.CleanupInterval.Std())
	challenges.StartCleanup(cleanupCtx, cfg.Stores.CleanupInterval.Std())

	// Gauge refresh for uptime and store sizes
	collector := metrics.NewCollector(cleanupCtx, cfg.Stores.CleanupInterval.Std())
	collector.OnCollect(func() {
		metrics.SetStoreEntries("users", float64(users.Count()))
		metrics.SetStoreEntries("challenges", float64(challenges.Count()))
	})
	go collector.Start()
	defer collector.Stop()

	shutdownCtx := setupSignalHandler(logger)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	checker.MarkStarted()
	logger.Info("Passkey server started", "addr", server.Addr())

	select {
	case <-shutdownCtx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return err
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()

	return server.Stop(stopCtx)
}

// setupSignalHandler sets up signal handling for graceful shutdown
func setupSignalHandler(logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-signalCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	return ctx
}
