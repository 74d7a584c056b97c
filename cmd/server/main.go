package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deepfake-guard/internal/auth"
	"deepfake-guard/internal/config"
	"deepfake-guard/internal/detection"
	"deepfake-guard/internal/hub"
	"deepfake-guard/internal/latency"
	"deepfake-guard/internal/logging"
	"deepfake-guard/internal/middleware"
	"deepfake-guard/internal/server"
	"deepfake-guard/internal/store"
	"github.com/gin-gonic/gin"
)

var version = "dev"

type backend interface {
	auth.UserRepository
	auth.TokenRepository
	detection.ScanRepository
	Close() error
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "deepfake-guard:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	gin.SetMode(cfg.GinMode)

	repo, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("closing store", "err", err)
		}
	}()

	tokenCfg := auth.DefaultTokenConfig(cfg.MasterSecret)
	tokenCfg.Expiry = cfg.TokenExpiry
	if cfg.FederatedSecret == "" {
		logger.Warn("FEDERATED_SECRET is empty; federated credentials are accepted without signature checks")
	}

	authSvc := auth.NewService(repo, repo, auth.Options{
		TokenConfig: tokenCfg,
		Decoder:     auth.JWTIdentityDecoder{Secret: cfg.FederatedSecret},
		Latency:     latency.Between(cfg.AuthLatencyMin, cfg.AuthLatencyMax),
		BcryptCost:  cfg.BcryptCost,
		Logger:      logger,
	})

	wsHub := hub.New(logger)
	detSvc := detection.NewService(repo, detection.Options{
		Latency:  latency.Fixed(cfg.ScanLatency),
		Notifier: wsHub,
		Logger:   logger,
	})

	limiter := middleware.NewRateLimiter(10, time.Minute)
	defer limiter.Stop()

	router := server.NewRouter(server.Deps{
		Auth:        authSvc,
		Detection:   detSvc,
		Hub:         wsHub,
		Logger:      logger,
		Version:     version,
		AuthLimiter: limiter,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("listening",
		"addr", fmt.Sprintf(":%d", cfg.Port),
		"version", version,
		"tls", cfg.TLSCertFile != "" && cfg.TLSKeyFile != "",
		"database", databaseLabel(cfg),
	)
	return server.Run(ctx, cfg, router, logger)
}

func openBackend(cfg config.Config) (backend, error) {
	if cfg.DatabasePath == "" {
		return store.New(), nil
	}
	db, err := store.OpenSQLite(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func databaseLabel(cfg config.Config) string {
	if cfg.DatabasePath == "" {
		return "memory"
	}
	return cfg.DatabasePath
}

