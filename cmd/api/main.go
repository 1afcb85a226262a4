package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/algopay/internal/asset"
	"github.com/congo-pay/algopay/internal/config"
	"github.com/congo-pay/algopay/internal/infra"
	"github.com/congo-pay/algopay/internal/logging"
	"github.com/congo-pay/algopay/internal/metrics"
	"github.com/congo-pay/algopay/internal/node"
	"github.com/congo-pay/algopay/internal/routes"
	"github.com/congo-pay/algopay/internal/server"
	"github.com/congo-pay/algopay/internal/signer"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	registry := asset.DefaultRegistry()
	if cfg.AssetsFile != "" {
		registry, err = asset.LoadFile(cfg.AssetsFile)
		if err != nil {
			logger.Error("load asset registry", "error", err)
			os.Exit(1)
		}
	}

	m := metrics.New()
	algod := node.NewClient(cfg.Algod, m)

	wallet, err := newSigner(cfg.Signer, logger)
	if err != nil {
		logger.Error("build signer", "error", err)
		os.Exit(1)
	}

	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := infra.Migrate(ctx, db); err != nil {
			logger.Error("migrate postgres", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("DATABASE_URL not set, submissions are kept in memory")
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	} else {
		logger.Warn("REDIS_URL not set, idempotency and rate limiting are off")
	}

	srv, err := server.New(routes.Deps{
		Cfg:      cfg,
		DB:       db,
		Cache:    cache,
		Logger:   logger,
		Node:     algod,
		Signer:   wallet,
		Registry: registry,
		Metrics:  m,
	})
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}

func newSigner(cfg config.Signer, logger *slog.Logger) (signer.Signer, error) {
	switch cfg.Mode {
	case config.SignerDev:
		var mnemonics []string
		if cfg.DevMnemonic != "" {
			mnemonics = append(mnemonics, cfg.DevMnemonic)
		}
		dev, err := signer.NewDev(mnemonics...)
		if err != nil {
			return nil, err
		}
		logger.Warn("using in-process development signer")
		return dev, nil
	default:
		pem, err := os.ReadFile(cfg.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read signer private key: %w", err)
		}
		return signer.NewRemote(signer.RemoteConfig{
			BaseURL:       cfg.URL,
			APIKey:        cfg.APIKey,
			PrivateKeyPEM: pem,
			PollInterval:  cfg.PollInterval,
		}, logger)
	}
}
