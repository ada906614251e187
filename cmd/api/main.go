package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/authgate/authgate/internal/config"
	"github.com/authgate/authgate/internal/infra"
	"github.com/authgate/authgate/internal/logging"
	"github.com/authgate/authgate/internal/routes"
	"github.com/authgate/authgate/internal/server"
	"github.com/authgate/authgate/internal/task"
	"github.com/authgate/authgate/internal/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()

	keys, err := token.LoadKeys(cfg.JWTPrivateKeyPEM, cfg.JWTPublicKeyPEM, cfg.JWTPrivateKeyFile, cfg.JWTPublicKeyFile)
	if err != nil {
		logger.Error("load signing keys", "error", err)
		os.Exit(1)
	}

	db, err := infra.NewMongoClient(ctx, cfg.MongoURI)
	if err != nil {
		logger.Error("connect mongo", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Disconnect(ctx); err != nil {
			logger.Warn("disconnect mongo", "error", err)
		}
	}()

	cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("connect redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logger.Warn("close redis", "error", err)
		}
	}()

	pool := task.NewPool(logger, 4, 128, 30*time.Second)
	defer pool.Close()

	srv, err := server.New(routes.Deps{
		Cfg:    cfg,
		Mongo:  db,
		Cache:  cache,
		Keys:   keys,
		Pool:   pool,
		Logger: logger,
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
