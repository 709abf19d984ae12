package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"movimientos/internal/backend"
	"movimientos/internal/cli"
	apphttp "movimientos/internal/http"
	"movimientos/internal/seed"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	factory := backend.NewFactory(logger)
	result, err := factory.Create(cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	}()

	// Load the persisted ledger; an empty slot seeds from the bootstrap
	// dataset when candidates are configured.
	initCtx, initCancel := context.WithTimeout(context.Background(), time.Minute)
	if err := result.Service.Init(initCtx, seed.NewFetcher(cfg.SeedURLs)); err != nil {
		initCancel()
		logger.Error("Failed to initialize ledger", "error", err)
		os.Exit(1)
	}
	initCancel()

	srv := apphttp.NewServer(":"+cfg.Port, result.Service)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting movimientos server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
