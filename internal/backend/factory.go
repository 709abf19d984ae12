// Package backend wires the durable slot, the optional AMQP client, and the
// ledger service together based on configuration.
package backend

import (
	"fmt"
	"log/slog"

	"movimientos/internal/amqp"
	"movimientos/internal/config"
	"movimientos/internal/ledger"
	"movimientos/internal/persist"
	"movimientos/internal/persist/file"
	"movimientos/internal/services"
	"movimientos/internal/storage"
)

type BackendType string

const (
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
)

func (bt BackendType) IsValid() bool {
	return bt == FileBackend || bt == SQLiteBackend
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result is a fully wired ledger service plus its cleanup.
type Result struct {
	Service *services.LedgerService
	Cleanup CleanupFunc
}

type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// Create builds the ledger service for the configured backend. The AMQP
// client is optional: a missing broker is logged and skipped, never fatal.
func (f *Factory) Create(cfg *config.Config) (*Result, error) {
	backendType := BackendType(cfg.DataBackend)
	if !backendType.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}

	var (
		slot    persist.Store
		cleanup CleanupFunc
	)
	switch backendType {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize SQLite repository: %w", err)
		}
		slot = repo
		cleanup = repo.Close
		f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	case FileBackend:
		slot = file.New(cfg.FileStorePath)
		f.logger.Info("Initialized file backend", "path", cfg.FileStorePath)
	}

	var events *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", err)
		} else {
			events = client
			f.logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	svc := services.NewLedgerService(ledger.New(), slot, events)

	combined := func() error {
		err := svc.Close()
		if cleanup != nil {
			if cerr := cleanup(); err == nil {
				err = cerr
			}
		}
		return err
	}

	return &Result{Service: svc, Cleanup: combined}, nil
}
