// Package worker mirrors ledger changes from SQLite to the remote
// spreadsheet. Change messages arrive over AMQP; a periodic catch-up pass
// re-syncs anything a lost message left behind.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"movimientos/internal/amqp"
	"movimientos/internal/core"
	"movimientos/internal/sheets"
	"movimientos/internal/storage"
)

type SyncWorker struct {
	storage   *storage.SQLiteRepository
	sheets    sheets.LedgerAppender
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, appender sheets.LedgerAppender, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		sheets:    appender,
		batchSize: batchSize,
	}
}

// HandleChangeMessage processes one ledger change message. An upsert reads
// the current row from SQLite, so a stale message still syncs the latest
// content. A delete only logs: the spreadsheet is append-only, and the
// periodic pass never resurrects deleted rows because they are gone from
// SQLite.
func (w *SyncWorker) HandleChangeMessage(ctx context.Context, msg *amqp.ChangeMessage) error {
	slog.InfoContext(ctx, "Processing change message", "op", msg.Op, "id", msg.ID)

	switch msg.Op {
	case amqp.OpDelete:
		slog.InfoContext(ctx, "Transaction deleted locally, spreadsheet row left in place", "id", msg.ID)
		return nil
	case amqp.OpUpsert:
		tx, err := w.storage.GetTransaction(ctx, msg.ID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				// Deleted between publish and consume. Nothing to sync.
				slog.WarnContext(ctx, "Transaction gone before sync, skipping", "id", msg.ID)
				return nil
			}
			return fmt.Errorf("get transaction from storage: %w", err)
		}
		return w.syncTransaction(ctx, tx)
	default:
		return fmt.Errorf("unknown change op %q", msg.Op)
	}
}

// ProcessPending syncs transactions that never made it to the spreadsheet.
// This is the backup mechanism for lost AMQP messages.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.GetPendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, tx := range pending {
		if err := w.syncTransaction(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to sync pending transaction", "id", tx.ID, "error", err)
			continue
		}
	}
	return nil
}

// RunPeriodicSync runs ProcessPending on a fixed interval until ctx ends.
func (w *SyncWorker) RunPeriodicSync(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// One pass at startup so a restart drains the backlog immediately.
	if err := w.ProcessPending(ctx); err != nil {
		slog.ErrorContext(ctx, "Initial pending sync failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping periodic sync", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Pending sync pass failed", "error", err)
			}
		}
	}
}

func (w *SyncWorker) syncTransaction(ctx context.Context, tx core.Transaction) error {
	rowRef, err := w.sheets.Append(ctx, tx)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, tx.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", tx.ID, "error", markErr)
		}
		return fmt.Errorf("append to spreadsheet: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, tx.ID); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}

	slog.InfoContext(ctx, "Transaction synced to spreadsheet", "id", tx.ID, "row", rowRef)
	return nil
}
