// Package storage is the SQLite persistence bridge. Like the file slot it
// stores whole ledger snapshots, but it additionally keeps per-row sync
// bookkeeping for the Google Sheets worker.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"movimientos/internal/core"
	"movimientos/internal/persist"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ persist.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load implements persist.Loader, returning rows in their original
// insertion order.
func (r *SQLiteRepository) Load(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, fecha, tipo, categoria, categoria_nota, monto_cents, descripcion
		FROM movimientos ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w: %v", core.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			slog.WarnContext(ctx, "Skipping unreadable ledger row", "error", err)
			continue
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load ledger: %w: %v", core.ErrStorageUnavailable, err)
	}
	return txs, nil
}

// Save implements persist.Saver: one transaction upserts every row and
// deletes the ones no longer in the snapshot. Rows whose content is
// unchanged keep their synced flag so the worker does not re-append them.
func (r *SQLiteRepository) Save(ctx context.Context, txs []core.Transaction) error {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save ledger: %w: %v", core.ErrStorageUnavailable, err)
	}
	defer dbtx.Rollback()

	const upsert = `
		INSERT INTO movimientos
			(id, fecha, tipo, categoria, categoria_nota, monto_cents, descripcion, position, synced, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			fecha          = excluded.fecha,
			tipo           = excluded.tipo,
			categoria      = excluded.categoria,
			categoria_nota = excluded.categoria_nota,
			monto_cents    = excluded.monto_cents,
			descripcion    = excluded.descripcion,
			position       = excluded.position,
			updated_at     = excluded.updated_at,
			synced = CASE WHEN movimientos.fecha = excluded.fecha
				AND movimientos.tipo = excluded.tipo
				AND movimientos.categoria = excluded.categoria
				AND movimientos.categoria_nota = excluded.categoria_nota
				AND movimientos.monto_cents = excluded.monto_cents
				AND movimientos.descripcion = excluded.descripcion
				THEN movimientos.synced ELSE 0 END`

	for i, tx := range txs {
		_, err := dbtx.ExecContext(ctx, upsert,
			tx.ID, tx.Date.ISO(), string(tx.Kind), tx.Category, tx.CategoryNote,
			tx.Amount.Cents, tx.Description, i)
		if err != nil {
			return fmt.Errorf("upsert transaction %s: %w: %v", tx.ID, core.ErrStorageUnavailable, err)
		}
	}

	if err := deleteMissing(ctx, dbtx, txs); err != nil {
		return err
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("save ledger: %w: %v", core.ErrStorageUnavailable, err)
	}

	slog.DebugContext(ctx, "Ledger snapshot saved to SQLite", "count", len(txs))
	return nil
}

func deleteMissing(ctx context.Context, dbtx *sql.Tx, txs []core.Transaction) error {
	if len(txs) == 0 {
		if _, err := dbtx.ExecContext(ctx, `DELETE FROM movimientos`); err != nil {
			return fmt.Errorf("clear ledger: %w: %v", core.ErrStorageUnavailable, err)
		}
		return nil
	}
	placeholders := strings.Repeat("?,", len(txs)-1) + "?"
	args := make([]any, len(txs))
	for i, tx := range txs {
		args[i] = tx.ID
	}
	_, err := dbtx.ExecContext(ctx,
		`DELETE FROM movimientos WHERE id NOT IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("prune removed transactions: %w: %v", core.ErrStorageUnavailable, err)
	}
	return nil
}

// GetTransaction reads a single row by id, for the sync worker.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, fecha, tipo, categoria, categoria_nota, monto_cents, descripcion
		FROM movimientos WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, core.ErrNotFound)
		}
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return tx, nil
}

// GetPendingSync returns up to limit transactions not yet mirrored to the
// remote sheet.
func (r *SQLiteRepository) GetPendingSync(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, fecha, tipo, categoria, categoria_nota, monto_cents, descripcion
		FROM movimientos WHERE synced = 0 ORDER BY position LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("get pending sync: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// MarkSynced flags a row as mirrored to the remote sheet.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE movimientos SET synced = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark synced %s: %w", id, err)
	}
	return nil
}

// MarkSyncError counts a failed sync attempt; the row stays pending.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE movimientos SET sync_errors = sync_errors + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark sync error %s: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		id, fecha, tipo, categoria, nota, descripcion string
		cents                                         int64
	)
	if err := row.Scan(&id, &fecha, &tipo, &categoria, &nota, &cents, &descripcion); err != nil {
		return core.Transaction{}, err
	}
	date, err := core.ParseDate(fecha)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %s: %w", id, err)
	}
	kind, err := core.ParseKind(tipo)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %s: %w", id, err)
	}
	return core.Transaction{
		ID:           id,
		Date:         date,
		Kind:         kind,
		Category:     categoria,
		CategoryNote: nota,
		Amount:       core.Money{Cents: cents},
		Description:  descripcion,
	}, nil
}
