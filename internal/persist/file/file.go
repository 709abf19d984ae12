// Package file persists the ledger as a single JSON document, the direct
// analog of the original tracker's local-storage slot.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"movimientos/internal/core"
	"movimientos/internal/persist"
)

type Store struct {
	path string
}

var _ persist.Store = (*Store)(nil)

func New(path string) *Store {
	return &Store{path: path}
}

// record is the wire shape of one transaction in the slot.
type record struct {
	ID           string `json:"id"`
	Date         string `json:"fecha"`
	Kind         string `json:"tipo"`
	Category     string `json:"categoria"`
	CategoryNote string `json:"categoriaAclaracion,omitempty"`
	AmountCents  int64  `json:"montoCents"`
	Description  string `json:"descripcion,omitempty"`
}

// Load reads the slot. A missing file is an empty ledger, not an error;
// anything else (unreadable file, corrupt JSON) is ErrStorageUnavailable.
func (s *Store) Load(ctx context.Context) ([]core.Transaction, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read ledger slot %s: %w: %v", s.path, core.ErrStorageUnavailable, err)
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode ledger slot %s: %w: %v", s.path, core.ErrStorageUnavailable, err)
	}

	txs := make([]core.Transaction, 0, len(records))
	for _, r := range records {
		tx, err := r.toTransaction()
		if err != nil {
			// One bad row must not take down the whole ledger.
			slog.WarnContext(ctx, "Skipping unreadable ledger record", "id", r.ID, "error", err)
			continue
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// Save atomically replaces the slot (temp file + rename).
func (s *Store) Save(ctx context.Context, txs []core.Transaction) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create slot directory: %w: %v", core.ErrStorageUnavailable, err)
	}

	records := make([]record, 0, len(txs))
	for _, tx := range txs {
		records = append(records, fromTransaction(tx))
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger slot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write ledger slot: %w: %v", core.ErrStorageUnavailable, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace ledger slot: %w: %v", core.ErrStorageUnavailable, err)
	}

	slog.DebugContext(ctx, "Ledger slot saved", "path", s.path, "count", len(records))
	return nil
}

func (r record) toTransaction() (core.Transaction, error) {
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	kind, err := core.ParseKind(r.Kind)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("record %s: %w", r.ID, err)
	}
	tx := core.Transaction{
		ID:           r.ID,
		Date:         date,
		Kind:         kind,
		Category:     r.Category,
		CategoryNote: r.CategoryNote,
		Amount:       core.Money{Cents: r.AmountCents},
		Description:  r.Description,
	}
	// A hand-edited slot can carry rows breaking the sign invariant.
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("record %s: %w", r.ID, err)
	}
	return tx, nil
}

func fromTransaction(tx core.Transaction) record {
	return record{
		ID:           tx.ID,
		Date:         tx.Date.ISO(),
		Kind:         string(tx.Kind),
		Category:     tx.Category,
		CategoryNote: tx.CategoryNote,
		AmountCents:  tx.Amount.Cents,
		Description:  tx.Description,
	}
}
