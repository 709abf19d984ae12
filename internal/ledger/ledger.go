// Package ledger owns the canonical in-memory transaction collection. It is
// the single source of truth; persistence and views always work from the
// snapshots it hands out.
package ledger

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"
	"time"

	"movimientos/internal/core"
)

type Store struct {
	mu    sync.Mutex
	items []core.Transaction
}

func New() *Store {
	return &Store{}
}

// Add validates the record, assigns a fresh id and appends. The assigned id
// is returned; the caller's ID field is ignored.
func (s *Store) Add(tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("add transaction: %w", err)
	}
	tx.ID = newID()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, tx)
	return tx.ID, nil
}

// Update replaces every field except ID. Readers never observe a partial
// update: the swap happens under the store lock.
func (s *Store) Update(id string, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("update transaction %s: %w", id, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			tx.ID = id
			s.items[i] = tx
			return nil
		}
	}
	return fmt.Errorf("update transaction %s: %w", id, core.ErrNotFound)
}

// Remove deletes the transaction with the given id. Removal is not
// idempotent: a second call for the same id fails with ErrNotFound.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("remove transaction %s: %w", id, core.ErrNotFound)
}

// Get returns the transaction with the given id.
func (s *Store) Get(id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.items {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, core.ErrNotFound)
}

// List returns a snapshot in insertion order. Callers own the returned slice.
func (s *Store) List() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.items))
	copy(out, s.items)
	return out
}

// Len reports the current number of transactions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Replace installs a loaded collection, assigning ids to records that lack
// one (seed data and early persisted slots carried none).
func (s *Store) Replace(txs []core.Transaction) {
	items := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if t.ID == "" {
			t.ID = newID()
		}
		items = append(items, t)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
}

// newID combines a monotonic time source with a random suffix so ids stay
// unique under rapid successive creation.
func newID() string {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "m" + strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return "m" + strconv.FormatInt(time.Now().UnixMilli(), 36) + "-" + hex.EncodeToString(suffix)
}
