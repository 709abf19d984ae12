package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"movimientos/internal/amqp"
	"movimientos/internal/core"
	"movimientos/internal/ledger"
	"movimientos/internal/persist"
)

// Seeder provides a one-time bootstrap dataset, used only when the durable
// slot holds nothing yet.
type Seeder interface {
	Fetch(ctx context.Context) ([]core.Transaction, error)
}

// LedgerService owns the mutation path: every change goes through the
// in-memory store first, is then persisted optimistically, and finally
// announced to the sync worker. The in-memory state is the source of truth:
// a failed durable write is logged and surfaced as a warning, never rolled
// back, and no retry is scheduled. Mutations are serialized so an in-flight
// save always completes before the next mutation touches the store.
type LedgerService struct {
	mu     sync.Mutex // serializes mutate+save pairs
	store  *ledger.Store
	slot   persist.Store
	events *amqp.Client // nil when AMQP is not configured
}

func NewLedgerService(store *ledger.Store, slot persist.Store, events *amqp.Client) *LedgerService {
	return &LedgerService{
		store:  store,
		slot:   slot,
		events: events,
	}
}

// Init loads the persisted ledger. A failed load degrades to an empty
// collection; an empty slot triggers the one-time seed fetch.
func (s *LedgerService) Init(ctx context.Context, seeder Seeder) error {
	txs, err := s.slot.Load(ctx)
	if err != nil {
		if !errors.Is(err, core.ErrStorageUnavailable) {
			return fmt.Errorf("init ledger: %w", err)
		}
		slog.WarnContext(ctx, "Ledger slot unavailable, starting empty", "error", err)
		txs = nil
	}

	if len(txs) == 0 && seeder != nil {
		seeded, err := seeder.Fetch(ctx)
		if err != nil {
			// Seed failures are non-fatal: start empty.
			slog.WarnContext(ctx, "Bootstrap fetch failed, starting empty", "error", err)
		} else if len(seeded) > 0 {
			txs = seeded
			slog.InfoContext(ctx, "Ledger seeded from bootstrap dataset", "count", len(seeded))
		}
	}

	s.mu.Lock()
	s.store.Replace(txs)
	if len(txs) > 0 {
		s.save(ctx)
	}
	s.mu.Unlock()
	return nil
}

// Add appends a new transaction and returns its assigned id.
func (s *LedgerService) Add(ctx context.Context, tx core.Transaction) (string, error) {
	s.mu.Lock()
	id, err := s.store.Add(tx)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.save(ctx)
	s.mu.Unlock()
	s.publish(ctx, amqp.OpUpsert, id)
	return id, nil
}

// Update replaces all fields of an existing transaction except its id.
func (s *LedgerService) Update(ctx context.Context, id string, tx core.Transaction) error {
	s.mu.Lock()
	if err := s.store.Update(id, tx); err != nil {
		s.mu.Unlock()
		return err
	}
	s.save(ctx)
	s.mu.Unlock()
	s.publish(ctx, amqp.OpUpsert, id)
	return nil
}

// Remove deletes a transaction.
func (s *LedgerService) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	if err := s.store.Remove(id); err != nil {
		s.mu.Unlock()
		return err
	}
	s.save(ctx)
	s.mu.Unlock()
	s.publish(ctx, amqp.OpDelete, id)
	return nil
}

// Get returns a single transaction by id.
func (s *LedgerService) Get(ctx context.Context, id string) (core.Transaction, error) {
	return s.store.Get(id)
}

// List returns an insertion-ordered snapshot of the ledger.
func (s *LedgerService) List(ctx context.Context) []core.Transaction {
	return s.store.List()
}

func (s *LedgerService) save(ctx context.Context) {
	if err := s.slot.Save(ctx, s.store.List()); err != nil {
		slog.WarnContext(ctx, "Durable save failed, in-memory ledger retained", "error", err)
	}
}

func (s *LedgerService) publish(ctx context.Context, op, id string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishChange(ctx, op, id); err != nil {
		// The mutation already succeeded locally; the worker's periodic
		// catch-up pass covers lost messages.
		slog.ErrorContext(ctx, "Failed to publish ledger change", "op", op, "id", id, "error", err)
	}
}

// Close releases the event channel, if any.
func (s *LedgerService) Close() error {
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			return fmt.Errorf("close ledger service: %w", err)
		}
	}
	return nil
}
