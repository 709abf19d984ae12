package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"movimientos/internal/core"
	"movimientos/internal/ledger"
)

// slotStub records saves and scripts load behavior.
type slotStub struct {
	mu        sync.Mutex
	loaded    []core.Transaction
	loadErr   error
	saveErr   error
	saveDelay time.Duration
	saveCalls int
	lastSaved []core.Transaction
}

func (s *slotStub) Load(ctx context.Context) ([]core.Transaction, error) {
	return s.loaded, s.loadErr
}

func (s *slotStub) Save(ctx context.Context, txs []core.Transaction) error {
	if s.saveDelay > 0 {
		time.Sleep(s.saveDelay)
	}
	s.mu.Lock()
	s.saveCalls++
	s.lastSaved = txs
	s.mu.Unlock()
	return s.saveErr
}

func (s *slotStub) saved() (int, []core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveCalls, s.lastSaved
}

type seederStub struct {
	txs []core.Transaction
	err error
}

func (s *seederStub) Fetch(ctx context.Context) ([]core.Transaction, error) {
	return s.txs, s.err
}

func sampleTx() core.Transaction {
	return core.Transaction{
		Date:     core.NewDate(2024, 1, 15),
		Kind:     core.Income,
		Category: "Sueldo",
		Amount:   core.Money{Cents: 100000},
	}
}

func TestInitLoadsPersistedLedger(t *testing.T) {
	slot := &slotStub{loaded: []core.Transaction{
		{ID: "x", Date: core.NewDate(2024, 1, 1), Kind: core.Income, Category: "Ventas", Amount: core.Money{Cents: 10}},
	}}
	svc := NewLedgerService(ledger.New(), slot, nil)

	if err := svc.Init(context.Background(), &seederStub{err: errors.New("should not be called")}); err != nil {
		t.Fatalf("init: %v", err)
	}
	if got := svc.List(context.Background()); len(got) != 1 || got[0].ID != "x" {
		t.Fatalf("unexpected ledger %+v", got)
	}
}

func TestInitSeedsWhenSlotEmpty(t *testing.T) {
	slot := &slotStub{}
	seeder := &seederStub{txs: []core.Transaction{
		{Date: core.NewDate(2024, 2, 1), Kind: core.Expense, Category: "Comida", Amount: core.Money{Cents: -100}},
	}}
	svc := NewLedgerService(ledger.New(), slot, nil)

	if err := svc.Init(context.Background(), seeder); err != nil {
		t.Fatalf("init: %v", err)
	}
	got := svc.List(context.Background())
	if len(got) != 1 || got[0].ID == "" {
		t.Fatalf("seeded record should get an id, got %+v", got)
	}
	if calls, _ := slot.saved(); calls != 1 {
		t.Fatalf("seeded ledger should be persisted once, got %d saves", calls)
	}
}

func TestInitDegradesToEmptyOnStorageUnavailable(t *testing.T) {
	slot := &slotStub{loadErr: fmt.Errorf("boom: %w", core.ErrStorageUnavailable)}
	svc := NewLedgerService(ledger.New(), slot, nil)

	if err := svc.Init(context.Background(), &seederStub{err: errors.New("offline")}); err != nil {
		t.Fatalf("storage unavailable must be non-fatal: %v", err)
	}
	if got := svc.List(context.Background()); len(got) != 0 {
		t.Fatalf("expected empty ledger, got %+v", got)
	}
}

func TestAddPersistsSnapshot(t *testing.T) {
	slot := &slotStub{}
	svc := NewLedgerService(ledger.New(), slot, nil)

	id, err := svc.Add(context.Background(), sampleTx())
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id == "" {
		t.Fatal("expected assigned id")
	}
	if calls, last := slot.saved(); calls != 1 || len(last) != 1 {
		t.Fatalf("expected one save of one record, got %d saves of %d", calls, len(last))
	}
}

func TestFailedSaveKeepsInMemoryState(t *testing.T) {
	slot := &slotStub{saveErr: fmt.Errorf("disk full: %w", core.ErrStorageUnavailable)}
	svc := NewLedgerService(ledger.New(), slot, nil)

	id, err := svc.Add(context.Background(), sampleTx())
	if err != nil {
		t.Fatalf("add must succeed despite failed save: %v", err)
	}
	if got := svc.List(context.Background()); len(got) != 1 || got[0].ID != id {
		t.Fatalf("in-memory state must be retained, got %+v", got)
	}
}

func TestConcurrentAddsPersistBothRecords(t *testing.T) {
	// The delay widens the save window so an unserialized mutation path
	// would let the save holding only one record land last.
	slot := &slotStub{saveDelay: 10 * time.Millisecond}
	svc := NewLedgerService(ledger.New(), slot, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Add(ctx, sampleTx()); err != nil {
				t.Errorf("add: %v", err)
			}
		}()
	}
	wg.Wait()

	calls, last := slot.saved()
	if calls != 2 {
		t.Fatalf("expected 2 saves, got %d", calls)
	}
	if len(last) != 2 {
		t.Fatalf("final snapshot must hold both records, got %d", len(last))
	}
}

func TestRemoveUnknownIDSurfacesNotFound(t *testing.T) {
	slot := &slotStub{}
	svc := NewLedgerService(ledger.New(), slot, nil)
	svc.Add(context.Background(), sampleTx())
	saves, _ := slot.saved()

	err := svc.Remove(context.Background(), "missing")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if calls, _ := slot.saved(); calls != saves {
		t.Fatal("failed remove must not persist")
	}
	if len(svc.List(context.Background())) != 1 {
		t.Fatal("failed remove must not mutate the ledger")
	}
}

func TestUpdateThenListReflectsChange(t *testing.T) {
	svc := NewLedgerService(ledger.New(), &slotStub{}, nil)
	ctx := context.Background()
	id, _ := svc.Add(ctx, sampleTx())

	repl := sampleTx()
	repl.Kind = core.Expense
	repl.Category = "Comida"
	repl.Amount = core.Money{Cents: -999}
	if err := svc.Update(ctx, id, repl); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := svc.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Category != "Comida" || got.Amount.Cents != -999 {
		t.Fatalf("update not applied: %+v", got)
	}
}
