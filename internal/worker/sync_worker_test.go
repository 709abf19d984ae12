package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"movimientos/internal/amqp"
	"movimientos/internal/core"
	"movimientos/internal/storage"
)

type appenderStub struct {
	appended []string
	err      error
}

func (a *appenderStub) Append(ctx context.Context, tx core.Transaction) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.appended = append(a.appended, tx.ID)
	return "Movimientos!A2:G2", nil
}

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "worker.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedRepo(t *testing.T, repo *storage.SQLiteRepository) []core.Transaction {
	t.Helper()
	txs := []core.Transaction{
		{ID: "a", Date: core.NewDate(2024, 1, 15), Kind: core.Income, Category: "Sueldo", Amount: core.Money{Cents: 100000}},
		{ID: "b", Date: core.NewDate(2024, 1, 20), Kind: core.Expense, Category: "Comida", Amount: core.Money{Cents: -5000}},
	}
	if err := repo.Save(context.Background(), txs); err != nil {
		t.Fatalf("seed repo: %v", err)
	}
	return txs
}

func TestHandleUpsertSyncsAndMarks(t *testing.T) {
	repo := newTestRepo(t)
	seedRepo(t, repo)
	appender := &appenderStub{}
	w := NewSyncWorker(repo, appender, 10)
	ctx := context.Background()

	if err := w.HandleChangeMessage(ctx, amqp.NewChangeMessage(amqp.OpUpsert, "a")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(appender.appended) != 1 || appender.appended[0] != "a" {
		t.Fatalf("unexpected appends %v", appender.appended)
	}

	pending, err := repo.GetPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "b" {
		t.Fatalf("expected only b pending, got %+v", pending)
	}
}

func TestHandleUpsertForMissingRowIsNoop(t *testing.T) {
	repo := newTestRepo(t)
	appender := &appenderStub{}
	w := NewSyncWorker(repo, appender, 10)

	if err := w.HandleChangeMessage(context.Background(), amqp.NewChangeMessage(amqp.OpUpsert, "gone")); err != nil {
		t.Fatalf("missing row must not requeue: %v", err)
	}
	if len(appender.appended) != 0 {
		t.Fatal("nothing should be appended")
	}
}

func TestHandleDeleteIsLogged(t *testing.T) {
	w := NewSyncWorker(newTestRepo(t), &appenderStub{}, 10)
	if err := w.HandleChangeMessage(context.Background(), amqp.NewChangeMessage(amqp.OpDelete, "a")); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestHandleUnknownOp(t *testing.T) {
	w := NewSyncWorker(newTestRepo(t), &appenderStub{}, 10)
	msg := &amqp.ChangeMessage{Op: "truncate", ID: "x"}
	if err := w.HandleChangeMessage(context.Background(), msg); err == nil {
		t.Fatal("expected error for unknown op")
	}
}

func TestProcessPendingDrainsBacklog(t *testing.T) {
	repo := newTestRepo(t)
	seedRepo(t, repo)
	appender := &appenderStub{}
	w := NewSyncWorker(repo, appender, 10)
	ctx := context.Background()

	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("process pending: %v", err)
	}
	if len(appender.appended) != 2 {
		t.Fatalf("expected 2 appends, got %v", appender.appended)
	}

	// Second pass finds nothing.
	appender.appended = nil
	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if len(appender.appended) != 0 {
		t.Fatalf("backlog should be drained, got %v", appender.appended)
	}
}

func TestFailedAppendKeepsRowPending(t *testing.T) {
	repo := newTestRepo(t)
	seedRepo(t, repo)
	w := NewSyncWorker(repo, &appenderStub{err: errors.New("quota exceeded")}, 10)
	ctx := context.Background()

	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("process pending must not abort on row failure: %v", err)
	}
	pending, err := repo.GetPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("rows must stay pending after failed append, got %d", len(pending))
	}
}
