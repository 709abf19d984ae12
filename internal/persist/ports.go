// Package persist defines the ports for the durable ledger slot. The
// in-memory ledger is always the source of truth; Save writes the whole
// snapshot and Load reads it back, nothing finer-grained.
package persist

import (
	"context"

	"movimientos/internal/core"
)

type (
	// Loader reads the persisted ledger. Implementations return
	// core.ErrStorageUnavailable (wrapped) when the slot cannot be read;
	// callers degrade to an empty ledger.
	Loader interface {
		Load(ctx context.Context) ([]core.Transaction, error)
	}

	// Saver replaces the persisted ledger with the given snapshot.
	Saver interface {
		Save(ctx context.Context, txs []core.Transaction) error
	}

	// Store is a full persistence bridge.
	Store interface {
		Loader
		Saver
	}
)
