// Package sheets defines the outbound ports for the spreadsheet mirror the
// sync worker maintains.
package sheets

import (
	"context"

	"movimientos/internal/core"
)

type (
	// LedgerAppender appends one transaction to the remote spreadsheet and
	// returns a row reference for logging.
	LedgerAppender interface {
		Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}
)
