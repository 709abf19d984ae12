// Package export renders the ledger to downloadable formats: a flat CSV
// spreadsheet and a month-grouped PDF statement.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"movimientos/internal/core"
)

var csvHeader = []string{"ID", "Fecha", "Tipo", "Categoría", "Aclaración", "Monto", "Descripción"}

// WriteCSV writes the given transactions as a spreadsheet, one row per
// movement plus a trailing totals row. Amounts are plain signed decimals so
// spreadsheet software can sum the column.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, tx := range txs {
		row := []string{
			tx.ID,
			core.FormatDate(tx.Date),
			string(tx.Kind),
			tx.Category,
			tx.CategoryNote,
			centsToDecimal(tx.Amount.Cents),
			tx.Description,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	totals := core.Totals(txs)
	totalRow := []string{"", "", "", "", "Balance", centsToDecimal(totals.Balance.Cents), ""}
	if err := cw.Write(totalRow); err != nil {
		return fmt.Errorf("write csv totals: %w", err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// centsToDecimal renders cents as "-1234.56", machine-friendly, no grouping.
func centsToDecimal(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
