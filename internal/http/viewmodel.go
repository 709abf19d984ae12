package http

import (
	"fmt"

	"movimientos/internal/core"
)

// View models for the ledger partial. All money is pre-formatted here so the
// templates never touch cents.
type (
	ledgerView struct {
		Filtered bool
		Empty    bool
		Totals   totalsView
		Buckets  []bucketView
	}

	totalsView struct {
		Income  string
		Expense string
		Balance string
	}

	bucketView struct {
		Label   string
		Rows    []rowView
		Balance string
	}

	rowView struct {
		ID           string
		Date         string
		Kind         string
		IsExpense    bool
		Category     string
		CategoryNote string
		Amount       string
		AmountRaw    string // unsigned decimal for the edit form
		DateISO      string
		Description  string
	}
)

func buildLedgerView(txs []core.Transaction, criteria core.Criteria) ledgerView {
	totals := core.Totals(txs)
	view := ledgerView{
		Filtered: !criteria.IsZero(),
		Empty:    len(txs) == 0,
		Totals: totalsView{
			Income:  core.FormatCurrency(totals.Income),
			Expense: core.FormatCurrency(totals.Expense),
			Balance: core.FormatCurrency(totals.Balance),
		},
	}

	for _, bucket := range core.Group(txs) {
		bv := bucketView{
			Label:   bucket.Key.Label(),
			Balance: core.FormatCurrency(bucket.Totals.Balance),
		}
		for _, tx := range bucket.Items {
			bv.Rows = append(bv.Rows, rowView{
				ID:           tx.ID,
				Date:         core.FormatDate(tx.Date),
				Kind:         string(tx.Kind),
				IsExpense:    tx.Kind == core.Expense,
				Category:     tx.Category,
				CategoryNote: tx.CategoryNote,
				Amount:       core.FormatSigned(tx.Amount),
				AmountRaw:    unsignedDecimal(tx.Amount),
				DateISO:      tx.Date.ISO(),
				Description:  tx.Description,
			})
		}
		view.Buckets = append(view.Buckets, bv)
	}
	return view
}

// unsignedDecimal renders |amount| as "1234.56" for pre-filling the form.
func unsignedDecimal(m core.Money) string {
	cents := m.Abs().Cents
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
