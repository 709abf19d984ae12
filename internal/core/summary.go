package core

import "sort"

// LedgerTotals aggregates a transaction list. Income and Expense are both
// non-negative magnitudes; Balance = Income - Expense.
type LedgerTotals struct {
	Income  Money
	Expense Money
	Balance Money
}

// MonthBucket is one year-month group of the ledger view.
type MonthBucket struct {
	Key    MonthKey
	Items  []Transaction
	Totals LedgerTotals
}

// Totals sums the list in integer cents.
func Totals(txs []Transaction) LedgerTotals {
	var income, expense int64
	for _, t := range txs {
		switch t.Kind {
		case Income:
			income += t.Amount.Cents
		case Expense:
			expense += t.Amount.Abs().Cents
		}
	}
	return LedgerTotals{
		Income:  Money{Cents: income},
		Expense: Money{Cents: expense},
		Balance: Money{Cents: income - expense},
	}
}

// Group partitions transactions into month buckets, most recent month first.
// Within a bucket rows are ordered by date descending; equal dates keep their
// input (insertion) order. The concatenation of all buckets is always a
// permutation of the input.
func Group(txs []Transaction) []MonthBucket {
	byKey := make(map[MonthKey][]Transaction)
	var keys []MonthKey
	for _, t := range txs {
		k := t.Key()
		if _, seen := byKey[k]; !seen {
			keys = append(keys, k)
		}
		byKey[k] = append(byKey[k], t)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[j].Less(keys[i]) })

	buckets := make([]MonthBucket, 0, len(keys))
	for _, k := range keys {
		items := byKey[k]
		sort.SliceStable(items, func(i, j int) bool {
			return items[j].Date.Before(items[i].Date.Time)
		})
		buckets = append(buckets, MonthBucket{
			Key:    k,
			Items:  items,
			Totals: Totals(items),
		})
	}
	return buckets
}
