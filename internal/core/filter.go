package core

import "strings"

// Criteria is a conjunction of optional predicates. Zero values mean "no
// filtering" for that dimension, so the zero Criteria is the identity filter.
type Criteria struct {
	Text     string // case-insensitive substring on Category or CategoryNote
	Category string // exact match
	From     Date   // inclusive lower bound; zero = unbounded
	To       Date   // inclusive upper bound; zero = unbounded
}

// CriteriaFromValues builds Criteria from raw form values. Malformed date
// bounds are dropped rather than rejected: this is interactive filtering,
// not a validated data boundary.
func CriteriaFromValues(text, category, from, to string) Criteria {
	c := Criteria{
		Text:     strings.TrimSpace(text),
		Category: strings.TrimSpace(category),
	}
	if d, err := ParseDate(strings.TrimSpace(from)); err == nil {
		c.From = d
	}
	if d, err := ParseDate(strings.TrimSpace(to)); err == nil {
		c.To = d
	}
	return c
}

// IsZero reports whether no predicate is set.
func (c Criteria) IsZero() bool {
	return c.Text == "" && c.Category == "" && c.From.IsZero() && c.To.IsZero()
}

func (c Criteria) matches(t Transaction) bool {
	if c.Text != "" {
		needle := strings.ToLower(c.Text)
		if !strings.Contains(strings.ToLower(t.Category), needle) &&
			!strings.Contains(strings.ToLower(t.CategoryNote), needle) {
			return false
		}
	}
	if c.Category != "" && t.Category != c.Category {
		return false
	}
	if !c.From.IsZero() && t.Date.Before(c.From.Time) {
		return false
	}
	if !c.To.IsZero() && t.Date.After(c.To.Time) {
		return false
	}
	return true
}

// Filter returns the transactions satisfying every set predicate, preserving
// input order. Filtering with the zero Criteria returns a copy of the input.
func Filter(txs []Transaction, c Criteria) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if c.matches(t) {
			out = append(out, t)
		}
	}
	return out
}
