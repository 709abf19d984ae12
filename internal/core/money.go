// Package core holds the ledger domain: transactions, money, dates, and the
// filtering/grouping engine. Everything here is pure and stateless; callers
// own all mutation.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// Money is an amount in cents. Sums always accumulate in int64 cents so that
// display rounding never drifts, no matter how many rows are added.
type Money struct {
	Cents int64
}

// Abs returns the magnitude of the amount.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

// NormalizeAmount parses raw user input and forces the sign dictated by kind:
// income positive, expense negative, regardless of the sign typed. A leading
// "-" on an income is silently corrected, not rejected.
func NormalizeAmount(raw string, kind Kind) (Money, error) {
	cents, err := parseDecimalToCents(raw)
	if err != nil {
		return Money{}, err
	}
	if kind == Expense {
		cents = -cents
	}
	return Money{Cents: cents}, nil
}

// parseDecimalToCents converts decimal text to non-negative cents. Both dot
// (12.34) and comma (12,34) separators are accepted; a leading sign is
// stripped (the caller decides the sign); the third decimal rounds half-up.
func parseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.TrimPrefix(s, "+")
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	// A bare separator ("." or ",") carries no digits at all.
	if intPart == "" && fracPart == "" {
		return 0, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	// First two fractional digits; half-up rounding on the third
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return iv*100 + fracCents, nil
}

// FormatCurrency renders an amount as "$1.234,56" with a minus prefix for
// negatives and a bare sign for positives. Used for totals.
func FormatCurrency(m Money) string {
	if m.Cents < 0 {
		return "-" + formatAbs(m.Cents)
	}
	return formatAbs(m.Cents)
}

// FormatSigned renders an amount with an explicit +/- prefix. Used for
// ledger rows, where income and expense sit in the same column.
func FormatSigned(m Money) string {
	if m.Cents < 0 {
		return "-" + formatAbs(m.Cents)
	}
	return "+" + formatAbs(m.Cents)
}

// formatAbs renders |cents| with "." thousands grouping and "," decimals
// (es-AR convention, matching the tracker's display locale).
func formatAbs(cents int64) string {
	if cents < 0 {
		cents = -cents
	}
	whole := cents / 100
	rem := cents % 100

	digits := strconv.FormatInt(whole, 10)
	var b strings.Builder
	b.WriteByte('$')
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte('.')
		b.WriteString(digits[i : i+3])
	}
	b.WriteByte(',')
	if rem < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(rem, 10))
	return b.String()
}
