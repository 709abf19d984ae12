package core

import (
	"fmt"
	"time"
)

// Date is a calendar date with no time component, normalized to UTC midnight.
type Date struct {
	time.Time
}

// NewDate builds a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses the canonical YYYY-MM-DD wire format used by the form
// and the persisted slot.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t.UTC()}, nil
}

// ISO renders the canonical YYYY-MM-DD form. Zero dates render empty.
func (d Date) ISO() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// FormatDate renders a date in display order (DD/MM/YYYY). A zero date
// renders as the empty string, never an error.
func FormatDate(d Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format("02/01/2006")
}

// MonthKey identifies a year-month bucket. Keys compare with Less for the
// most-recent-first bucket ordering.
type MonthKey struct {
	Year  int
	Month int // 1-12
}

// Key returns the transaction's month bucket.
func (t Transaction) Key() MonthKey {
	return MonthKey{Year: t.Date.Year(), Month: int(t.Date.Month())}
}

func (k MonthKey) Less(other MonthKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Month < other.Month
}

// String renders the sortable YYYY-MM form used by the chart series.
func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}

var monthNames = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// Label renders a human month heading, e.g. "marzo 2024".
func (k MonthKey) Label() string {
	if k.Month < 1 || k.Month > 12 {
		return k.String()
	}
	return fmt.Sprintf("%s %d", monthNames[k.Month-1], k.Year)
}
