package core

import (
	"errors"
	"strings"
)

const (
	Income  Kind = "ingreso"
	Expense Kind = "gasto"
)

type (
	// Kind distinguishes income from expense movements.
	Kind string

	// Transaction is a single dated ledger movement. Amount sign always
	// agrees with Kind: Income >= 0, Expense <= 0. NormalizeAmount enforces
	// this on every write; raw input is never trusted.
	Transaction struct {
		ID           string
		Date         Date
		Kind         Kind
		Category     string
		CategoryNote string // qualifier, usually set when Category == "Otros"
		Amount       Money
		Description  string
	}
)

var (
	ErrInvalidRecord      = errors.New("invalid record")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrNotFound           = errors.New("transaction not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Categories is the bounded category set offered by the form. "Otros" is
// open-ended and pairs with a free-text CategoryNote.
func Categories() []string {
	return []string{
		"Sueldo",
		"Ventas",
		"Alquiler",
		"Comida",
		"Transporte",
		"Servicios",
		"Salud",
		"Ocio",
		"Otros",
	}
}

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

// ParseKind maps raw form input to a Kind, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(Income):
		return Income, nil
	case string(Expense):
		return Expense, nil
	default:
		return "", ErrInvalidRecord
	}
}

// Validate checks required fields and the sign invariant. It does not
// re-normalize: amounts must already carry the sign NormalizeAmount applied.
func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return wrapInvalid("date is required")
	}
	if !t.Kind.Valid() {
		return wrapInvalid("unknown kind")
	}
	if strings.TrimSpace(t.Category) == "" {
		return wrapInvalid("category is required")
	}
	if t.Kind == Income && t.Amount.Cents < 0 {
		return wrapInvalid("income amount must not be negative")
	}
	if t.Kind == Expense && t.Amount.Cents > 0 {
		return wrapInvalid("expense amount must not be positive")
	}
	if len(t.Description) > 200 {
		return wrapInvalid("description too long (max 200 characters)")
	}
	return nil
}

func wrapInvalid(msg string) error {
	return &invalidRecordError{msg: msg}
}

type invalidRecordError struct {
	msg string
}

func (e *invalidRecordError) Error() string { return e.msg }

func (e *invalidRecordError) Unwrap() error { return ErrInvalidRecord }
