package domain

import (
	"math"
	"strings"
	"time"

	"github.com/dvloznov/investment-ledger/internal/cells"
)

// Direction tells whether an entry puts money into an instrument (credit)
// or takes it out (debit).
type Direction string

const (
	// Credit is money invested.
	Credit Direction = "credit"
	// Debit is money withdrawn.
	Debit Direction = "debit"
)

// ParseDirection maps free text onto a Direction. Anything that is not
// "debit" (case-insensitive) is a credit.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Debit)) {
		return Debit
	}
	return Credit
}

// Canonical field names, in persisted column order.
const (
	FieldID        = "id"
	FieldType      = "type"
	FieldCategory  = "category"
	FieldName      = "name"
	FieldDirection = "direction"
	FieldAmount    = "amount"
	FieldDate      = "date"
	FieldNotes     = "notes"
	FieldCreatedAt = "createdAt"
)

// Fields is the canonical header of the ledger table.
var Fields = []string{
	FieldID,
	FieldType,
	FieldCategory,
	FieldName,
	FieldDirection,
	FieldAmount,
	FieldDate,
	FieldNotes,
	FieldCreatedAt,
}

// TimestampLayout is the layout of CreatedAt: UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Entry is one ledger line item: a single credit or debit cash flow against
// an investment instrument.
type Entry struct {
	ID        string    `json:"id" yaml:"id"`
	Type      string    `json:"type" yaml:"type"`
	Category  string    `json:"category" yaml:"category"`
	Name      string    `json:"name" yaml:"name"`
	Direction Direction `json:"direction" yaml:"direction"`
	Amount    float64   `json:"amount" yaml:"amount"` // magnitude, never negative
	Date      string    `json:"date" yaml:"date"`     // YYYY-MM-DD
	Notes     string    `json:"notes" yaml:"notes"`
	CreatedAt string    `json:"createdAt" yaml:"createdAt"`
}

// SignedAmount is the amount with the direction applied: debits are negative.
func (e Entry) SignedAmount() float64 {
	if e.Direction == Debit {
		return -math.Abs(e.Amount)
	}
	return e.Amount
}

// Value returns the persisted value of a canonical field.
func (e Entry) Value(field string) any {
	switch field {
	case FieldID:
		return e.ID
	case FieldType:
		return e.Type
	case FieldCategory:
		return e.Category
	case FieldName:
		return e.Name
	case FieldDirection:
		return string(e.Direction)
	case FieldAmount:
		return e.Amount
	case FieldDate:
		return e.Date
	case FieldNotes:
		return e.Notes
	case FieldCreatedAt:
		return e.CreatedAt
	}
	return nil
}

// Normalize trims the text fields, canonicalizes the direction and makes the
// amount a finite magnitude. A negative amount is stored as its magnitude
// with the direction flipped so the signed amount is unchanged.
func Normalize(e Entry) Entry {
	e.ID = strings.TrimSpace(e.ID)
	e.Type = strings.TrimSpace(e.Type)
	e.Category = strings.TrimSpace(e.Category)
	e.Name = strings.TrimSpace(e.Name)
	e.Direction = ParseDirection(string(e.Direction))
	e.Date = strings.TrimSpace(e.Date)
	e.Notes = strings.TrimSpace(e.Notes)
	e.CreatedAt = strings.TrimSpace(e.CreatedAt)

	if math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) {
		e.Amount = 0
	}
	if e.Amount < 0 {
		e.Amount = -e.Amount
		if e.Direction == Debit {
			e.Direction = Credit
		} else {
			e.Direction = Debit
		}
	}
	return e
}

// FromValues builds a normalized entry from raw cell values keyed by
// canonical field name. Missing fields take their defaults.
func FromValues(values map[string]any) Entry {
	return Normalize(Entry{
		ID:        cells.ToString(values[FieldID]),
		Type:      cells.ToString(values[FieldType]),
		Category:  cells.ToString(values[FieldCategory]),
		Name:      cells.ToString(values[FieldName]),
		Direction: Direction(cells.ToString(values[FieldDirection])),
		Amount:    cells.ToNumber(values[FieldAmount]),
		Date:      cells.ToString(values[FieldDate]),
		Notes:     cells.ToString(values[FieldNotes]),
		CreatedAt: cells.ToString(values[FieldCreatedAt]),
	})
}

// Timestamp formats t the way CreatedAt is stored.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
