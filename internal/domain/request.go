package domain

import (
	"encoding/json"
	"strings"

	"github.com/dvloznov/investment-ledger/internal/cells"
)

// Candidate is a request to create an entry.
type Candidate struct {
	Type      string
	Category  string
	Name      string
	Direction string
	Amount    *float64 // nil when absent or not a finite number
	Date      string
	Notes     string
}

// Missing lists the required fields a candidate lacks.
func (c Candidate) Missing() []string {
	var missing []string
	if strings.TrimSpace(c.Type) == "" {
		missing = append(missing, FieldType)
	}
	if c.Amount == nil {
		missing = append(missing, FieldAmount)
	}
	if strings.TrimSpace(c.Date) == "" {
		missing = append(missing, FieldDate)
	}
	return missing
}

// UnmarshalJSON accepts the amount as a JSON number or a numeric string.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type      string `json:"type"`
		Category  string `json:"category"`
		Name      string `json:"name"`
		Direction string `json:"direction"`
		Amount    any    `json:"amount"`
		Date      string `json:"date"`
		Notes     string `json:"notes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Candidate{
		Type:      raw.Type,
		Category:  raw.Category,
		Name:      raw.Name,
		Direction: raw.Direction,
		Amount:    numberPtr(raw.Amount),
		Date:      raw.Date,
		Notes:     raw.Notes,
	}
	return nil
}

// Patch is a partial update. Nil fields keep their current value.
type Patch struct {
	Type      *string
	Category  *string
	Name      *string
	Direction *string
	Amount    *float64
	Date      *string
	Notes     *string
}

// Apply merges the patch over e. ID and CreatedAt are never touched.
func (p Patch) Apply(e Entry) Entry {
	if p.Type != nil {
		e.Type = *p.Type
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Direction != nil {
		e.Direction = Direction(*p.Direction)
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Notes != nil {
		e.Notes = *p.Notes
	}
	return Normalize(e)
}

// UnmarshalJSON accepts the amount as a JSON number or a numeric string. An
// amount that is present but not numeric coerces to 0.
func (p *Patch) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type      *string `json:"type"`
		Category  *string `json:"category"`
		Name      *string `json:"name"`
		Direction *string `json:"direction"`
		Amount    any     `json:"amount"`
		Date      *string `json:"date"`
		Notes     *string `json:"notes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Patch{
		Type:      raw.Type,
		Category:  raw.Category,
		Name:      raw.Name,
		Direction: raw.Direction,
		Date:      raw.Date,
		Notes:     raw.Notes,
	}
	if raw.Amount != nil {
		n := cells.ToNumber(raw.Amount)
		p.Amount = &n
	}
	return nil
}

func numberPtr(v any) *float64 {
	n, ok := cells.ParseNumber(v)
	if !ok {
		return nil
	}
	return &n
}
