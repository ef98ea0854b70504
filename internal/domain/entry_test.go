package domain

import (
	"encoding/json"
	"testing"
)

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in   string
		want Direction
	}{
		{"debit", Debit},
		{" DEBIT ", Debit},
		{"credit", Credit},
		{"", Credit},
		{"withdrawal", Credit},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseDirection(tt.in); got != tt.want {
				t.Errorf("ParseDirection(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize(Entry{
		ID:        " abc ",
		Type:      " Stocks ",
		Direction: "Debit",
		Amount:    -40,
		Date:      "2024-02-01 ",
	})

	if got.ID != "abc" || got.Type != "Stocks" || got.Date != "2024-02-01" {
		t.Errorf("text fields not trimmed: %+v", got)
	}
	if got.Amount != 40 || got.Direction != Credit {
		t.Errorf("negative debit should become a credit of 40, got %v %v", got.Direction, got.Amount)
	}
	if got.SignedAmount() != 40 {
		t.Errorf("SignedAmount() = %v, want 40", got.SignedAmount())
	}
}

func TestSignedAmount(t *testing.T) {
	if got := (Entry{Direction: Debit, Amount: 25}).SignedAmount(); got != -25 {
		t.Errorf("debit SignedAmount() = %v, want -25", got)
	}
	if got := (Entry{Direction: Credit, Amount: 25}).SignedAmount(); got != 25 {
		t.Errorf("credit SignedAmount() = %v, want 25", got)
	}
}

func TestFromValues(t *testing.T) {
	got := FromValues(map[string]any{
		FieldID:        "id-1",
		FieldType:      "Gold",
		FieldAmount:    "1500",
		FieldDirection: "sideways",
	})

	if got.ID != "id-1" || got.Type != "Gold" || got.Amount != 1500 {
		t.Errorf("FromValues() = %+v", got)
	}
	if got.Direction != Credit {
		t.Errorf("Direction = %q, want credit", got.Direction)
	}
	if got.Category != "" || got.Notes != "" || got.Date != "" {
		t.Errorf("missing fields should default to empty: %+v", got)
	}
}

func TestCandidateUnmarshal(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantMissing []string
		wantAmount  float64
	}{
		{
			name:       "number amount",
			body:       `{"type":"Gold","amount":100,"date":"2024-01-01"}`,
			wantAmount: 100,
		},
		{
			name:       "string amount",
			body:       `{"type":"Gold","amount":"250.5","date":"2024-01-01"}`,
			wantAmount: 250.5,
		},
		{
			name:        "missing everything",
			body:        `{}`,
			wantMissing: []string{FieldType, FieldAmount, FieldDate},
		},
		{
			name:        "non numeric amount",
			body:        `{"type":"Gold","amount":"lots","date":"2024-01-01"}`,
			wantMissing: []string{FieldAmount},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Candidate
			if err := json.Unmarshal([]byte(tt.body), &c); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			missing := c.Missing()
			if len(missing) != len(tt.wantMissing) {
				t.Fatalf("Missing() = %v, want %v", missing, tt.wantMissing)
			}
			for i := range missing {
				if missing[i] != tt.wantMissing[i] {
					t.Errorf("Missing()[%d] = %q, want %q", i, missing[i], tt.wantMissing[i])
				}
			}
			if len(tt.wantMissing) == 0 && *c.Amount != tt.wantAmount {
				t.Errorf("Amount = %v, want %v", *c.Amount, tt.wantAmount)
			}
		})
	}
}

func TestPatchApply(t *testing.T) {
	base := Entry{ID: "x", Type: "Stocks", Category: "Large Cap", Direction: Credit, Amount: 10, Date: "2024-01-01", CreatedAt: "2024-01-01T00:00:00.000Z"}

	var p Patch
	if err := json.Unmarshal([]byte(`{"amount":"75","notes":"top-up","category":null}`), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	got := p.Apply(base)

	if got.Amount != 75 || got.Notes != "top-up" {
		t.Errorf("patched fields not applied: %+v", got)
	}
	if got.Category != "Large Cap" || got.Type != "Stocks" {
		t.Errorf("unspecified fields should keep prior values: %+v", got)
	}
	if got.ID != base.ID || got.CreatedAt != base.CreatedAt {
		t.Errorf("id and createdAt must not change: %+v", got)
	}
	if again := p.Apply(got); again != got {
		t.Errorf("applying the same patch twice changed the entry: %+v vs %+v", again, got)
	}
}
