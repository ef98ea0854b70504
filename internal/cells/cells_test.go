package cells

import (
	"math"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func TestToString(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "Stocks", "Stocks"},
		{"date", time.Date(2024, 3, 9, 18, 30, 0, 0, time.UTC), "2024-03-09"},
		{"hyperlink text", Hyperlink{Text: "SBI", Target: "https://example.com"}, "SBI"},
		{"hyperlink without text", Hyperlink{Target: "https://example.com"}, "https://example.com"},
		{"rich text", RichText{"SBI ", "Bluechip"}, "SBI Bluechip"},
		{"formula result", Formula{Expr: "A1+A2", Result: 150.5}, "150.5"},
		{"formula without result", Formula{Expr: "A1+A2"}, ""},
		{"float", 1250.0, "1250"},
		{"int", 42, "42"},
		{"bool", true, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToString(tt.in); got != tt.want {
				t.Errorf("ToString(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestToNumber(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"nil", nil, 0},
		{"float", 99.5, 99.5},
		{"int", 7, 7},
		{"numeric string", " 1200.25 ", 1200.25},
		{"empty string", "", 0},
		{"garbage", "abc", 0},
		{"nan", math.NaN(), 0},
		{"inf string", "Inf", 0},
		{"formula result", Formula{Expr: "SUM(A:A)", Result: 300.0}, 300},
		{"formula string result", Formula{Expr: "A1", Result: "12"}, 12},
		{"formula without result", Formula{Expr: "A1"}, 0},
		{"bool", true, 1},
		{"date", time.Now(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToNumber(tt.in); got != tt.want {
				t.Errorf("ToNumber(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseNumber(t *testing.T) {
	if _, ok := ParseNumber(nil); ok {
		t.Error("ParseNumber(nil) should not be ok")
	}
	if _, ok := ParseNumber("  "); ok {
		t.Error("ParseNumber(blank) should not be ok")
	}
	if n, ok := ParseNumber("100"); !ok || n != 100 {
		t.Errorf("ParseNumber(\"100\") = %v, %v", n, ok)
	}
	if n, ok := ParseNumber(0.0); !ok || n != 0 {
		t.Errorf("ParseNumber(0) = %v, %v", n, ok)
	}
}

func TestIsBlank(t *testing.T) {
	if !IsBlank(nil) || !IsBlank("   ") || !IsBlank(RichText{" ", ""}) {
		t.Error("expected blank values to be blank")
	}
	if IsBlank(0.0) || IsBlank("x") {
		t.Error("expected non-blank values to be non-blank")
	}
}

func TestLooksLikeDateFormat(t *testing.T) {
	tests := []struct {
		format string
		want   bool
	}{
		{"yyyy-mm-dd", true},
		{"dd/mm/yy", true},
		{"mmm yyyy", true},
		{"#,##0.00", false},
		{"0.00\" days\"", false},
		{"[Red]0.00", false},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			if got := looksLikeDateFormat(tt.format); got != tt.want {
				t.Errorf("looksLikeDateFormat(%q) = %v, want %v", tt.format, got, tt.want)
			}
		})
	}
}

func TestReadCell(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	mustSet := func(ref string, v any) {
		t.Helper()
		if err := f.SetCellValue(sheet, ref, v); err != nil {
			t.Fatalf("SetCellValue(%s): %v", ref, err)
		}
	}
	mustSet("A1", "Gold")
	mustSet("B1", 250.75)
	if err := f.SetCellFormula(sheet, "C1", "B1*2"); err != nil {
		t.Fatalf("SetCellFormula: %v", err)
	}
	mustSet("D1", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	if err := f.SetCellRichText(sheet, "E1", []excelize.RichTextRun{{Text: "HDFC "}, {Text: "Top 100"}}); err != nil {
		t.Fatalf("SetCellRichText: %v", err)
	}

	got, err := ReadCell(f, sheet, 1, 1)
	if err != nil || got != "Gold" {
		t.Errorf("A1 = %v, %v; want Gold", got, err)
	}

	got, err = ReadCell(f, sheet, 2, 1)
	if err != nil || ToNumber(got) != 250.75 {
		t.Errorf("B1 = %v, %v; want 250.75", got, err)
	}

	got, err = ReadCell(f, sheet, 3, 1)
	if err != nil {
		t.Fatalf("C1: %v", err)
	}
	if _, ok := got.(Formula); !ok {
		t.Errorf("C1 = %T, want Formula", got)
	}

	got, err = ReadCell(f, sheet, 4, 1)
	if err != nil {
		t.Fatalf("D1: %v", err)
	}
	if s := ToString(got); s != "2024-01-15" {
		t.Errorf("D1 = %q, want 2024-01-15", s)
	}

	got, err = ReadCell(f, sheet, 5, 1)
	if err != nil {
		t.Fatalf("E1: %v", err)
	}
	if s := ToString(got); s != "HDFC Top 100" {
		t.Errorf("E1 = %q, want %q", s, "HDFC Top 100")
	}

	got, err = ReadCell(f, sheet, 6, 1)
	if err != nil || got != nil {
		t.Errorf("F1 = %v, %v; want nil", got, err)
	}
}
