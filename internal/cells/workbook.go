package cells

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// builtInDateFormats lists the built-in number format ids that render dates
// or times.
var builtInDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	45: true, 46: true, 47: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

// ReadCell returns the value of a single worksheet cell as one of the kinds
// understood by ToString and ToNumber. Empty cells yield nil.
func ReadCell(f *excelize.File, sheet string, col, row int) (any, error) {
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return nil, fmt.Errorf("ReadCell: cell name: %w", err)
	}

	raw, err := f.GetCellValue(sheet, ref, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("ReadCell: value %s: %w", ref, err)
	}

	expr, err := f.GetCellFormula(sheet, ref)
	if err != nil {
		return nil, fmt.Errorf("ReadCell: formula %s: %w", ref, err)
	}
	if expr != "" {
		var result any
		if raw != "" {
			result = scalar(raw)
		}
		return Formula{Expr: expr, Result: result}, nil
	}

	if raw == "" {
		return nil, nil
	}

	typ, err := f.GetCellType(sheet, ref)
	if err != nil {
		return nil, fmt.Errorf("ReadCell: type %s: %w", ref, err)
	}

	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		if runs, err := f.GetCellRichText(sheet, ref); err == nil && len(runs) > 1 {
			text := make(RichText, 0, len(runs))
			for _, run := range runs {
				text = append(text, run.Text)
			}
			return text, nil
		}
		if ok, target, err := f.GetCellHyperLink(sheet, ref); err == nil && ok {
			return Hyperlink{Text: raw, Target: target}, nil
		}
		return raw, nil
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true"), nil
	case excelize.CellTypeDate:
		if t, ok := parseISOTime(raw); ok {
			return t, nil
		}
		return raw, nil
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return raw, nil
		}
		if dateStyled(f, sheet, ref) {
			if t, err := excelize.ExcelDateToTime(n, false); err == nil {
				return t, nil
			}
		}
		return n, nil
	default:
		return raw, nil
	}
}

// dateStyled reports whether the cell carries a number format that renders a
// date. Style lookup failures are treated as "not a date".
func dateStyled(f *excelize.File, sheet, ref string) bool {
	idx, err := f.GetCellStyle(sheet, ref)
	if err != nil || idx == 0 {
		return false
	}
	style, err := f.GetStyle(idx)
	if err != nil || style == nil {
		return false
	}
	if builtInDateFormats[style.NumFmt] {
		return true
	}
	if style.CustomNumFmt != nil {
		return looksLikeDateFormat(*style.CustomNumFmt)
	}
	return false
}

// looksLikeDateFormat detects custom number formats such as "yyyy-mm-dd" or
// "dd/mm/yy". Quoted literals and bracketed sections are ignored.
func looksLikeDateFormat(format string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, r := range strings.ToLower(format) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	return strings.ContainsAny(cleaned, "yd") || (strings.Contains(cleaned, "m") && !strings.ContainsAny(cleaned, "0#"))
}

func parseISOTime(raw string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func scalar(raw string) any {
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}
	return raw
}
