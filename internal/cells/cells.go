// Package cells converts raw spreadsheet and JSON cell values into the
// canonical string and number forms stored in the ledger.
package cells

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// RichText is a cell made of formatted runs. Only the run texts are kept.
type RichText []string

// Hyperlink is a cell whose display text points at a target.
type Hyperlink struct {
	Text   string
	Target string
}

// Formula is a computed cell. Result holds the cached value, nil when the
// workbook was saved without one.
type Formula struct {
	Expr   string
	Result any
}

// ToString renders a cell value as text. Time values become ISO dates.
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return civil.DateOf(x).String()
	case *time.Time:
		if x == nil {
			return ""
		}
		return civil.DateOf(*x).String()
	case Hyperlink:
		if x.Text != "" {
			return x.Text
		}
		return x.Target
	case RichText:
		return strings.Join(x, "")
	case Formula:
		if x.Result == nil {
			return ""
		}
		return ToString(x.Result)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// ToNumber coerces a cell value to a finite number. Anything that cannot be
// read as a number becomes 0.
func ToNumber(v any) float64 {
	n, ok := ParseNumber(v)
	if !ok {
		return 0
	}
	return n
}

// ParseNumber is the strict form of ToNumber: it reports false for missing,
// empty, non-numeric and non-finite values.
func ParseNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		return finite(x)
	case float32:
		return finite(float64(x))
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case Formula:
		return ParseNumber(x.Result)
	case string:
		return parseNumericString(x)
	case RichText, Hyperlink:
		return parseNumericString(ToString(x))
	default:
		return 0, false
	}
}

// IsBlank reports whether a cell carries no meaningful content.
func IsBlank(v any) bool {
	return strings.TrimSpace(ToString(v)) == ""
}

func parseNumericString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return finite(f)
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
