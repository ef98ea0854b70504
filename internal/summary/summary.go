// Package summary derives aggregate views from the full set of ledger
// entries. Nothing is cached; every call recomputes from its input.
package summary

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/investment-ledger/internal/domain"
)

// Default bucket keys for entries with no value in the grouping field.
const (
	UncategorizedType = "Uncategorized"
	UnspecifiedCat    = "Unspecified"
	UnknownMonth      = "Unknown"
	UnnamedSecurity   = "Unnamed"
)

// Summary holds signed sums grouped three ways. Map order carries no meaning;
// callers sort keys themselves.
type Summary struct {
	ByType     map[string]float64 `json:"byType" yaml:"byType"`
	ByCategory map[string]float64 `json:"byCategory" yaml:"byCategory"`
	ByMonth    map[string]float64 `json:"byMonth" yaml:"byMonth"`
}

// Summarize groups the signed amount of every entry by type, category and
// month (the first seven characters of the date).
func Summarize(entries []domain.Entry) Summary {
	byType := newSums()
	byCategory := newSums()
	byMonth := newSums()

	for _, e := range entries {
		signed := decimal.NewFromFloat(e.SignedAmount())
		byType.add(typeKey(e), signed)
		byCategory.add(categoryKey(e), signed)
		byMonth.add(MonthKey(e.Date), signed)
	}

	return Summary{
		ByType:     byType.floats(),
		ByCategory: byCategory.floats(),
		ByMonth:    byMonth.floats(),
	}
}

// MonthKey buckets a date string by its YYYY-MM prefix.
func MonthKey(date string) string {
	if date == "" {
		return UnknownMonth
	}
	if len(date) > 7 {
		return date[:7]
	}
	return date
}

// SortedKeys returns the keys of m in lexical order, which is chronological
// for month keys.
func SortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func typeKey(e domain.Entry) string {
	if e.Type == "" {
		return UncategorizedType
	}
	return e.Type
}

func categoryKey(e domain.Entry) string {
	if e.Category == "" {
		return UnspecifiedCat
	}
	return e.Category
}

func securityKey(e domain.Entry) string {
	if e.Name == "" {
		return UnnamedSecurity
	}
	return e.Name
}

// sums accumulates exact decimal totals per key.
type sums map[string]decimal.Decimal

func newSums() sums {
	return make(sums)
}

func (s sums) add(key string, v decimal.Decimal) {
	s[key] = s[key].Add(v)
}

func (s sums) floats() map[string]float64 {
	out := make(map[string]float64, len(s))
	for k, v := range s {
		out[k] = v.InexactFloat64()
	}
	return out
}

// top returns the key with the largest total. Ties go to the lexically
// smallest key. ok is false when s is empty.
func (s sums) top() (key string, total decimal.Decimal, ok bool) {
	for k, v := range s {
		if !ok || v.GreaterThan(total) || (v.Equal(total) && k < key) {
			key, total, ok = k, v, true
		}
	}
	return key, total, ok
}
