package summary

import (
	"github.com/shopspring/decimal"

	"github.com/dvloznov/investment-ledger/internal/domain"
)

// Leader is the bucket with the largest signed total in one grouping.
type Leader struct {
	Key   string  `json:"key" yaml:"key"`
	Total float64 `json:"total" yaml:"total"`
}

// Highlights are the dashboard headline figures.
type Highlights struct {
	Credits     float64 `json:"credits" yaml:"credits"`
	Debits      float64 `json:"debits" yaml:"debits"`
	Net         float64 `json:"net" yaml:"net"`
	Months      int     `json:"months" yaml:"months"`
	AvgMonthly  float64 `json:"avgMonthly" yaml:"avgMonthly"`
	TopType     *Leader `json:"topType,omitempty" yaml:"topType,omitempty"`
	TopCategory *Leader `json:"topCategory,omitempty" yaml:"topCategory,omitempty"`
	TopSecurity *Leader `json:"topSecurity,omitempty" yaml:"topSecurity,omitempty"`
}

// Highlight computes totals, the average net flow per distinct month and the
// leading type, category and security.
func Highlight(entries []domain.Entry) Highlights {
	var credits, debits, net decimal.Decimal
	byType, byCategory, bySecurity := newSums(), newSums(), newSums()
	months := make(map[string]struct{})

	for _, e := range entries {
		magnitude := decimal.NewFromFloat(e.Amount).Abs()
		signed := decimal.NewFromFloat(e.SignedAmount())
		if e.Direction == domain.Debit {
			debits = debits.Add(magnitude)
		} else {
			credits = credits.Add(decimal.NewFromFloat(e.Amount))
		}
		net = net.Add(signed)

		byType.add(typeKey(e), signed)
		byCategory.add(categoryKey(e), signed)
		bySecurity.add(securityKey(e), signed)
		months[MonthKey(e.Date)] = struct{}{}
	}

	h := Highlights{
		Credits: credits.InexactFloat64(),
		Debits:  debits.InexactFloat64(),
		Net:     net.InexactFloat64(),
		Months:  len(months),
	}
	if h.Months > 0 {
		h.AvgMonthly = net.Div(decimal.NewFromInt(int64(h.Months))).InexactFloat64()
	}
	h.TopType = leader(byType)
	h.TopCategory = leader(byCategory)
	h.TopSecurity = leader(bySecurity)
	return h
}

func leader(s sums) *Leader {
	key, total, ok := s.top()
	if !ok {
		return nil
	}
	return &Leader{Key: key, Total: total.InexactFloat64()}
}
