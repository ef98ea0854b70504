package domain

// DefaultTypes are the asset classes offered when entering a new line item.
var DefaultTypes = []string{
	"Equity Mutual Fund",
	"Debt Mutual Fund",
	"Bonds",
	"Stocks",
	"REITs",
	"Gold",
	"Crypto",
	"Other",
}

// DefaultCategories are the suggested sub-classifications.
var DefaultCategories = []string{
	"Large Cap",
	"Mid Cap",
	"Small Cap",
	"Flexi Cap",
	"Multi Cap",
	"Debt",
	"Hybrid",
	"International",
	"ETF",
	"Gold",
	"Real Estate",
	"Other",
}
