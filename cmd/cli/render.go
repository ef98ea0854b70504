package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/dvloznov/investment-ledger/internal/domain"
	"github.com/dvloznov/investment-ledger/internal/gcs"
	"github.com/dvloznov/investment-ledger/internal/summary"
)

// formatINR renders an amount in rupees with grouping and paise.
func formatINR(amount float64) string {
	cur := money.GetCurrency(money.INR)
	factor, _ := decimal.NewFromInt(10).PowInt32(int32(cur.Fraction))
	minor := decimal.NewFromFloat(amount).Mul(factor).Round(0).IntPart()
	return money.New(minor, money.INR).Display()
}

// printMarkdown writes md to stdout, styled for the terminal unless plain
// is set. Rendering failures fall back to the raw markdown.
func printMarkdown(md string, plain bool) {
	if plain {
		fmt.Print(md)
		return
	}

	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		fmt.Print(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Fprint(os.Stdout, out)
}

// Output formats accepted by -format.
const (
	formatMarkdown = "markdown"
	formatPlain    = "plain"
	formatYAML     = "yaml"
)

func outputFlags(fs *flag.FlagSet) *string {
	return fs.String("format", formatMarkdown, "output format: markdown, plain or yaml")
}

// render prints v as YAML or md as markdown, depending on format.
func render(format string, v any, md string) error {
	switch format {
	case formatMarkdown:
		printMarkdown(md, false)
	case formatPlain:
		printMarkdown(md, true)
	case formatYAML:
		return writeYAML(os.Stdout, v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// cell escapes text for a markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

func entriesMarkdown(entries []domain.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Ledger (%d entries)\n\n", len(entries))
	if len(entries) == 0 {
		b.WriteString("_No entries yet._\n")
		return b.String()
	}

	b.WriteString("| Date | Type | Category | Name | Direction | Amount | ID |\n")
	b.WriteString("|---|---|---|---|---|---:|---|\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
			cell(e.Date), cell(e.Type), cell(e.Category), cell(e.Name),
			e.Direction, formatINR(e.Amount), e.ID)
	}
	return b.String()
}

func summaryMarkdown(s summary.Summary, h summary.Highlights) string {
	var b strings.Builder
	b.WriteString("# Portfolio summary\n\n")
	fmt.Fprintf(&b, "- **Invested:** %s\n", formatINR(h.Credits))
	fmt.Fprintf(&b, "- **Withdrawn:** %s\n", formatINR(h.Debits))
	fmt.Fprintf(&b, "- **Net:** %s\n", formatINR(h.Net))
	fmt.Fprintf(&b, "- **Average per month:** %s over %d months\n", formatINR(h.AvgMonthly), h.Months)
	writeLeader(&b, "Top type", h.TopType)
	writeLeader(&b, "Top category", h.TopCategory)
	writeLeader(&b, "Top security", h.TopSecurity)

	writeTotals(&b, "By type", "Type", s.ByType)
	writeTotals(&b, "By category", "Category", s.ByCategory)
	writeTotals(&b, "By month", "Month", s.ByMonth)
	return b.String()
}

func writeLeader(b *strings.Builder, label string, l *summary.Leader) {
	if l == nil {
		return
	}
	fmt.Fprintf(b, "- **%s:** %s (%s)\n", label, cell(l.Key), formatINR(l.Total))
}

func writeTotals(b *strings.Builder, title, column string, totals map[string]float64) {
	fmt.Fprintf(b, "\n## %s\n\n", title)
	if len(totals) == 0 {
		b.WriteString("_Nothing recorded._\n")
		return
	}
	fmt.Fprintf(b, "| %s | Net |\n|---|---:|\n", column)
	for _, k := range summary.SortedKeys(totals) {
		fmt.Fprintf(b, "| %s | %s |\n", cell(k), formatINR(totals[k]))
	}
}

func snapshotsMarkdown(prefix string, objects []gcs.Object) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Snapshots under %s\n\n", prefix)
	if len(objects) == 0 {
		b.WriteString("_None found._\n")
		return b.String()
	}

	b.WriteString("| Name | Updated | Size |\n|---|---|---:|\n")
	for _, o := range objects {
		fmt.Fprintf(&b, "| %s | %s | %d |\n", cell(gcs.Filename(o.URI)), o.Updated.UTC().Format("2006-01-02 15:04"), o.Size)
	}
	return b.String()
}
