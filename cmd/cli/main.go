package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/investment-ledger/internal/cells"
	"github.com/dvloznov/investment-ledger/internal/config"
	"github.com/dvloznov/investment-ledger/internal/domain"
	"github.com/dvloznov/investment-ledger/internal/gcs"
	"github.com/dvloznov/investment-ledger/internal/ledger"
	"github.com/dvloznov/investment-ledger/internal/logger"
	"github.com/dvloznov/investment-ledger/internal/suggest"
	"github.com/dvloznov/investment-ledger/internal/summary"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal := logger.New()
		fatal.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log, err := logger.NewFromConfig(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fatal := logger.New()
		fatal.Fatal().Err(err).Msg("Failed to create logger")
	}

	switch os.Args[1] {
	case "list":
		runList(cfg, log)
	case "add":
		runAdd(cfg, log)
	case "delete":
		runDelete(cfg, log)
	case "summary":
		runSummary(cfg, log)
	case "import":
		runImport(cfg, log)
	case "export":
		runExport(cfg, log)
	case "normalize":
		runNormalize(cfg, log)
	case "snapshots":
		runSnapshots(cfg, log)
	case "suggest":
		runSuggest(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Investment Ledger CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  list       List ledger entries")
	fmt.Println("  add        Add an entry")
	fmt.Println("  delete     Delete an entry by ID")
	fmt.Println("  summary    Show totals by type, category and month")
	fmt.Println("  import     Replace the ledger with a workbook (local path or gs:// URI)")
	fmt.Println("  export     Write the ledger workbook to a local path or gs:// URI")
	fmt.Println("  normalize  Rewrite the workbook with the canonical header and values")
	fmt.Println("  snapshots  List workbooks stored under a gs:// prefix")
	fmt.Println("  suggest    Look up security names")
	fmt.Println("  help       Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// ledgerFlags registers the flag shared by every command that opens the
// ledger and returns a constructor for the store.
func ledgerFlags(fs *flag.FlagSet, cfg *config.Config, log zerolog.Logger) func() *ledger.Store {
	dataDir := fs.String("data-dir", cfg.Ledger.DataDir, "directory holding the ledger workbook")
	return func() *ledger.Store {
		path := filepath.Join(*dataDir, cfg.Ledger.File)
		return ledger.NewStore(path, log)
	}
}

func runList(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	openStore := ledgerFlags(fs, cfg, log)
	format := outputFlags(fs)
	fs.Parse(os.Args[2:])

	ctx := logger.WithContext(context.Background(), log)
	entries, err := openStore().Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load ledger")
	}

	if err := render(*format, entries, entriesMarkdown(entries)); err != nil {
		log.Fatal().Err(err).Msg("Failed to print ledger")
	}
}

func runAdd(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	openStore := ledgerFlags(fs, cfg, log)
	typ := fs.String("type", "", "asset type, e.g. \"Equity Mutual Fund\" (required)")
	category := fs.String("category", "", "category, e.g. \"Large Cap\"")
	name := fs.String("name", "", "security name")
	direction := fs.String("direction", string(domain.Credit), "credit or debit")
	amount := fs.String("amount", "", "amount (required)")
	date := fs.String("date", time.Now().Format("2006-01-02"), "date as YYYY-MM-DD")
	notes := fs.String("notes", "", "free-form notes")
	fs.Parse(os.Args[2:])

	c := domain.Candidate{
		Type:      *typ,
		Category:  *category,
		Name:      *name,
		Direction: *direction,
		Date:      *date,
		Notes:     *notes,
	}
	if n, ok := cells.ParseNumber(*amount); ok {
		c.Amount = &n
	}

	ctx := logger.WithContext(context.Background(), log)
	entry, err := openStore().Add(ctx, c)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to add entry")
	}

	fmt.Printf("Added %s: %s %s on %s\n", entry.ID, entry.Direction, formatINR(entry.Amount), entry.Date)
}

func runDelete(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	openStore := ledgerFlags(fs, cfg, log)
	id := fs.String("id", "", "entry ID to delete (required)")
	fs.Parse(os.Args[2:])

	if *id == "" {
		log.Fatal().Msg("Error: --id is required")
	}

	ctx := logger.WithContext(context.Background(), log)
	if err := openStore().Delete(ctx, *id); err != nil {
		log.Fatal().Err(err).Msg("Failed to delete entry")
	}

	fmt.Printf("Deleted %s\n", *id)
}

func runSummary(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	openStore := ledgerFlags(fs, cfg, log)
	format := outputFlags(fs)
	fs.Parse(os.Args[2:])

	ctx := logger.WithContext(context.Background(), log)
	entries, err := openStore().Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load ledger")
	}

	s, h := summary.Summarize(entries), summary.Highlight(entries)
	report := struct {
		Highlights summary.Highlights `yaml:"highlights"`
		Summary    summary.Summary    `yaml:"summary"`
	}{h, s}
	if err := render(*format, report, summaryMarkdown(s, h)); err != nil {
		log.Fatal().Err(err).Msg("Failed to print summary")
	}
}

func runImport(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	openStore := ledgerFlags(fs, cfg, log)
	from := fs.String("from", "", "workbook path or gs:// URI (required)")
	fs.Parse(os.Args[2:])

	if *from == "" {
		log.Fatal().Msg("Error: --from is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	var storage gcs.Service
	if gcs.IsURI(*from) {
		client := newStorageClient(ctx, cfg, log)
		defer client.Close()
		storage = client
	}
	data, err := readWorkbook(ctx, storage, *from)
	if err != nil {
		log.Fatal().Err(err).Str("from", *from).Msg("Failed to read workbook")
	}

	n, err := openStore().ImportWorkbook(ctx, bytes.NewReader(data))
	if err != nil {
		log.Fatal().Err(err).Msg("Import failed")
	}

	fmt.Printf("Imported %d entries from %s\n", n, *from)
}

func runExport(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	openStore := ledgerFlags(fs, cfg, log)
	to := fs.String("to", "", "destination path or gs:// URI; a gs:// prefix ending in / gets a timestamped name")
	fs.Parse(os.Args[2:])

	if *to == "" && cfg.GCS.Bucket != "" {
		*to = fmt.Sprintf("gs://%s/snapshots/", cfg.GCS.Bucket)
	}
	if *to == "" {
		log.Fatal().Msg("Error: --to is required (or set GCS_BUCKET)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	var buf bytes.Buffer
	if err := openStore().Export(ctx, &buf); err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}

	dest := snapshotURI(*to, time.Now())
	var storage gcs.Service
	if gcs.IsURI(dest) {
		client := newStorageClient(ctx, cfg, log)
		defer client.Close()
		storage = client
	}
	if err := writeWorkbook(ctx, storage, dest, buf.Bytes()); err != nil {
		log.Fatal().Err(err).Str("to", dest).Msg("Failed to write workbook")
	}

	fmt.Printf("Exported ledger to %s\n", dest)
}

func runNormalize(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("normalize", flag.ExitOnError)
	openStore := ledgerFlags(fs, cfg, log)
	fs.Parse(os.Args[2:])

	ctx := logger.WithContext(context.Background(), log)
	store := openStore()

	entries, err := store.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load ledger")
	}
	for i := range entries {
		entries[i] = domain.Normalize(entries[i])
	}
	if err := store.ReplaceAll(ctx, entries); err != nil {
		log.Fatal().Err(err).Msg("Failed to rewrite ledger")
	}

	fmt.Printf("Rewrote %d entries in %s\n", len(entries), store.Path())
}

func runSnapshots(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("snapshots", flag.ExitOnError)
	prefix := fs.String("prefix", "", "gs://bucket/prefix to list (defaults to the snapshots folder of GCS_BUCKET)")
	format := outputFlags(fs)
	fs.Parse(os.Args[2:])

	if *prefix == "" && cfg.GCS.Bucket != "" {
		*prefix = fmt.Sprintf("gs://%s/snapshots/", cfg.GCS.Bucket)
	}
	if *prefix == "" {
		log.Fatal().Msg("Error: --prefix is required (or set GCS_BUCKET)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client := newStorageClient(ctx, cfg, log)
	defer client.Close()

	objects, err := listSnapshots(ctx, client, *prefix)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list snapshots")
	}

	if err := render(*format, objects, snapshotsMarkdown(*prefix, objects)); err != nil {
		log.Fatal().Err(err).Msg("Failed to print snapshots")
	}
}

func runSuggest(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("suggest", flag.ExitOnError)
	query := fs.String("q", "", "security name to look up (required)")
	fs.Parse(os.Args[2:])

	if strings.TrimSpace(*query) == "" {
		log.Fatal().Msg("Error: --q is required")
	}

	client := suggest.NewHTTPClient(cfg.Suggest.Timeout)
	var fund, equity suggest.Provider
	if cfg.Suggest.MFAPIEnabled {
		fund = suggest.NewMFAPI(cfg.Suggest.MFAPIURL, client)
	}
	if cfg.Suggest.AlphaVantageKey != "" {
		equity = suggest.NewAlphaVantage(cfg.Suggest.AlphaVantageURL, cfg.Suggest.AlphaVantageKey, client)
	}

	cache, err := suggest.NewCache(fund, equity, suggest.Options{FetchTimeout: 2 * cfg.Suggest.Timeout}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create suggestion cache")
	}

	res, err := cache.Suggest(context.Background(), *query)
	if err != nil {
		log.Fatal().Err(err).Msg("Suggestion lookup failed")
	}

	if res.RateLimited {
		fmt.Println("Equity lookups are rate limited right now; try again later.")
	}
	if len(res.Results) == 0 {
		fmt.Println("No matches.")
		return
	}
	for _, s := range res.Results {
		fmt.Printf("%-14s %s", s.Symbol, s.Name)
		if s.Region != "" {
			fmt.Printf(" (%s, %s)", s.Region, s.Currency)
		}
		fmt.Println()
	}
}

func newStorageClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) *gcs.Client {
	client, err := gcs.NewClient(ctx, cfg.GCS.CredentialsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	return client
}

// snapshotURI appends a timestamped file name when dest names a folder.
func snapshotURI(dest string, now time.Time) string {
	if !strings.HasSuffix(dest, "/") {
		return dest
	}
	return dest + "investments-" + now.UTC().Format("20060102T150405Z") + ".xlsx"
}
