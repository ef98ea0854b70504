package jobs

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// Fetcher downloads an object by URI.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// WorkbookImporter replaces the ledger with the rows of a workbook.
type WorkbookImporter interface {
	ImportWorkbook(ctx context.Context, r io.Reader) (int, error)
}

// NewImportHandler returns the handler that downloads job.SourceURI and
// imports it into the ledger.
func NewImportHandler(fetcher Fetcher, importer WorkbookImporter, log zerolog.Logger) JobHandler {
	return func(ctx context.Context, job *ImportJob) error {
		jobLog := log.With().Str("job_id", job.JobID).Str("source_uri", job.SourceURI).Logger()

		data, err := fetcher.Fetch(ctx, job.SourceURI)
		if err != nil {
			jobLog.Error().Err(err).Msg("Failed to fetch workbook")
			return fmt.Errorf("ImportJob: fetching workbook: %w", err)
		}

		n, err := importer.ImportWorkbook(ctx, bytes.NewReader(data))
		if err != nil {
			jobLog.Error().Err(err).Msg("Failed to import workbook")
			return fmt.Errorf("ImportJob: importing workbook: %w", err)
		}

		job.Imported = n
		jobLog.Info().Int("imported", n).Msg("Workbook imported")
		return nil
	}
}
