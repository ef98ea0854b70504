// Package ledger persists ledger entries in a spreadsheet workbook.
//
// Every mutation re-reads the whole table, changes it in memory and rewrites
// the complete file. The read-modify-write cycle runs under a single mutex,
// so concurrent callers in one process are serialized. Nothing protects the
// file against other processes.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/investment-ledger/internal/cells"
	"github.com/dvloznov/investment-ledger/internal/domain"
)

// Store is the workbook-backed table of ledger entries.
type Store struct {
	path string
	log  zerolog.Logger

	mu    sync.Mutex
	now   func() time.Time
	newID func() string
}

// NewStore creates a store persisting to the workbook at path. The file is
// created with an empty table on first access.
func NewStore(path string, log zerolog.Logger) *Store {
	return &Store{
		path:  path,
		log:   log.With().Str("component", "ledger").Logger(),
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// Path returns the location of the workbook.
func (s *Store) Path() string {
	return s.path
}

// Load returns every entry that has an id, in table order.
func (s *Store) Load(ctx context.Context) ([]domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// ReplaceAll rewrites the whole table from entries, in the order given.
func (s *Store) ReplaceAll(ctx context.Context, entries []domain.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceLocked(entries)
}

// Add validates a candidate, assigns an id and creation time, appends it to
// the table and persists.
func (s *Store) Add(ctx context.Context, c domain.Candidate) (domain.Entry, error) {
	if missing := c.Missing(); len(missing) > 0 {
		return domain.Entry{}, &ValidationError{Fields: missing}
	}
	if err := ctx.Err(); err != nil {
		return domain.Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.loadLocked()
	if err != nil {
		return domain.Entry{}, err
	}

	entry := domain.Normalize(domain.Entry{
		ID:        s.newID(),
		Type:      c.Type,
		Category:  c.Category,
		Name:      c.Name,
		Direction: domain.Direction(c.Direction),
		Amount:    *c.Amount,
		Date:      c.Date,
		Notes:     c.Notes,
		CreatedAt: domain.Timestamp(s.now()),
	})

	if err := s.replaceLocked(append(entries, entry)); err != nil {
		return domain.Entry{}, err
	}

	s.log.Info().Str("entry_id", entry.ID).Str("type", entry.Type).Msg("Entry added")
	return entry, nil
}

// Update merges patch over the entry with the given id and persists.
func (s *Store) Update(ctx context.Context, id string, patch domain.Patch) (domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return domain.Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.loadLocked()
	if err != nil {
		return domain.Entry{}, err
	}

	idx := indexOf(entries, id)
	if idx == -1 {
		return domain.Entry{}, &NotFoundError{ID: id}
	}

	updated := patch.Apply(entries[idx])
	entries[idx] = updated
	if err := s.replaceLocked(entries); err != nil {
		return domain.Entry{}, err
	}

	s.log.Info().Str("entry_id", id).Msg("Entry updated")
	return updated, nil
}

// Delete removes the entry with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.loadLocked()
	if err != nil {
		return err
	}

	next := make([]domain.Entry, 0, len(entries))
	for _, e := range entries {
		if e.ID != id {
			next = append(next, e)
		}
	}
	if len(next) == len(entries) {
		return &NotFoundError{ID: id}
	}

	if err := s.replaceLocked(next); err != nil {
		return err
	}

	s.log.Info().Str("entry_id", id).Msg("Entry deleted")
	return nil
}

// ImportReplace replaces the entire table with the given rows. Rows with no
// meaningful content are skipped. It returns the number of rows kept.
func (s *Store) ImportReplace(ctx context.Context, rows []RawRow) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	now := domain.Timestamp(s.now())
	seen := make(map[string]bool, len(rows))
	entries := make([]domain.Entry, 0, len(rows))
	for _, row := range rows {
		if blankRow(row) {
			continue
		}
		e := domain.FromValues(row)
		if e.ID == "" || seen[e.ID] {
			e.ID = s.newID()
		}
		seen[e.ID] = true
		if e.CreatedAt == "" {
			e.CreatedAt = now
		}
		entries = append(entries, e)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.replaceLocked(entries); err != nil {
		return 0, err
	}

	s.log.Info().Int("rows", len(rows)).Int("imported", len(entries)).Msg("Ledger replaced by import")
	return len(entries), nil
}

// ImportWorkbook reads the first sheet of a workbook and replaces the table
// with its rows.
func (s *Store) ImportWorkbook(ctx context.Context, r io.Reader) (int, error) {
	rows, err := readWorkbook(r)
	if err != nil {
		return 0, fmt.Errorf("ImportWorkbook: %w: %v", ErrInvalidWorkbook, err)
	}
	return s.ImportReplace(ctx, rows)
}

// Export copies the persisted workbook to w.
func (s *Store) Export(ctx context.Context, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLocked(); err != nil {
		return err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return &PersistenceError{Op: "open ledger", Err: err}
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("Export: copy: %w", err)
	}
	return nil
}

func (s *Store) loadLocked() ([]domain.Entry, error) {
	if err := s.ensureLocked(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, &PersistenceError{Op: "open ledger", Err: err}
		}
		if qerr := s.quarantineLocked(err); qerr != nil {
			return nil, qerr
		}
		return []domain.Entry{}, nil
	}
	defer f.Close()

	sheet := ledgerSheet(f)
	if sheet == "" {
		return []domain.Entry{}, nil
	}

	rows, err := sheetRows(f, sheet)
	if err != nil {
		return nil, &PersistenceError{Op: "read ledger", Err: err}
	}

	entries := make([]domain.Entry, 0, len(rows))
	for _, row := range rows {
		e := domain.FromValues(row)
		if e.ID == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *Store) replaceLocked(entries []domain.Entry) error {
	f, err := buildWorkbook(entries)
	if err != nil {
		return &PersistenceError{Op: "build ledger", Err: err}
	}
	defer f.Close()

	if err := writeAtomic(s.path, f); err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("Failed to persist ledger")
		return &PersistenceError{Op: "write ledger", Err: err}
	}
	return nil
}

// ensureLocked creates the workbook with an empty table if it is missing.
func (s *Store) ensureLocked() error {
	_, err := os.Stat(s.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return &PersistenceError{Op: "stat ledger", Err: err}
	}

	s.log.Info().Str("path", s.path).Msg("Initializing empty ledger")
	return s.replaceLocked(nil)
}

// quarantineLocked moves an unreadable workbook aside and starts a fresh
// table in its place.
func (s *Store) quarantineLocked(cause error) error {
	backup := s.path + ".corrupt-" + strconv.FormatInt(s.now().Unix(), 10)
	if err := os.Rename(s.path, backup); err != nil {
		return &PersistenceError{Op: "quarantine ledger", Err: err}
	}

	s.log.Warn().
		Err(cause).
		Str("path", s.path).
		Str("backup", backup).
		Msg("Ledger file unreadable, moved aside and re-initialized")

	return s.replaceLocked(nil)
}

func indexOf(entries []domain.Entry, id string) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// blankRow reports whether every meaningful field of an imported row is empty.
func blankRow(row RawRow) bool {
	for _, field := range []string{
		domain.FieldType,
		domain.FieldCategory,
		domain.FieldName,
		domain.FieldAmount,
		domain.FieldDate,
		domain.FieldNotes,
	} {
		if !cells.IsBlank(row[field]) {
			return false
		}
	}
	return true
}
