// Package handlers implements the HTTP endpoints of the ledger API.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dvloznov/investment-ledger/internal/api/middleware"
	"github.com/dvloznov/investment-ledger/internal/domain"
	"github.com/dvloznov/investment-ledger/internal/ledger"
	"github.com/dvloznov/investment-ledger/internal/summary"
)

// maxUploadBytes bounds a multipart workbook upload.
const maxUploadBytes = 32 << 20

// LedgerStore is the subset of the record store used by the handlers.
type LedgerStore interface {
	Load(ctx context.Context) ([]domain.Entry, error)
	Add(ctx context.Context, c domain.Candidate) (domain.Entry, error)
	Update(ctx context.Context, id string, patch domain.Patch) (domain.Entry, error)
	Delete(ctx context.Context, id string) error
	ImportWorkbook(ctx context.Context, r io.Reader) (int, error)
	Export(ctx context.Context, w io.Writer) error
}

// LedgerHandler handles entry, summary, import and export endpoints.
type LedgerHandler struct {
	store LedgerStore
	log   zerolog.Logger
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(store LedgerStore, log zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{
		store: store,
		log:   log,
	}
}

// ListEntries handles GET /api/investments
func (h *LedgerHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.Load(r.Context())
	if err != nil {
		h.writeStoreError(w, err, "Failed to load investments.")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, entries)
}

// CreateEntry handles POST /api/investments
func (h *LedgerHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var c domain.Candidate
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := h.store.Add(r.Context(), c)
	if err != nil {
		h.writeStoreError(w, err, "Unable to add investment.")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, entry)
}

// UpdateEntry handles PUT /api/investments/{id}
func (h *LedgerHandler) UpdateEntry(w http.ResponseWriter, r *http.Request, id string) {
	var patch domain.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil && !errors.Is(err, io.EOF) {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := h.store.Update(r.Context(), id, patch)
	if err != nil {
		h.writeStoreError(w, err, "Unable to update investment.")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, entry)
}

// DeleteEntry handles DELETE /api/investments/{id}
func (h *LedgerHandler) DeleteEntry(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.writeStoreError(w, err, "Unable to delete investment.")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Summary handles GET /api/summary
func (h *LedgerHandler) Summary(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.Load(r.Context())
	if err != nil {
		h.writeStoreError(w, err, "Failed to load summary.")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, summary.Summarize(entries))
}

// Highlights handles GET /api/summary/highlights
func (h *LedgerHandler) Highlights(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.Load(r.Context())
	if err != nil {
		h.writeStoreError(w, err, "Failed to load summary.")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, summary.Highlight(entries))
}

// Import handles POST /api/import with a multipart "file" field.
func (h *LedgerHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "File is required.")
		return
	}
	defer file.Close()

	count, err := h.store.ImportWorkbook(r.Context(), file)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidWorkbook) {
			h.log.Warn().Err(err).Str("filename", header.Filename).Msg("Rejected import")
			middleware.WriteError(w, http.StatusBadRequest, "File is not a readable workbook.")
			return
		}
		h.writeStoreError(w, err, "Import failed.")
		return
	}

	h.log.Info().Str("filename", header.Filename).Int("count", count).Msg("Workbook imported")
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "count": count})
}

// Export handles GET /api/export
func (h *LedgerHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.store.Export(r.Context(), &buf); err != nil {
		h.writeStoreError(w, err, "Export failed.")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="investments.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// Options handles GET /api/options
func (h *LedgerHandler) Options(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string][]string{
		"types":      domain.DefaultTypes,
		"categories": domain.DefaultCategories,
	})
}

// writeStoreError maps record store failures to HTTP responses. Internal
// details are logged, never returned.
func (h *LedgerHandler) writeStoreError(w http.ResponseWriter, err error, fallback string) {
	var validationErr *ledger.ValidationError
	var notFoundErr *ledger.NotFoundError

	switch {
	case errors.As(err, &validationErr):
		middleware.WriteError(w, http.StatusBadRequest, "type, amount, and date are required.")
	case errors.As(err, &notFoundErr):
		middleware.WriteError(w, http.StatusNotFound, "Not found.")
	default:
		h.log.Error().Err(err).Msg(fallback)
		middleware.WriteError(w, http.StatusInternalServerError, fallback)
	}
}
