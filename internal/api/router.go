// Package api assembles the HTTP routes and middleware of the ledger
// service.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/investment-ledger/internal/api/handlers"
	"github.com/dvloznov/investment-ledger/internal/api/middleware"
)

// Handlers groups the endpoint implementations served by the router.
type Handlers struct {
	Ledger      *handlers.LedgerHandler
	Jobs        *handlers.JobsHandler
	Suggestions *handlers.SuggestionsHandler
}

// NewRouter registers every route and wraps the mux in the middleware
// chain.
func NewRouter(h Handlers, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Entry endpoints
	mux.HandleFunc("/api/investments", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Ledger.ListEntries(w, r)
		case http.MethodPost:
			h.Ledger.CreateEntry(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/investments/", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "/api/investments/", "Investment ID is required")
		if !ok {
			return
		}
		switch r.Method {
		case http.MethodPut:
			h.Ledger.UpdateEntry(w, r, id)
		case http.MethodDelete:
			h.Ledger.DeleteEntry(w, r, id)
		default:
			methodNotAllowed(w)
		}
	})

	// Aggregation endpoints
	mux.HandleFunc("/api/summary", get(h.Ledger.Summary))
	mux.HandleFunc("/api/summary/highlights", get(h.Ledger.Highlights))

	// Workbook endpoints
	mux.HandleFunc("/api/import", post(h.Ledger.Import))
	mux.HandleFunc("/api/import/gcs", post(h.Jobs.EnqueueImport))
	mux.HandleFunc("/api/export", get(h.Ledger.Export))
	mux.HandleFunc("/api/options", get(h.Ledger.Options))

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", get(h.Jobs.ListJobs))
	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		if id, ok := pathID(w, r, "/api/jobs/", "Job ID is required"); ok {
			h.Jobs.GetJob(w, r, id)
		}
	})

	// Suggestion endpoints
	mux.HandleFunc("/api/suggestions", get(h.Suggestions.Suggest))
	mux.HandleFunc("/api/suggestions/clear", post(h.Suggestions.Clear))

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	return middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.Logger(log),
		middleware.CORS,
	)
}

func get(fn http.HandlerFunc) http.HandlerFunc {
	return only(http.MethodGet, fn)
}

func post(fn http.HandlerFunc) http.HandlerFunc {
	return only(http.MethodPost, fn)
}

func only(method string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			methodNotAllowed(w)
			return
		}
		fn(w, r)
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// pathID extracts the single path segment after prefix.
func pathID(w http.ResponseWriter, r *http.Request, prefix, missing string) (string, bool) {
	id := strings.TrimPrefix(r.URL.Path, prefix)
	if id == "" || strings.Contains(id, "/") {
		middleware.WriteError(w, http.StatusBadRequest, missing)
		return "", false
	}
	return id, true
}
