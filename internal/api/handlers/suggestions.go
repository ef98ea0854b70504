package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/investment-ledger/internal/api/middleware"
	"github.com/dvloznov/investment-ledger/internal/suggest"
)

// Suggester is the suggestion cache as seen by the handlers.
type Suggester interface {
	Suggest(ctx context.Context, query string) (suggest.Result, error)
	Clear()
}

// SuggestionsHandler serves security-name autocomplete.
type SuggestionsHandler struct {
	cache Suggester
	log   zerolog.Logger
}

// NewSuggestionsHandler creates a new suggestions handler.
func NewSuggestionsHandler(cache Suggester, log zerolog.Logger) *SuggestionsHandler {
	return &SuggestionsHandler{
		cache: cache,
		log:   log,
	}
}

// Suggest handles GET /api/suggestions?q=
func (h *SuggestionsHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	res, err := h.cache.Suggest(r.Context(), r.URL.Query().Get("q"))
	switch {
	case errors.Is(err, suggest.ErrProviderUnavailable):
		middleware.WriteError(w, http.StatusServiceUnavailable, "Suggestion service is not configured.")
	case errors.Is(err, context.Canceled):
		// Client disconnected.
		h.log.Debug().Err(err).Msg("Suggestion request abandoned")
	case errors.Is(err, context.DeadlineExceeded):
		h.log.Warn().Err(err).Msg("Suggestion request timed out")
		middleware.WriteError(w, http.StatusGatewayTimeout, "Suggestion lookup timed out.")
	case err != nil:
		h.log.Error().Err(err).Msg("Suggestion lookup failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load suggestions.")
	default:
		middleware.WriteJSON(w, http.StatusOK, res)
	}
}

// Clear handles POST /api/suggestions/clear
func (h *SuggestionsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.cache.Clear()
	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
