// Package handlers provides HTTP handlers for bond matching.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/aristath/orca/internal/matching"
	"github.com/aristath/orca/internal/modules/bondmatch"
	"github.com/aristath/orca/internal/utils"
	"github.com/rs/zerolog"
)

// MatchService is the part of bondmatch.Service the handlers use
type MatchService interface {
	Match(ctx context.Context, req bondmatch.Request) (*bondmatch.Response, error)
	ParseIntent(text string) matching.Intent
	Countries() []string
	History(portfolioID string, limit int) ([]bondmatch.AuditEntry, error)
}

// Handler handles bond match HTTP requests
type Handler struct {
	service MatchService
	log     zerolog.Logger
}

// NewHandler creates a new bond match handler
func NewHandler(service MatchService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "bond_match").Logger(),
	}
}

// IntentRequest is the body of POST /api/bond_match/intent
type IntentRequest struct {
	Query string `json:"query" msgpack:"query"`
}

// HandleMatch handles POST /api/bond_match
func (h *Handler) HandleMatch(w http.ResponseWriter, r *http.Request) {
	var req bondmatch.Request
	if err := utils.DecodeRequest(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Match(r.Context(), req)
	if err != nil {
		if errors.Is(err, bondmatch.ErrEmptyQuery) || errors.Is(err, bondmatch.ErrUnknownSource) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Str("source", string(req.Source)).Msg("Bond match failed")
		http.Error(w, "Bond match failed", http.StatusInternalServerError)
		return
	}

	h.writeResponse(w, r, http.StatusOK, resp)
}

// HandleParseIntent handles POST /api/bond_match/intent
func (h *Handler) HandleParseIntent(w http.ResponseWriter, r *http.Request) {
	var req IntentRequest
	if err := utils.DecodeRequest(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.writeResponse(w, r, http.StatusOK, h.service.ParseIntent(req.Query))
}

// HandleHistory handles GET /api/bond_match/history
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	limit := bondmatch.DefaultHistoryLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}

	entries, err := h.service.History(r.URL.Query().Get("portfolio_id"), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load match history")
		http.Error(w, "Failed to load match history", http.StatusInternalServerError)
		return
	}

	h.writeResponse(w, r, http.StatusOK, map[string]interface{}{
		"requests": entries,
		"count":    len(entries),
	})
}

// HandleCountries handles GET /api/bond_match/countries
func (h *Handler) HandleCountries(w http.ResponseWriter, r *http.Request) {
	h.writeResponse(w, r, http.StatusOK, map[string]interface{}{
		"countries": h.service.Countries(),
	})
}

func (h *Handler) writeResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if err := utils.WriteResponse(w, r, status, data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
