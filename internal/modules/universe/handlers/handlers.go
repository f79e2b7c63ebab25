// Package handlers provides HTTP handlers for the bond universe, holdings and watchlists.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/aristath/orca/internal/modules/universe"
	"github.com/aristath/orca/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles universe HTTP requests
type Handler struct {
	bondRepo      universe.BondRepositoryInterface
	portfolioRepo universe.PortfolioRepositoryInterface
	log           zerolog.Logger
}

// NewHandler creates a new universe handler
func NewHandler(
	bondRepo universe.BondRepositoryInterface,
	portfolioRepo universe.PortfolioRepositoryInterface,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		bondRepo:      bondRepo,
		portfolioRepo: portfolioRepo,
		log:           log.With().Str("handler", "universe").Logger(),
	}
}

// SyncRequest is the body of POST /api/universe/bonds.
// "analytics" is accepted as an alias of "bonds".
type SyncRequest struct {
	Bonds      []universe.Bond `json:"bonds" msgpack:"bonds"`
	Analytics  []universe.Bond `json:"analytics" msgpack:"analytics"`
	ClearFirst bool            `json:"clear_first" msgpack:"clear_first"`
}

// HoldingRequest is the body of PUT /api/universe/portfolios/{portfolioID}/holdings/{isin}
type HoldingRequest struct {
	ParAmount *float64 `json:"par_amount" msgpack:"par_amount"`
}

// HandleSyncBonds handles POST /api/universe/bonds
func (h *Handler) HandleSyncBonds(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := utils.DecodeRequest(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	bonds := req.Bonds
	if len(bonds) == 0 {
		bonds = req.Analytics
	}

	var (
		n   int
		err error
	)
	if req.ClearFirst {
		n, err = h.bondRepo.ReplaceAll(bonds)
	} else {
		n, err = h.bondRepo.Upsert(bonds)
	}
	if err != nil {
		if errors.Is(err, universe.ErrInvalidISIN) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Int("bonds", len(bonds)).Msg("Failed to sync bonds")
		http.Error(w, "Failed to sync bonds", http.StatusInternalServerError)
		return
	}

	h.writeResponse(w, r, http.StatusOK, map[string]interface{}{"upserted": n})
}

// HandleListBonds handles GET /api/universe/bonds
// With ?isins=A,B only those bonds are returned.
func (h *Handler) HandleListBonds(w http.ResponseWriter, r *http.Request) {
	var (
		bonds []universe.Bond
		err   error
	)
	if isins := utils.ParseCSV(r.URL.Query().Get("isins")); isins != nil {
		bonds, err = h.bondRepo.ListByISINs(isins)
	} else {
		bonds, err = h.bondRepo.ListAll()
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list bonds")
		http.Error(w, "Failed to list bonds", http.StatusInternalServerError)
		return
	}

	h.writeResponse(w, r, http.StatusOK, map[string]interface{}{
		"analytics": bonds,
		"count":     len(bonds),
	})
}

// HandleGetBond handles GET /api/universe/bonds/{isin}
func (h *Handler) HandleGetBond(w http.ResponseWriter, r *http.Request) {
	isin := chi.URLParam(r, "isin")

	bond, err := h.bondRepo.GetByISIN(isin)
	if err != nil {
		h.log.Error().Err(err).Str("isin", isin).Msg("Failed to get bond")
		http.Error(w, "Failed to get bond", http.StatusInternalServerError)
		return
	}
	if bond == nil {
		http.Error(w, "Bond not found", http.StatusNotFound)
		return
	}

	h.writeResponse(w, r, http.StatusOK, bond)
}

// HandleSearch handles GET /api/universe/search
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := universe.SearchFilter{
		Country: strings.TrimSpace(q.Get("country")),
		Ticker:  strings.TrimSpace(q.Get("ticker")),
	}

	if v := q.Get("maturity_year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "Invalid maturity_year", http.StatusBadRequest)
			return
		}
		filter.MaturityYear = year
	}
	if v := q.Get("coupon"); v != "" {
		coupon, err := strconv.ParseFloat(v, 64)
		if err != nil {
			http.Error(w, "Invalid coupon", http.StatusBadRequest)
			return
		}
		filter.Coupon = &coupon
	}
	if v := q.Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}

	bonds, err := h.bondRepo.Search(filter)
	if err != nil {
		if errors.Is(err, universe.ErrNoSearchFilter) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Msg("Failed to search bonds")
		http.Error(w, "Failed to search bonds", http.StatusInternalServerError)
		return
	}

	h.writeResponse(w, r, http.StatusOK, map[string]interface{}{
		"analytics": bonds,
		"filters":   filter,
	})
}

// HandleListHoldings handles GET /api/universe/portfolios/{portfolioID}/holdings
func (h *Handler) HandleListHoldings(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioID")

	holdings, err := h.portfolioRepo.ListHoldings(portfolioID)
	if err != nil {
		h.log.Error().Err(err).Str("portfolio_id", portfolioID).Msg("Failed to list holdings")
		http.Error(w, "Failed to list holdings", http.StatusInternalServerError)
		return
	}

	h.writeResponse(w, r, http.StatusOK, map[string]interface{}{
		"holdings": holdings,
		"count":    len(holdings),
	})
}

// HandleSetHolding handles PUT /api/universe/portfolios/{portfolioID}/holdings/{isin}
func (h *Handler) HandleSetHolding(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioID")
	isin := chi.URLParam(r, "isin")

	var req HoldingRequest
	if err := utils.DecodeRequest(r, &req); err != nil || req.ParAmount == nil {
		http.Error(w, "par_amount is required", http.StatusBadRequest)
		return
	}

	if err := h.portfolioRepo.SetHolding(portfolioID, isin, *req.ParAmount); err != nil {
		if errors.Is(err, universe.ErrInvalidISIN) || *req.ParAmount < 0 {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Str("portfolio_id", portfolioID).Str("isin", isin).Msg("Failed to set holding")
		http.Error(w, "Failed to set holding", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRemoveHolding handles DELETE /api/universe/portfolios/{portfolioID}/holdings/{isin}
func (h *Handler) HandleRemoveHolding(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioID")
	isin := chi.URLParam(r, "isin")

	if err := h.portfolioRepo.RemoveHolding(portfolioID, isin); err != nil {
		h.log.Error().Err(err).Str("portfolio_id", portfolioID).Str("isin", isin).Msg("Failed to remove holding")
		http.Error(w, "Failed to remove holding", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleListWatchlist handles GET /api/universe/portfolios/{portfolioID}/watchlist
func (h *Handler) HandleListWatchlist(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioID")

	entries, err := h.portfolioRepo.ListWatchlist(portfolioID)
	if err != nil {
		h.log.Error().Err(err).Str("portfolio_id", portfolioID).Msg("Failed to list watchlist")
		http.Error(w, "Failed to list watchlist", http.StatusInternalServerError)
		return
	}

	h.writeResponse(w, r, http.StatusOK, map[string]interface{}{
		"watchlist": entries,
		"count":     len(entries),
	})
}

// HandleAddToWatchlist handles POST /api/universe/portfolios/{portfolioID}/watchlist/{isin}
func (h *Handler) HandleAddToWatchlist(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioID")
	isin := chi.URLParam(r, "isin")

	if err := h.portfolioRepo.AddToWatchlist(portfolioID, isin); err != nil {
		if errors.Is(err, universe.ErrInvalidISIN) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Str("portfolio_id", portfolioID).Str("isin", isin).Msg("Failed to add to watchlist")
		http.Error(w, "Failed to add to watchlist", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRemoveFromWatchlist handles DELETE /api/universe/portfolios/{portfolioID}/watchlist/{isin}
func (h *Handler) HandleRemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioID")
	isin := chi.URLParam(r, "isin")

	if err := h.portfolioRepo.RemoveFromWatchlist(portfolioID, isin); err != nil {
		h.log.Error().Err(err).Str("portfolio_id", portfolioID).Str("isin", isin).Msg("Failed to remove from watchlist")
		http.Error(w, "Failed to remove from watchlist", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if err := utils.WriteResponse(w, r, status, data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
