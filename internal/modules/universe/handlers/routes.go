package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all universe routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/universe", func(r chi.Router) {
		// Analytics universe
		r.Get("/bonds", h.HandleListBonds)
		r.Post("/bonds", h.HandleSyncBonds)
		r.Get("/bonds/{isin}", h.HandleGetBond)
		r.Get("/search", h.HandleSearch)

		// Candidate pools per portfolio
		r.Route("/portfolios/{portfolioID}", func(r chi.Router) {
			r.Get("/holdings", h.HandleListHoldings)
			r.Put("/holdings/{isin}", h.HandleSetHolding)
			r.Delete("/holdings/{isin}", h.HandleRemoveHolding)

			r.Get("/watchlist", h.HandleListWatchlist)
			r.Post("/watchlist/{isin}", h.HandleAddToWatchlist)
			r.Delete("/watchlist/{isin}", h.HandleRemoveFromWatchlist)
		})
	})
}
