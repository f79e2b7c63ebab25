package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all bond match routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/bond_match", func(r chi.Router) {
		r.Post("/", h.HandleMatch)
		r.Post("/intent", h.HandleParseIntent)
		r.Get("/history", h.HandleHistory)
		r.Get("/countries", h.HandleCountries)
	})
}
