package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all ledger routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/ledger", func(r chi.Router) {
		r.Get("/transactions", h.HandleGetTransactions)
		r.Post("/transactions", h.HandleCreateTransactions)
		r.Delete("/transactions/{id}", h.HandleDeleteTransaction)

		r.Get("/positions", h.HandleGetPositions)
		r.Get("/realized", h.HandleGetRealized)
		r.Get("/costs", h.HandleGetCosts)
		r.Get("/activity", h.HandleGetActivity)
		r.Get("/summary", h.HandleGetSummary)
	})
}
