package invoices

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/invoices", h.Create)
	r.Get("/invoices/{id}", h.Show)
	r.Put("/invoices/{id}", h.Update)
	r.Delete("/invoices/{id}", h.Delete)
	r.Post("/invoices/{id}/status", h.Transition)
	r.Get("/invoices/{id}/events", h.Events)
}
