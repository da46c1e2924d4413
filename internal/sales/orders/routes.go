package orders

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
		r.Post("/{id}/status", h.UpdateStatus)
		r.Post("/{id}/cancel", h.Cancel)
		r.Post("/{id}/payments", h.RecordPayment)
	})
}
