package billing

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/invoices", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
		r.Post("/orders/{id}", h.GenerateTaxInvoice)
		r.Post("/quotes/{id}", h.GenerateProformaInvoice)
	})
	r.Get("/reports/gst", h.GSTReport)
}
