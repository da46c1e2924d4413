package billing

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nirmaan-commerce/nirmaan/internal/platform/httpx"
	"github.com/nirmaan-commerce/nirmaan/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, shared.Validation("invalid_id", "invalid id", nil)
	}
	return id, nil
}

func (h *Handler) GenerateTaxInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.GenerateTaxInvoice(r.Context(), id)
	if err != nil {
		h.logger.Error("generate tax invoice failed", slog.Int64("order_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) GenerateProformaInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.GenerateProformaInvoice(r.Context(), id)
	if err != nil {
		h.logger.Error("generate proforma invoice failed", slog.Int64("quote_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req := ListInvoicesRequest{}
	q := r.URL.Query()
	if v := q.Get("customer_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.CustomerID = &id
		}
	}
	if v := q.Get("type"); v != "" {
		t := InvoiceType(v)
		req.Type = &t
	}
	req.Limit, _ = strconv.Atoi(q.Get("limit"))
	req.Offset, _ = strconv.Atoi(q.Get("offset"))

	invoices, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list invoices failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	page := 1
	if req.Limit > 0 {
		page = req.Offset/req.Limit + 1
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"invoices":   invoices,
		"pagination": shared.NewPagination(page, req.Limit, total),
	})
}

// GSTReport serves the aggregated report for ?from=YYYY-MM-DD&to=YYYY-MM-DD,
// optionally grouped with &by_brand=true.
func (h *Handler) GSTReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := time.Parse("2006-01-02", q.Get("from"))
	if err != nil {
		httpx.RespondError(w, shared.Validation("invalid_range", "from must be a YYYY-MM-DD date", nil))
		return
	}
	to, err := time.Parse("2006-01-02", q.Get("to"))
	if err != nil {
		httpx.RespondError(w, shared.Validation("invalid_range", "to must be a YYYY-MM-DD date", nil))
		return
	}
	if to.Before(from) {
		httpx.RespondError(w, shared.Validation("invalid_range", "to must not precede from", nil))
		return
	}
	byBrand, _ := strconv.ParseBool(q.Get("by_brand"))

	// Make the window inclusive of the final day.
	report, err := h.service.GSTReport(r.Context(), from, to.Add(24*time.Hour-time.Nanosecond), byBrand)
	if err != nil {
		h.logger.Error("gst report failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}
