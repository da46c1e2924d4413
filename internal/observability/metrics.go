package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the commerce core.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	OrdersCreated   prometheus.Counter
	OrdersCancelled prometheus.Counter
	QuotesCreated   prometheus.Counter
	InvoicesIssued  *prometheus.CounterVec
	OutboxDrained   *prometheus.CounterVec
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nirmaan_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nirmaan_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nirmaan_orders_created_total",
		Help: "Orders successfully created.",
	})
	ordersCancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nirmaan_orders_cancelled_total",
		Help: "Orders cancelled with stock released.",
	})
	quotesCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nirmaan_quotes_created_total",
		Help: "Quote requests created.",
	})
	invoicesIssued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nirmaan_invoices_issued_total",
		Help: "Invoices issued by type.",
	}, []string{"type"})
	outboxDrained := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nirmaan_outbox_records_total",
		Help: "Outbox records processed by outcome.",
	}, []string{"outcome"})
	registry.MustRegister(requests, duration, ordersCreated, ordersCancelled, quotesCreated, invoicesIssued, outboxDrained)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		OrdersCreated:   ordersCreated,
		OrdersCancelled: ordersCancelled,
		QuotesCreated:   quotesCreated,
		InvoicesIssued:  invoicesIssued,
		OutboxDrained:   outboxDrained,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for each HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
