package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odyssey-erp/storefront-admin/internal/liststate"
)

// Metrics collects the Prometheus metrics of the console.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	fetchTotal      *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	staleTotal      *prometheus.CounterVec
	bulkTotal       *prometheus.CounterVec
	controllers     *prometheus.GaugeVec
}

// NewMetrics initialises the registry and every metric.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_admin_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_admin_http_request_duration_seconds",
		Help:    "HTTP request duration by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_admin_list_fetch_total",
		Help: "List fetches by screen and outcome.",
	}, []string{"screen", "outcome"})
	fetchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_admin_list_fetch_duration_seconds",
		Help:    "Backend list fetch latency by screen.",
		Buckets: prometheus.DefBuckets,
	}, []string{"screen"})
	stale := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_admin_list_stale_responses_total",
		Help: "Responses dropped because a newer request superseded them.",
	}, []string{"screen"})
	bulk := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_admin_bulk_transitions_total",
		Help: "Bulk action phase transitions by screen and target phase.",
	}, []string{"screen", "phase"})
	controllers := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "storefront_admin_list_controllers",
		Help: "Live list controllers by screen.",
	}, []string{"screen"})
	registry.MustRegister(requests, duration, fetches, fetchDuration, stale, bulk, controllers)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		fetchTotal:      fetches,
		fetchDuration:   fetchDuration,
		staleTotal:      stale,
		bulkTotal:       bulk,
		controllers:     controllers,
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

// Middleware records metrics for every HTTP request.
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

// Registerer exposes the registry for custom metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// FetchCompleted implements liststate.Observer.
func (m *Metrics) FetchCompleted(screen, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(screen, outcome).Inc()
	m.fetchDuration.WithLabelValues(screen).Observe(elapsed.Seconds())
}

// StaleDiscarded implements liststate.Observer.
func (m *Metrics) StaleDiscarded(screen string) {
	if m == nil {
		return
	}
	m.staleTotal.WithLabelValues(screen).Inc()
}

// BulkTransition implements liststate.Observer.
func (m *Metrics) BulkTransition(screen string, from, to liststate.Phase) {
	if m == nil {
		return
	}
	m.bulkTotal.WithLabelValues(screen, to.String()).Inc()
}

// ControllerOpened and ControllerClosed track live controllers.
func (m *Metrics) ControllerOpened(screen string) {
	if m == nil {
		return
	}
	m.controllers.WithLabelValues(screen).Inc()
}

func (m *Metrics) ControllerClosed(screen string) {
	if m == nil {
		return
	}
	m.controllers.WithLabelValues(screen).Dec()
}

var _ liststate.Observer = (*Metrics)(nil)

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
