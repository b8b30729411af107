package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for one scraper instance.
type Metrics struct {
	Registry               *prometheus.Registry
	RequestsTotal          *prometheus.CounterVec
	RequestDuration        prometheus.Histogram
	ProductsScrapedTotal   prometheus.Counter
	HandlesDiscoveredTotal prometheus.Counter
	NotFoundTotal          prometheus.Counter
	ErrorsTotal            *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopify_scraper_requests_total",
			Help: "Total HTTP requests issued, by phase.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shopify_scraper_request_duration_seconds",
			Help:    "HTTP request latency for product fetches.",
			Buckets: prometheus.DefBuckets,
		},
	)
	products := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shopify_scraper_products_total",
			Help: "Total products transformed into canonical form.",
		},
	)
	discovered := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shopify_scraper_handles_discovered_total",
			Help: "Total product handles found via discovery.",
		},
	)
	notFound := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shopify_scraper_not_found_total",
			Help: "Total product fetches answered with HTTP 404.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopify_scraper_errors_total",
			Help: "Total scraper errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, requestDuration, products, discovered, notFound, errorsTotal)

	return &Metrics{
		Registry:               registry,
		RequestsTotal:          requests,
		RequestDuration:        requestDuration,
		ProductsScrapedTotal:   products,
		HandlesDiscoveredTotal: discovered,
		NotFoundTotal:          notFound,
		ErrorsTotal:            errorsTotal,
	}
}

// IncRequest increments the request counter for a phase.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records one product fetch duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncProducts increments the canonical product counter.
func (m *Metrics) IncProducts() {
	if m == nil {
		return
	}
	m.ProductsScrapedTotal.Inc()
}

// AddDiscovered adds to the discovered handle counter.
func (m *Metrics) AddDiscovered(n int) {
	if m == nil {
		return
	}
	m.HandlesDiscoveredTotal.Add(float64(n))
}

// IncNotFound increments the 404 counter.
func (m *Metrics) IncNotFound() {
	if m == nil {
		return
	}
	m.NotFoundTotal.Inc()
}

// IncError increments the error counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
