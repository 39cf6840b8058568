package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Chat request outcomes
const (
	OutcomeSuccess       = "success"
	OutcomeInvalid       = "invalid"
	OutcomeNotConfigured = "not_configured"
	OutcomeProviderError = "provider_error"
	OutcomeInternalError = "internal_error"
)

// Metrics holds the service collectors on a private registry
type Metrics struct {
	registry         *prometheus.Registry
	chatRequests     *prometheus.CounterVec
	chatDuration     prometheus.Histogram
	knowledgeMatches *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
}

// New creates and registers every collector
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.chatRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oro_chat_requests_total",
		Help: "Chat requests by outcome.",
	}, []string{"outcome"})
	m.chatDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "oro_chat_request_duration_seconds",
		Help:    "Time spent answering chat requests.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})
	m.knowledgeMatches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oro_knowledge_matches_total",
		Help: "Knowledge lookups by augmentation mode and whether an entry was used.",
	}, []string{"augmentation", "matched"})
	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oro_http_requests_total",
		Help: "HTTP requests by method and status code.",
	}, []string{"method", "status"})

	m.registry.MustRegister(
		m.chatRequests,
		m.chatDuration,
		m.knowledgeMatches,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveChat records one finished chat request
func (m *Metrics) ObserveChat(outcome string, elapsed time.Duration) {
	m.chatRequests.WithLabelValues(outcome).Inc()
	m.chatDuration.Observe(elapsed.Seconds())
}

// RecordMatch records whether a knowledge entry was used for a request
func (m *Metrics) RecordMatch(augmentation string, matched bool) {
	m.knowledgeMatches.WithLabelValues(augmentation, strconv.FormatBool(matched)).Inc()
}

// ObserveHTTP records one served HTTP request
func (m *Metrics) ObserveHTTP(method string, status int) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
