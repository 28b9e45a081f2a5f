package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "promptgate"

// Request outcomes recorded by the HTTP layer
const (
	OutcomeAnswered     = "answered"
	OutcomeLocked       = "locked"
	OutcomeRateLimited  = "rate_limited"
	OutcomeBotRejected  = "bot_rejected"
	OutcomeInvalid      = "invalid"
	OutcomeNotFound     = "not_found"
	OutcomeBackendError = "backend_error"
	OutcomeConfirmed    = "confirmed"
)

// Suggestion pipeline outcomes
const (
	SuggestionsParsed       = "parsed"
	SuggestionsUnparsable   = "unparsable"
	SuggestionsBackendError = "backend_error"
)

// Metrics holds the gateway's Prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests            *prometheus.CounterVec
	quotaDecisions      *prometheus.CounterVec
	generationDuration  *prometheus.HistogramVec
	suggestionOutcomes  *prometheus.CounterVec
	suggestionsFiltered prometheus.Counter
	rateLimiterEntries  prometheus.Gauge
}

// New registers all collectors plus the Go runtime and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests handled, by route and outcome.",
		}, []string{"route", "outcome"}),
		quotaDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_decisions_total",
			Help:      "Quota state machine decisions, by resulting state and admission.",
		}, []string{"state", "admitted"}),
		generationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Duration of calls to the generation backend.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		}, []string{"purpose", "result"}),
		suggestionOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestion_runs_total",
			Help:      "Suggestion pipeline runs, by outcome.",
		}, []string{"outcome"}),
		suggestionsFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestions_filtered_total",
			Help:      "Suggestions dropped for not being objects or pointing at external addresses.",
		}),
		rateLimiterEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rate_limiter_entries",
			Help:      "Identities currently tracked by the rate limiter.",
		}),
	}

	reg.MustRegister(
		m.requests,
		m.quotaDecisions,
		m.generationDuration,
		m.suggestionOutcomes,
		m.suggestionsFiltered,
		m.rateLimiterEntries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (tests gather from it)
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveRequest(route, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, outcome).Inc()
}

func (m *Metrics) ObserveQuotaDecision(state string, admitted bool) {
	if m == nil {
		return
	}
	a := "false"
	if admitted {
		a = "true"
	}
	m.quotaDecisions.WithLabelValues(state, a).Inc()
}

// ObserveGeneration records one backend call. purpose is "answer" or "suggestions".
func (m *Metrics) ObserveGeneration(purpose string, started time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.generationDuration.WithLabelValues(purpose, result).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ObserveSuggestions(outcome string, filtered int) {
	if m == nil {
		return
	}
	m.suggestionOutcomes.WithLabelValues(outcome).Inc()
	if filtered > 0 {
		m.suggestionsFiltered.Add(float64(filtered))
	}
}

func (m *Metrics) SetRateLimiterEntries(n int) {
	if m == nil {
		return
	}
	m.rateLimiterEntries.Set(float64(n))
}
