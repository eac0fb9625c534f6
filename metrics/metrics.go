// Package metrics holds the Prometheus instrumentation for the module.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// Provider metrics
	providerRequests *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec

	// Race metrics
	racesTotal   *prometheus.CounterVec
	raceDuration prometheus.Histogram

	// Engine metrics
	fetchesTotal *prometheus.CounterVec
	cacheReads   *prometheus.CounterVec

	// Signed client metrics
	signedRequests *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		providerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketfall_provider_requests_total",
				Help: "Total number of upstream provider requests",
			},
			[]string{"provider", "outcome"},
		),

		providerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketfall_provider_request_duration_seconds",
				Help:    "Upstream provider request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),

		racesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketfall_races_total",
				Help: "Total number of provider races by winner",
			},
			[]string{"winner"},
		),

		raceDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "marketfall_race_duration_seconds",
				Help:    "Provider race duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		fetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketfall_fetches_total",
				Help: "Total number of fetches by terminal state",
			},
			[]string{"state"},
		),

		cacheReads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketfall_cache_reads_total",
				Help: "Total number of cache reads by outcome",
			},
			[]string{"outcome"},
		),

		signedRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketfall_signed_requests_total",
				Help: "Total number of signed API calls",
			},
			[]string{"operation", "outcome"},
		),
	}

	reg.MustRegister(r.providerRequests)
	reg.MustRegister(r.providerDuration)
	reg.MustRegister(r.racesTotal)
	reg.MustRegister(r.raceDuration)
	reg.MustRegister(r.fetchesTotal)
	reg.MustRegister(r.cacheReads)
	reg.MustRegister(r.signedRequests)

	return r
}

// RecordProviderRequest records one provider fetch outcome.
func (r *Registry) RecordProviderRequest(provider, outcome string, duration float64) {
	r.providerRequests.WithLabelValues(provider, outcome).Inc()
	r.providerDuration.WithLabelValues(provider).Observe(duration)
}

// RecordRace records a finished race. Winner is "none" when all
// providers failed.
func (r *Registry) RecordRace(winner string, duration float64) {
	if winner == "" {
		winner = "none"
	}
	r.racesTotal.WithLabelValues(winner).Inc()
	r.raceDuration.Observe(duration)
}

// RecordFetch records the terminal state of a fetch.
func (r *Registry) RecordFetch(state string) {
	r.fetchesTotal.WithLabelValues(state).Inc()
}

// RecordCacheRead records a cache lookup outcome (hit, miss, error).
func (r *Registry) RecordCacheRead(outcome string) {
	r.cacheReads.WithLabelValues(outcome).Inc()
}

// RecordSignedRequest records a signed API call outcome.
func (r *Registry) RecordSignedRequest(operation, outcome string) {
	r.signedRequests.WithLabelValues(operation, outcome).Inc()
}

// Outcome maps an error to the label used on outcome counters.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
