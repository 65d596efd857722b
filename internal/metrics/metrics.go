// Package metrics exposes Prometheus instrumentation for the resolution
// engine. It doubles as the side channel through which swallowed lookup
// failures are reported.
//
// Usage:
//
//	metrics.RecordLookupFailure("dedupe")
//	metrics.RecordDuplicateCheck(true)
//	metrics.ObserveProviderCall("ok", 120*time.Millisecond)
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// LookupFailuresTotal counts backend failures that were swallowed.
	LookupFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placematch_lookup_failures_total",
			Help: "Total number of swallowed lookup failures by component",
		},
		[]string{"component"},
	)

	// DuplicateChecksTotal counts resolver outcomes.
	DuplicateChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placematch_duplicate_checks_total",
			Help: "Total number of duplicate checks by outcome",
		},
		[]string{"duplicate"},
	)

	// ProviderCallsTotal counts place-search provider calls.
	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placematch_provider_calls_total",
			Help: "Total number of place-search provider calls by outcome",
		},
		[]string{"outcome"},
	)

	// ProviderCallDuration tracks provider latency.
	ProviderCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "placematch_provider_call_duration_seconds",
			Help:    "Duration of place-search provider calls in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	// BioClassificationsTotal counts biography classifications.
	BioClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placematch_bio_classifications_total",
			Help: "Total number of biography classifications by verdict",
		},
		[]string{"is_business"},
	)

	// ShareIngestionsTotal counts share workflow terminal states.
	ShareIngestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placematch_share_ingestions_total",
			Help: "Total number of share ingestions by link kind and resulting state",
		},
		[]string{"kind", "state"},
	)

	// DebounceSupersededTotal counts live-query requests dropped by debouncing.
	DebounceSupersededTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "placematch_debounce_superseded_total",
			Help: "Total number of live queries superseded before their result was delivered",
		},
	)
)

// RecordLookupFailure counts a swallowed lookup failure.
func RecordLookupFailure(component string) {
	LookupFailuresTotal.WithLabelValues(component).Inc()
}

// RecordDuplicateCheck counts one resolver outcome.
func RecordDuplicateCheck(duplicate bool) {
	DuplicateChecksTotal.WithLabelValues(strconv.FormatBool(duplicate)).Inc()
}

// ObserveProviderCall records a provider call with its outcome label.
func ObserveProviderCall(outcome string, d time.Duration) {
	ProviderCallsTotal.WithLabelValues(outcome).Inc()
	ProviderCallDuration.Observe(d.Seconds())
}

// RecordBioClassification counts one biography verdict.
func RecordBioClassification(isBusiness bool) {
	BioClassificationsTotal.WithLabelValues(strconv.FormatBool(isBusiness)).Inc()
}

// RecordShareIngestion counts a share workflow outcome.
func RecordShareIngestion(kind, state string) {
	ShareIngestionsTotal.WithLabelValues(kind, state).Inc()
}

// RecordDebounceSuperseded counts a dropped live query.
func RecordDebounceSuperseded() {
	DebounceSupersededTotal.Inc()
}

// Handler returns the scrape endpoint for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
