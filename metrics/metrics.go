// Package metrics defines the Prometheus collectors exported by butler.
//
// Collectors are package-level values that components receive explicitly
// (nil disables recording), so tests never touch the global registry.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "butler"

var (
	// ClassificationsTotal counts classified utterances by resulting intent.
	ClassificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Classified utterances by intent",
		},
		[]string{"intent", "fallback"},
	)

	// ClassificationScore observes the best similarity score per utterance.
	ClassificationScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classification_score",
			Help:      "Best exemplar similarity per classified utterance",
			Buckets:   []float64{0.3, 0.4, 0.5, 0.55, 0.6, 0.65, 0.7, 0.8, 0.9, 1},
		},
	)

	// RetrievalsTotal counts recipe lookups by outcome: hit, no_match, unavailable, error.
	RetrievalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recipe_retrievals_total",
			Help:      "Recipe retrievals by outcome",
		},
		[]string{"outcome"},
	)

	// GenerationAttemptsTotal counts dispatcher attempts by backend and outcome.
	GenerationAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_attempts_total",
			Help:      "Generation attempts by backend and outcome",
		},
		[]string{"backend", "outcome"},
	)

	// GenerationExhaustedTotal counts calls where every backend failed.
	GenerationExhaustedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_exhausted_total",
			Help:      "Generation calls that exhausted every backend",
		},
	)

	// EmbeddingCacheTotal counts embedding cache lookups.
	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	// HTTPRequestsTotal counts API requests by method, route pattern and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes API request latency.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path", "status"},
	)
)

var registerOnce sync.Once

// Register registers every collector with the default registry.
// Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ClassificationsTotal,
			ClassificationScore,
			RetrievalsTotal,
			GenerationAttemptsTotal,
			GenerationExhaustedTotal,
			EmbeddingCacheTotal,
			HTTPRequestsTotal,
			HTTPRequestDuration,
		)
	})
}
