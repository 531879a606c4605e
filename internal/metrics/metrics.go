package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Steam API
	SteamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamercard_steam_requests_total",
			Help: "Steam API requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	SteamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gamercard_steam_request_duration_seconds",
			Help:    "Duration of Steam API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gamercard_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Metadata cache
	MetadataCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gamercard_metadata_cache_hits_total",
			Help: "App metadata lookups served from cache",
		},
	)

	MetadataCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gamercard_metadata_cache_misses_total",
			Help: "App metadata lookups that went to the store API",
		},
	)

	MetadataUnavailable = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gamercard_metadata_unavailable_total",
			Help: "Enriched items that fell back to empty metadata",
		},
	)

	// Pipeline
	AnalysisRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamercard_analysis_runs_total",
			Help: "Completed pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gamercard_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"stage"},
	)

	LLMFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamercard_llm_fallbacks_total",
			Help: "Generative calls that failed and were replaced by a local fallback",
		},
		[]string{"collaborator"},
	)

	// Results
	StoredAnalyses = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gamercard_stored_analyses",
			Help: "Analyses currently held in the result store",
		},
	)
)
