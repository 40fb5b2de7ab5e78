// Package metrics holds the prometheus collectors exported by twin.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SimulationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "twin_simulations_total",
			Help: "Total number of campaign simulations run",
		},
		[]string{"model"},
	)

	SimulationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "twin_simulation_duration_seconds",
			Help:    "Duration of campaign simulations in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"model"},
	)

	ResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "twin_responses_total",
			Help: "Total number of twin responses by category",
		},
		[]string{"response"},
	)

	ParserOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "twin_parser_outcomes_total",
			Help: "Campaign description parses by outcome",
		},
		[]string{"outcome"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "twin_population_cache_lookups_total",
			Help: "Population cache lookups by result",
		},
		[]string{"result"},
	)
)

// Parser outcomes.
const (
	OutcomeParsed   = "parsed"
	OutcomeFallback = "fallback"
	OutcomeFailed   = "failed"
)

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)
