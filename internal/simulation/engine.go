// Package simulation runs the full twin pipeline: population generation, feature
// aggregation, propensity estimation, campaign scoring and classification.
package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Veraticus/digital-twin/internal/cache"
	"github.com/Veraticus/digital-twin/internal/campaign"
	"github.com/Veraticus/digital-twin/internal/common"
	"github.com/Veraticus/digital-twin/internal/features"
	"github.com/Veraticus/digital-twin/internal/metrics"
	"github.com/Veraticus/digital-twin/internal/model"
	"github.com/Veraticus/digital-twin/internal/population"
	"github.com/Veraticus/digital-twin/internal/propensity"
	"github.com/Veraticus/digital-twin/internal/scoring"
	"github.com/google/uuid"
)

// Engine runs simulations. It holds no per-run state and is safe for concurrent use
// when its cache is.
type Engine struct {
	cache    cache.PopulationCache
	logger   *slog.Logger
	progress func(done, total int)
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache reuses aggregated populations across runs.
func WithCache(c cache.PopulationCache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithLogger sets the logger used for run diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithProgress reports transaction generation progress per customer.
func WithProgress(fn func(done, total int)) Option {
	return func(e *Engine) {
		e.progress = fn
	}
}

// NewEngine creates an engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = common.LoggerOrDefault(e.logger)
	return e
}

// Population is an aggregated customer population.
type Population struct {
	Records  []model.AggregatedRecord
	Warnings []string
	Cached   bool
}

// Result is the outcome of one simulation run.
type Result struct {
	RunID     string               `json:"run_id"`
	CreatedAt time.Time            `json:"created_at"`
	Params    Params               `json:"params"`
	Filter    campaign.Filter      `json:"filter"`
	Records   []model.ScoredRecord `json:"records"`
	Summary   Summary              `json:"summary"`
	Warnings  []string             `json:"warnings,omitempty"`
	Duration  time.Duration        `json:"duration"`
}

// Find returns the scored record of a customer.
func (r *Result) Find(customerID string) (model.ScoredRecord, bool) {
	for _, rec := range r.Records {
		if rec.ID == customerID {
			return rec, true
		}
	}
	return model.ScoredRecord{}, false
}

// Top returns the n records with the highest adjusted probability. Ties keep
// population order. n <= 0 returns every record.
func (r *Result) Top(n int) []model.ScoredRecord {
	sorted := slices.Clone(r.Records)
	slices.SortStableFunc(sorted, func(a, b model.ScoredRecord) int {
		switch {
		case a.ProductInterestProbability > b.ProductInterestProbability:
			return -1
		case a.ProductInterestProbability < b.ProductInterestProbability:
			return 1
		default:
			return 0
		}
	})
	if n > 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// Population generates and aggregates the population described by p, or loads it
// from the cache.
func (e *Engine) Population(ctx context.Context, p Params) (Population, error) {
	p, notes := p.Normalize()
	for _, note := range notes {
		e.logger.Warn("Adjusted simulation parameter", "note", note)
	}
	if err := ctx.Err(); err != nil {
		return Population{}, err
	}

	key := cache.Key(p.cacheKey()...)
	if pop, ok := e.cached(ctx, key); ok {
		pop.Warnings = append(notes, pop.Warnings...)
		return pop, nil
	}

	genOpts := []population.Option{population.WithSampleSeed(p.SampleSeed)}
	if e.progress != nil {
		genOpts = append(genOpts, population.WithProgress(e.progress))
	}
	gen := population.NewGenerator(p.Seed, genOpts...)

	customers, err := gen.Customers(p.Individuals, p.SMEs, p.Corporates)
	if err != nil {
		return Population{}, fmt.Errorf("failed to generate customers: %w", err)
	}

	set, err := gen.Transactions(customers, p.Months, p.MaxSample)
	if err != nil {
		return Population{}, fmt.Errorf("failed to generate transactions: %w", err)
	}

	var warnings []string
	if set.Warning != nil {
		e.logger.Warn("Sampled customers for transaction generation",
			"total", set.Warning.Total,
			"kept", set.Warning.Kept)
		warnings = append(warnings, set.Warning.String())
	}

	records, stats := features.AggregateWithStats(customers, set.Transactions)
	if err := stats.Err(); err != nil {
		e.logger.Warn("Dropped transactions during aggregation", "error", err)
		warnings = append(warnings, err.Error())
	}
	if stats.WithoutTransactions > 0 {
		e.logger.Debug("Customers without transactions were zero-filled", "count", stats.WithoutTransactions)
		warnings = append(warnings, fmt.Sprintf("%d customers have no transactions; their aggregates are zero", stats.WithoutTransactions))
	}

	e.logger.Info("Generated population",
		"customers", len(customers),
		"transactions", len(set.Transactions),
		"seed", p.Seed)

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, cache.Entry{Records: records, Warnings: warnings}); err != nil {
			e.logger.Warn("Failed to cache population", "error", err)
		}
	}

	return Population{Records: records, Warnings: append(notes, warnings...)}, nil
}

func (e *Engine) cached(ctx context.Context, key string) (Population, bool) {
	if e.cache == nil {
		return Population{}, false
	}

	entry, ok, err := e.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues(metrics.CacheError).Inc()
		e.logger.Warn("Population cache lookup failed", "error", err)
		return Population{}, false
	case !ok:
		metrics.CacheLookups.WithLabelValues(metrics.CacheMiss).Inc()
		e.logger.Debug("Population cache miss", "key", key)
		return Population{}, false
	default:
		metrics.CacheLookups.WithLabelValues(metrics.CacheHit).Inc()
		e.logger.Debug("Population cache hit", "key", key, "records", len(entry.Records))
		return Population{Records: entry.Records, Warnings: entry.Warnings, Cached: true}, true
	}
}

// Run simulates the response of every twin to the campaign f.
func (e *Engine) Run(ctx context.Context, p Params, f campaign.Filter) (*Result, error) {
	start := e.now()
	p, notes := p.Normalize()
	for _, note := range notes {
		e.logger.Warn("Adjusted simulation parameter", "note", note)
	}

	modelName, err := propensity.Resolve(p.Model)
	if err != nil {
		return nil, err
	}
	p.Model = modelName

	pop, err := e.Population(ctx, p)
	if err != nil {
		return nil, err
	}
	warnings := append(notes, pop.Warnings...)

	if err := f.Validate(); err != nil {
		e.logger.Warn("Campaign filter has values outside their domain", "error", err)
		warnings = append(warnings, fmt.Sprintf("campaign filter: %v", err))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, err := propensity.FitPredict(pop.Records, propensity.Options{Model: p.Model, Label: p.Label, Seed: p.Seed})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate base probabilities: %w", err)
	}

	scorer := scoring.NewScorer(f)
	records := make([]model.ScoredRecord, len(pop.Records))
	for i, rec := range pop.Records {
		records[i] = scorer.Apply(rec, base[i])
	}

	summary := Summarize(records)
	result := &Result{
		RunID:     uuid.NewString(),
		CreatedAt: start,
		Params:    p,
		Filter:    scorer.Filter(),
		Records:   records,
		Summary:   summary,
		Warnings:  warnings,
		Duration:  e.now().Sub(start),
	}

	metrics.SimulationsTotal.WithLabelValues(p.Model).Inc()
	metrics.SimulationDuration.WithLabelValues(p.Model).Observe(result.Duration.Seconds())
	for _, c := range summary.Distribution {
		metrics.ResponsesTotal.WithLabelValues(string(c.Response)).Add(float64(c.Count))
	}

	e.logger.Info("Simulation complete",
		"run_id", result.RunID,
		"model", p.Model,
		"customers", summary.Total,
		"cached_population", pop.Cached,
		"duration", result.Duration)

	return result, nil
}
