// Package cache stores aggregated populations between runs. Generating and
// aggregating a population is the expensive part of a simulation and depends only
// on the generation parameters, so callers key entries by those.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/digital-twin/internal/common"
	"github.com/Veraticus/digital-twin/internal/model"
)

// Backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// DefaultTTL applies when a backend is configured without a TTL.
const DefaultTTL = 30 * time.Minute

// Entry is one cached population.
type Entry struct {
	Records  []model.AggregatedRecord `json:"records"`
	Warnings []string                 `json:"warnings,omitempty"`
}

// PopulationCache stores aggregated populations.
type PopulationCache interface {
	// Get returns the entry for key. A miss is reported with ok false and a nil error.
	Get(ctx context.Context, key string) (entry Entry, ok bool, err error)
	Set(ctx context.Context, key string, entry Entry) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend string
	TTL     time.Duration
	Redis   RedisConfig
}

// New creates the configured backend. The none backend returns a nil cache.
func New(cfg Config) (PopulationCache, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendMemory:
		return NewMemory(cfg.TTL), nil
	case BackendRedis:
		redisCfg := cfg.Redis
		if redisCfg.TTL <= 0 {
			redisCfg.TTL = cfg.TTL
		}
		c, err := NewRedis(redisCfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unknown cache backend %q", common.ErrInvalidConfig, cfg.Backend)
	}
}

// Key derives a stable cache key from the generation parameters.
func Key(parts ...any) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%v|", p)
	}
	return "population:" + hex.EncodeToString(h.Sum(nil))[:32]
}
