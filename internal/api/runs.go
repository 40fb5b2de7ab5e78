package api

import (
	"sync"

	"github.com/Veraticus/digital-twin/internal/simulation"
)

const defaultRetainedRuns = 16

// runStore keeps the most recent results in insertion order.
type runStore struct {
	results []*simulation.Result
	limit   int
	mu      sync.RWMutex
}

func newRunStore(limit int) *runStore {
	if limit <= 0 {
		limit = defaultRetainedRuns
	}
	return &runStore{limit: limit}
}

func (s *runStore) add(r *simulation.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = append(s.results, r)
	if over := len(s.results) - s.limit; over > 0 {
		s.results = s.results[over:]
	}
}

func (s *runStore) get(runID string) (*simulation.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.results {
		if r.RunID == runID {
			return r, true
		}
	}
	return nil, false
}
