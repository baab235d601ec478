package suitability

import (
	"sync"

	"statadvisor/domain/assumption"
	"statadvisor/domain/core"
	"statadvisor/domain/scoring"

	"golang.org/x/sync/singleflight"
)

// DefaultMemoCapacity bounds the number of cached rankings
const DefaultMemoCapacity = 256

// Memo caches rankings keyed on the (catalog, checks, sample size) input tuple.
// Concurrent requests for the same inputs share one computation.
type Memo struct {
	scorer   *Scorer
	capacity int

	mu      sync.Mutex
	entries map[core.InputHash]scoring.Ranking
	order   []core.InputHash

	group  singleflight.Group
	hits   int
	misses int
}

// NewMemo wraps a scorer with a bounded ranking cache
func NewMemo(scorer *Scorer, capacity int) *Memo {
	if capacity <= 0 {
		capacity = DefaultMemoCapacity
	}
	return &Memo{
		scorer:   scorer,
		capacity: capacity,
		entries:  make(map[core.InputHash]scoring.Ranking, capacity),
	}
}

// Scorer returns the wrapped scorer
func (m *Memo) Scorer() *Scorer {
	return m.scorer
}

// Rank returns the ranking for the inputs, computing it at most once per key
// while it stays cached. The returned ranking is a private copy.
func (m *Memo) Rank(checks assumption.Checks, sampleSize int) scoring.Ranking {
	key := core.ComputeInputHash(m.scorer.Version(), checks.Fingerprint(), sampleSize)

	m.mu.Lock()
	if cached, ok := m.entries[key]; ok {
		m.hits++
		m.mu.Unlock()
		return cached.Clone()
	}
	m.misses++
	m.mu.Unlock()

	v, _, _ := m.group.Do(key.String(), func() (interface{}, error) {
		ranking := m.scorer.Rank(checks, sampleSize)
		m.store(key, ranking)
		return ranking, nil
	})
	return v.(scoring.Ranking).Clone()
}

func (m *Memo) store(key core.InputHash, ranking scoring.Ranking) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; exists {
		return
	}
	for len(m.order) >= m.capacity {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}
	m.entries[key] = ranking
	m.order = append(m.order, key)
}

// MemoStats reports cache effectiveness
type MemoStats struct {
	Entries int `json:"entries"`
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
}

// Stats returns a snapshot of the cache counters
func (m *Memo) Stats() MemoStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MemoStats{Entries: len(m.entries), Hits: m.hits, Misses: m.misses}
}
