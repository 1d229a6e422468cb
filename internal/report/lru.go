package report

import (
	"slices"
	"sync"
)

// LRUStore keeps the most recent runs in memory and delegates to a backing
// Store for persistence and cache misses.
type LRUStore struct {
	mu    sync.Mutex
	cap   int
	back  Store
	order []string // most recent first
	items map[string]*RunResult
}

// NewLRUStore creates an LRU cache with the given capacity over back.
// Capacity must be >= 1.
func NewLRUStore(cap int, back Store) *LRUStore {
	if cap < 1 {
		cap = 1
	}
	return &LRUStore{
		cap:   cap,
		back:  back,
		items: make(map[string]*RunResult, cap),
	}
}

// Save records the result in the cache and delegates to the backing store.
func (s *LRUStore) Save(result *RunResult) error {
	s.mu.Lock()
	s.touch(result.ID, result)
	s.mu.Unlock()
	return s.back.Save(result)
}

// Load checks the cache first; on miss it loads from the backing store and
// promotes the result.
func (s *LRUStore) Load(runID string) (*RunResult, error) {
	s.mu.Lock()
	if r, ok := s.items[runID]; ok {
		s.touch(runID, r)
		s.mu.Unlock()
		return r, nil
	}
	s.mu.Unlock()

	result, err := s.back.Load(runID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.touch(runID, result)
	s.mu.Unlock()
	return result, nil
}

// RecentIDs returns the cached run IDs, most recent first.
func (s *LRUStore) RecentIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.order)
}

// touch inserts or refreshes an entry at the front, evicting the oldest
// entry when over capacity. Callers hold s.mu.
func (s *LRUStore) touch(id string, r *RunResult) {
	if _, ok := s.items[id]; ok {
		if i := slices.Index(s.order, id); i >= 0 {
			s.order = slices.Delete(s.order, i, i+1)
		}
	}
	s.items[id] = r
	s.order = append([]string{id}, s.order...)
	if len(s.order) > s.cap {
		last := s.order[len(s.order)-1]
		s.order = s.order[:len(s.order)-1]
		delete(s.items, last)
	}
}
