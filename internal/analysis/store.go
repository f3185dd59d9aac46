package analysis

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"seedwatch/internal/domain"
)

// Store is the process-wide table of finished analyses
type Store struct {
	mu       sync.RWMutex
	results  map[string]domain.AnalysisResult
	newID    func(time.Time) string
	onChange func(count int)
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithIDGenerator replaces the analysis id generator
func WithIDGenerator(fn func(time.Time) string) StoreOption {
	return func(s *Store) { s.newID = fn }
}

// WithChangeHook is called with the new size after every insert or delete
func WithChangeHook(fn func(count int)) StoreOption {
	return func(s *Store) { s.onChange = fn }
}

// NewStore creates an empty store
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		results: make(map[string]domain.AnalysisResult),
		newID:   NewAnalysisID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewAnalysisID returns analysis_<yyyymmdd_hhmmss>_<8 hex chars>
func NewAnalysisID(t time.Time) string {
	return fmt.Sprintf("analysis_%s_%s", t.Format("20060102_150405"), uuid.NewString()[:8])
}

// Save assigns an id to result, stores it and returns the stored copy
func (s *Store) Save(result domain.AnalysisResult) domain.AnalysisResult {
	s.mu.Lock()
	id := s.newID(result.ProcessedAt)
	for _, taken := s.results[id]; taken; _, taken = s.results[id] {
		id = s.newID(result.ProcessedAt)
	}
	result.ID = id
	s.results[id] = result
	count := len(s.results)
	s.mu.Unlock()

	s.changed(count)
	return result
}

// Get returns the analysis with the given id
func (s *Store) Get(id string) (domain.AnalysisResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[id]
	return result, ok
}

// Delete removes an analysis and reports whether it existed
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	_, ok := s.results[id]
	if ok {
		delete(s.results, id)
	}
	count := len(s.results)
	s.mu.Unlock()

	if ok {
		s.changed(count)
	}
	return ok
}

// All returns every stored analysis, most recent first
func (s *Store) All() []domain.AnalysisResult {
	s.mu.RLock()
	all := make([]domain.AnalysisResult, 0, len(s.results))
	for _, result := range s.results {
		all = append(all, result)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].ProcessedAt.Equal(all[j].ProcessedAt) {
			return all[i].ProcessedAt.After(all[j].ProcessedAt)
		}
		return all[i].ID < all[j].ID
	})
	return all
}

// Count returns the number of stored analyses
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

func (s *Store) changed(count int) {
	if s.onChange != nil {
		s.onChange(count)
	}
}
