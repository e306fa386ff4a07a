package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nvandessel/threadwatch/internal/models"
)

// MemoryThreadStore implements ThreadStore for testing and development.
// Records are deep-copied on the way in and out, so callers can keep
// mutating their copies without aliasing the stored state.
type MemoryThreadStore struct {
	mu        sync.RWMutex
	threads   map[string]string // root URI -> encoded record
	evaluated []string          // oldest first
	lastRun   time.Time
}

// NewMemoryThreadStore creates an empty in-memory store.
func NewMemoryThreadStore() *MemoryThreadStore {
	return &MemoryThreadStore{
		threads: make(map[string]string),
	}
}

// PutThread inserts or replaces the record keyed by thread.RootURI.
func (s *MemoryThreadStore) PutThread(ctx context.Context, thread *models.TrackedThread) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if thread == nil || thread.RootURI == "" {
		return fmt.Errorf("thread root URI is required")
	}
	record, err := json.Marshal(thread)
	if err != nil {
		return fmt.Errorf("failed to marshal thread record: %w", err)
	}
	s.threads[thread.RootURI] = string(record)
	return nil
}

// GetThread returns the record for rootURI, or (nil, nil).
func (s *MemoryThreadStore) GetThread(ctx context.Context, rootURI string) (*models.TrackedThread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.threads[rootURI]
	if !ok {
		return nil, nil
	}
	thread, err := models.DecodeThread([]byte(record))
	if err != nil {
		return nil, nil
	}
	return thread, nil
}

// ListThreads returns all records, highest score first.
func (s *MemoryThreadStore) ListThreads(ctx context.Context) ([]*models.TrackedThread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var threads []*models.TrackedThread
	for _, record := range s.threads {
		thread, err := models.DecodeThread([]byte(record))
		if err != nil {
			continue
		}
		threads = append(threads, thread)
	}
	// Highest score first, URI as tiebreaker for determinism.
	sort.Slice(threads, func(i, j int) bool {
		if threads[i].Score != threads[j].Score {
			return threads[i].Score > threads[j].Score
		}
		return threads[i].RootURI < threads[j].RootURI
	})
	return threads, nil
}

// DeleteThread removes the record for rootURI.
func (s *MemoryThreadStore) DeleteThread(ctx context.Context, rootURI string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.threads, rootURI)
	return nil
}

// EngagedAcross unions the engaged sets of every stored thread.
func (s *MemoryThreadStore) EngagedAcross(ctx context.Context) (map[string]bool, error) {
	threads, err := s.ListThreads(ctx)
	if err != nil {
		return nil, err
	}
	engaged := make(map[string]bool)
	for _, t := range threads {
		for _, did := range t.Engaged {
			engaged[did] = true
		}
	}
	return engaged, nil
}

// FilterUnevaluated returns the uris not yet marked evaluated.
func (s *MemoryThreadStore) FilterUnevaluated(ctx context.Context, uris []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool, len(s.evaluated))
	for _, uri := range s.evaluated {
		seen[uri] = true
	}
	var fresh []string
	for _, uri := range uris {
		if !seen[uri] {
			fresh = append(fresh, uri)
		}
	}
	return fresh, nil
}

// MarkEvaluated appends uris and truncates to the most recent max.
func (s *MemoryThreadStore) MarkEvaluated(ctx context.Context, uris []string, max int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, uri := range uris {
		if uri == "" {
			continue
		}
		// Re-marking refreshes recency.
		for i, existing := range s.evaluated {
			if existing == uri {
				s.evaluated = append(s.evaluated[:i], s.evaluated[i+1:]...)
				break
			}
		}
		s.evaluated = append(s.evaluated, uri)
	}
	if max > 0 && len(s.evaluated) > max {
		s.evaluated = s.evaluated[len(s.evaluated)-max:]
	}
	return nil
}

// LastRun returns when discovery last completed, or the zero time.
func (s *MemoryThreadStore) LastRun(ctx context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun, nil
}

// SetLastRun records when discovery last completed.
func (s *MemoryThreadStore) SetLastRun(ctx context.Context, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = at
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryThreadStore) Close() error {
	return nil
}
