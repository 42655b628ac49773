package storage

import "sync"

// MemoryStore is a map-backed VisitedStore; the default for a crawl
type MemoryStore struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewMemoryStore creates an empty in-memory visited set
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]struct{})}
}

// MarkVisited implements VisitedStore
func (s *MemoryStore) MarkVisited(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = struct{}{}
	return true, nil
}

// IsVisited implements VisitedStore
func (s *MemoryStore) IsVisited(key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[key]
	return ok, nil
}

// Count implements VisitedStore
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}

// Close implements VisitedStore
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.seen = make(map[string]struct{})
	s.mu.Unlock()
	return nil
}
