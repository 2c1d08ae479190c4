package memory

import (
	"context"
	"sync"

	"trade-edge-lab/internal/domain"
	"trade-edge-lab/internal/storage"
)

// ResultStore is an in-memory implementation of storage.ResultStore.
// It holds at most one bundle.
type ResultStore struct {
	mu      sync.RWMutex
	current *domain.ResultBundle
}

// NewResultStore creates a new in-memory result store.
func NewResultStore() *ResultStore {
	return &ResultStore{}
}

// Publish replaces the current bundle unless b is older than it.
func (s *ResultStore) Publish(_ context.Context, b *domain.ResultBundle) error {
	if b == nil || b.Metrics == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && b.Key.Before(s.current.Key) {
		return storage.ErrStaleVersion
	}
	s.current = b
	return nil
}

// Current returns the published bundle.
func (s *ResultStore) Current(_ context.Context) (*domain.ResultBundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil, storage.ErrNotFound
	}
	return s.current, nil
}

// Get returns the published bundle if it was computed for key.
func (s *ResultStore) Get(_ context.Context, key domain.ResultKey) (*domain.ResultBundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil || s.current.Key != key {
		return nil, storage.ErrNotFound
	}
	return s.current, nil
}

// Invalidate drops the published bundle.
func (s *ResultStore) Invalidate(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	return nil
}

var _ storage.ResultStore = (*ResultStore)(nil)
