package task

import (
	"context"
	"fmt"
	"sync"

	"github.com/phrazzld/mediaflow-api/internal/domain"
)

// MockContentStore implements ContentStore in memory for testing
type MockContentStore struct {
	mutex   sync.RWMutex
	objects map[string][]byte
	PutFn   func(ctx context.Context, key string, data []byte, contentType string) error
}

// NewMockContentStore creates an empty MockContentStore
func NewMockContentStore() *MockContentStore {
	store := &MockContentStore{objects: make(map[string][]byte)}

	store.PutFn = func(ctx context.Context, key string, data []byte, contentType string) error {
		store.mutex.Lock()
		defer store.mutex.Unlock()
		store.objects[key] = append([]byte(nil), data...)
		return nil
	}
	return store
}

// Put delegates to PutFn
func (s *MockContentStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return s.PutFn(ctx, key, data, contentType)
}

// Get returns a copy of the stored payload
func (s *MockContentStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrContentNotFound, key)
	}
	return append([]byte(nil), data...), nil
}

// Delete removes the payload if present
func (s *MockContentStore) Delete(ctx context.Context, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.objects, key)
	return nil
}

// Has reports whether a payload is stored under key
func (s *MockContentStore) Has(key string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	_, ok := s.objects[key]
	return ok
}

// Len returns the number of stored payloads
func (s *MockContentStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.objects)
}
