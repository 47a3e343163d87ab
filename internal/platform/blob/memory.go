package blob

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/phrazzld/mediaflow-api/internal/domain"
)

// DefaultMemoryCapacity is the number of payloads kept when no capacity is given.
const DefaultMemoryCapacity = 1024

type object struct {
	data        []byte
	contentType string
}

// MemoryStore keeps payloads in process memory. Once capacity is reached the
// least recently used payload is evicted.
type MemoryStore struct {
	cache  *lru.Cache[string, object]
	logger *slog.Logger
}

// NewMemoryStore creates a store holding at most capacity payloads.
func NewMemoryStore(capacity int, logger *slog.Logger) (*MemoryStore, error) {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}

	s := &MemoryStore{logger: logger.With("component", "memory_blob_store")}
	cache, err := lru.NewWithEvict[string, object](capacity, func(key string, _ object) {
		s.logger.Warn("payload evicted to make room", "key", key)
	})
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

// Put stores a copy of data under key.
func (s *MemoryStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("empty key")
	}
	s.cache.Add(key, object{data: append([]byte(nil), data...), contentType: contentType})
	return nil
}

// Get returns a copy of the payload stored under key.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	obj, ok := s.cache.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrContentNotFound, key)
	}
	return append([]byte(nil), obj.data...), nil
}

// Delete removes the payload. Missing keys are ignored.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.cache.Remove(key)
	return nil
}

// Len returns the number of payloads held.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}
