package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrResultNotFound is returned when no result is stored for a task ID,
// either because the task kept none or because it expired.
var ErrResultNotFound = errors.New("task result not found")

// ResultStore keeps the outcome of tasks registered with StoreResult.
type ResultStore interface {
	Store(ctx context.Context, result Result) error
	Get(ctx context.Context, id uuid.UUID) (*Result, error)
}

// RedisResultStore writes results under "<prefix>task-meta-<id>" with a TTL.
type RedisResultStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisResultStore creates a result store. A zero ttl keeps results forever.
func NewRedisResultStore(client redis.Cmdable, prefix string, ttl time.Duration) *RedisResultStore {
	return &RedisResultStore{client: client, prefix: prefix, ttl: ttl}
}

var _ ResultStore = (*RedisResultStore)(nil)

// Key returns the Redis key holding the result for id.
func (s *RedisResultStore) Key(id uuid.UUID) string {
	return s.prefix + "task-meta-" + id.String()
}

// Store implements ResultStore.
func (s *RedisResultStore) Store(ctx context.Context, result Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := s.client.Set(ctx, s.Key(result.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store result for task %s: %w", result.ID, err)
	}
	return nil
}

// Get implements ResultStore.
func (s *RedisResultStore) Get(ctx context.Context, id uuid.UUID) (*Result, error) {
	data, err := s.client.Get(ctx, s.Key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to read result for task %s: %w", id, err)
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode result for task %s: %w", id, err)
	}
	return &result, nil
}

// MemoryResultStore keeps results in process memory.
type MemoryResultStore struct {
	mu      sync.RWMutex
	results map[uuid.UUID]Result
}

// NewMemoryResultStore creates an empty in-memory result store.
func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{results: make(map[uuid.UUID]Result)}
}

var _ ResultStore = (*MemoryResultStore)(nil)

// Store implements ResultStore.
func (s *MemoryResultStore) Store(ctx context.Context, result Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.ID] = result
	return nil
}

// Get implements ResultStore.
func (s *MemoryResultStore) Get(ctx context.Context, id uuid.UUID) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[id]
	if !ok {
		return nil, ErrResultNotFound
	}
	return &result, nil
}
