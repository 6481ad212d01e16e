package task

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redisURLEnv points the Redis-backed tests at a disposable server.
const redisURLEnv = "TODOS_TEST_REDIS_URL"

func testRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	url := os.Getenv(redisURLEnv)
	if url == "" {
		t.Skipf("%s not set, skipping Redis test", redisURLEnv)
	}

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func TestMemoryResultStore(t *testing.T) {
	s := NewMemoryResultStore()
	ctx := context.Background()
	id := uuid.New()

	_, err := s.Get(ctx, id)
	assert.ErrorIs(t, err, ErrResultNotFound)

	require.NoError(t, s.Store(ctx, Result{ID: id, Task: EchoTaskName, Status: StatusSuccess, Result: json.RawMessage(`1`)}))
	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, got.Status)
}

func TestRedisResultStore_Key(t *testing.T) {
	id := uuid.MustParse("6f1c1f0e-8a4e-4b8a-9a55-0f5a9d3c2b11")
	s := NewRedisResultStore(nil, "todos_mvc_", time.Hour)
	assert.Equal(t, "todos_mvc_task-meta-6f1c1f0e-8a4e-4b8a-9a55-0f5a9d3c2b11", s.Key(id))
}

func TestRedisResultStore_RoundTrip(t *testing.T) {
	client := testRedisClient(t)
	s := NewRedisResultStore(client, "todos_test_"+uuid.NewString()+"_", time.Minute)
	ctx := context.Background()
	id := uuid.New()

	_, err := s.Get(ctx, id)
	assert.ErrorIs(t, err, ErrResultNotFound)

	require.NoError(t, s.Store(ctx, Result{ID: id, Task: CountTodosTaskName, Status: StatusSuccess, Result: json.RawMessage(`3`)}))
	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.JSONEq(t, `3`, string(got.Result))

	ttl, err := client.TTL(ctx, s.Key(id)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRedisBroker_RoundTrip(t *testing.T) {
	client := testRedisClient(t)
	queue := "todos_test_queue_" + uuid.NewString()
	t.Cleanup(func() { _ = client.Del(context.Background(), queue).Err() })

	b := NewRedisBroker(client, queue, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first := NewMessage(CountTodosTaskName, json.RawMessage(`{"complete": false}`))
	second := NewMessage(EchoTaskName, nil)
	require.NoError(t, b.Publish(ctx, first))
	require.NoError(t, b.Publish(ctx, second))

	got, err := b.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.JSONEq(t, `{"complete": false}`, string(got.Args))

	got, err = b.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
}
