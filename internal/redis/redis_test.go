package redis

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping Redis integration test")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestKVStore_RoundTrip(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()
	prefix := fmt.Sprintf("test:%d:", time.Now().UnixNano())
	store := NewKVStore(client, prefix)

	got, err := store.Get(ctx, "billing.live:d1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Set(ctx, "billing.live:d1", []byte(`{"waiting_active":false}`)))
	got, err = store.Get(ctx, "billing.live:d1")
	require.NoError(t, err)
	assert.Equal(t, `{"waiting_active":false}`, string(got))

	require.NoError(t, store.Remove(ctx, "billing.live:d1"))
	exists, err := client.Exists(ctx, prefix+"billing.live:d1").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestResponseCache_RoundTrip(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()
	cache := NewResponseCache(client)
	key := fmt.Sprintf("test-key-%d", time.Now().UnixNano())

	got, err := cache.GetResponse(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.SetResponse(ctx, key, []byte(`{"status":200}`), time.Minute))
	got, err = cache.GetResponse(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"status":200}`, string(got))
}

func TestLockStore_SerializesHolders(t *testing.T) {
	client := setupClient(t)
	locks := NewLockStore(client, 5*time.Second)
	driverID := fmt.Sprintf("lock-test-%d", time.Now().UnixNano())

	var (
		mu      sync.Mutex
		holders int
		maxSeen int
		wg      sync.WaitGroup
	)

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			unlock, err := locks.Lock(ctx, driverID)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			holders++
			if holders > maxSeen {
				maxSeen = holders
			}
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			holders--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen, "at most one holder at a time")
}

func TestLockStore_ContextCancelled(t *testing.T) {
	client := setupClient(t)
	locks := NewLockStore(client, 5*time.Second)
	driverID := fmt.Sprintf("lock-busy-%d", time.Now().UnixNano())

	unlock, err := locks.Lock(context.Background(), driverID)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = locks.Lock(ctx, driverID)
	assert.ErrorIs(t, err, ErrLockTimeout)
}
