package core

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis starts an in-process Redis and returns a namespaced store
// backed by it.
func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err, "failed to start miniredis")
	t.Cleanup(mr.Close)

	store, err := NewRedisStore(RedisStoreOptions{
		RedisURL:  "redis://" + mr.Addr(),
		Namespace: "libie-test",
	})
	require.NoError(t, err, "failed to create Redis store")
	t.Cleanup(func() { store.Close() })

	return store, mr
}

func TestRedisStore_GetSet(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	v, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, "", v, "missing key should read as empty")

	require.NoError(t, store.Set(ctx, "k", "v", 0))
	v, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestRedisStore_Namespacing(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "stats:hits:all", "7", 0))

	raw, err := mr.Get("libie-test:stats:hits:all")
	require.NoError(t, err)
	assert.Equal(t, "7", raw, "keys must carry the namespace prefix")
}

func TestRedisStore_IncrAndExpire(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	n, err := store.Incr(ctx, "quota:10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, store.Expire(ctx, "quota:10.0.0.1", time.Hour))

	n, err = store.Incr(ctx, "quota:10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ttl, err := store.TTL(ctx, "quota:10.0.0.1")
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Minute, "Incr must not clear the window TTL")

	// The window resets once its TTL elapses.
	mr.FastForward(2 * time.Hour)
	n, err = store.Incr(ctx, "quota:10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "counter should restart after the window expires")
}

func TestRedisStore_KeysStripNamespace(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "quota:10.0.0.1", "1", 0))
	require.NoError(t, store.Set(ctx, "quota:10.0.0.2", "2", 0))
	require.NoError(t, store.Set(ctx, "report:abc", "x", 0))

	keys, err := store.Keys(ctx, "quota:*")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	for _, k := range keys {
		assert.Contains(t, k, "quota:")
		assert.NotContains(t, k, "libie-test", "namespace must be stripped")
	}
}

func TestRedisStore_SaveReport(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	err := store.SaveReport(ctx, Report{
		IP:        "10.0.0.1",
		Type:      "bug",
		Message:   "endpoint cuaca error",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	require.NoError(t, err)

	keys := mr.Keys()
	var reportKey string
	for _, k := range keys {
		if len(k) > len("libie-test:report:") && k[:len("libie-test:report:")] == "libie-test:report:" {
			reportKey = k
		}
	}
	require.NotEmpty(t, reportKey, "report hash not written")

	assert.Equal(t, "10.0.0.1", mr.HGet(reportKey, "ip"))
	assert.Equal(t, "bug", mr.HGet(reportKey, "type"))
	assert.Equal(t, "endpoint cuaca error", mr.HGet(reportKey, "message"))
	assert.Greater(t, mr.TTL(reportKey), time.Duration(0), "report must expire eventually")
}

func TestRedisStore_QuotaEndToEnd(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	q := NewQuotaEnforcer(store, QuotaConfig{Limit: 3, Window: time.Hour}, nil)

	for i := 0; i < 3; i++ {
		_, allowed := q.Check(ctx, "10.0.0.1")
		require.True(t, allowed, "request %d rejected below the ceiling", i+1)
	}

	state, allowed := q.Check(ctx, "10.0.0.1")
	assert.False(t, allowed)
	assert.True(t, state.Blocked)
	require.NotNil(t, state.ResetAt)

	mr.FastForward(2 * time.Hour)

	state, allowed = q.Check(ctx, "10.0.0.1")
	assert.True(t, allowed, "window expiry should reset the quota")
	assert.Equal(t, int64(1), state.Requests)
}

func TestNewRedisStore_InvalidURL(t *testing.T) {
	_, err := NewRedisStore(RedisStoreOptions{RedisURL: "not-a-url"})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = NewRedisStore(RedisStoreOptions{})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}
