package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ashureev/campus-assistant/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStores returns every backend available in this environment. Redis
// is only exercised when CAMPUS_TEST_REDIS_ADDR points at a server.
func testStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "campus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	stores := map[string]Store{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}

	if addr := os.Getenv("CAMPUS_TEST_REDIS_ADDR"); addr != "" {
		prefix := "campus-test:" + t.Name() + ":"
		rs, err := NewRedis(context.Background(), RedisConfig{Addr: addr, Prefix: prefix})
		require.NoError(t, err)
		t.Cleanup(func() { _ = rs.Close() })
		stores["redis"] = rs
	}
	return stores
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			key := ThreadIDKey("user123")

			_, ok, err := s.Get(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, key, "t-1"))
			v, ok, err := s.Get(ctx, key)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "t-1", v)

			require.NoError(t, s.Set(ctx, key, "t-2"))
			v, _, err = s.Get(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, "t-2", v)

			require.NoError(t, s.Set(ctx, GuestUserIDKey, ""))
			v, ok, err = s.Get(ctx, GuestUserIDKey)
			require.NoError(t, err)
			assert.True(t, ok, "empty values are still present")
			assert.Empty(t, v)

			require.NoError(t, s.Remove(ctx, key))
			_, ok, err = s.Get(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Remove(ctx, key), "removing a missing key is fine")

			_, _, err = s.Get(ctx, "")
			assert.ErrorIs(t, err, ErrEmptyKey)
			assert.ErrorIs(t, s.Set(ctx, "", "x"), ErrEmptyKey)
			assert.ErrorIs(t, s.Remove(ctx, ""), ErrEmptyKey)
		})
	}
}

func TestStoreConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					assert.NoError(t, s.Set(ctx, ThreadIDKey("shared"), "v"))
				}()
			}
			wg.Wait()

			v, ok, err := s.Get(ctx, ThreadIDKey("shared"))
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "v", v)
		})
	}
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "campus.db")

	s, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, GuestUserIDKey, "guest_1_abc"))
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close())

	s, err = NewSQLite(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	v, ok, err := s.Get(ctx, GuestUserIDKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "guest_1_abc", v)
}

func TestRedisKeyPrefix(t *testing.T) {
	s := NewRedisFromClient(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "campus:")
	defer func() { _ = s.Close() }()
	assert.Equal(t, "campus:threadId_u1", s.key(ThreadIDKey("u1")))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StoreConfig{Kind: config.StoreMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, config.StoreConfig{Kind: config.StoreSQLite, DBPath: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.StoreConfig{Kind: "etcd"})
	assert.Error(t, err)
}

func TestThreadIDKey(t *testing.T) {
	assert.Equal(t, "threadId_user123", ThreadIDKey("user123"))
}
