package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStoreFromClient(client),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, found, err := store.Get(ctx, "missing")
			require.NoError(t, err)
			require.False(t, found)

			require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))

			val, found, err := store.Get(ctx, "k")
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, []byte("v"), val)

			require.NoError(t, store.Delete(ctx, "k"))
			_, found, err = store.Get(ctx, "k")
			require.NoError(t, err)
			require.False(t, found)
		})
	}
}

func TestStoreIncrement(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			n, err := store.Increment(ctx, "counter")
			require.NoError(t, err)
			require.EqualValues(t, 1, n)

			n, err = store.Increment(ctx, "counter")
			require.NoError(t, err)
			require.EqualValues(t, 2, n)
		})
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	current := time.Now()
	store.now = func() time.Time { return current }

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Second))

	_, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)

	current = current.Add(2 * time.Second)
	_, found, err = store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, found)
}

func TestRedisStoreExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	store := NewRedisStoreFromClient(client)

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Second))

	mr.FastForward(2 * time.Second)

	_, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, found)
}
