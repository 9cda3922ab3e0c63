package authz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/internal/cache"
)

func TestNewPermissionCacheDisabledReturnsNil(t *testing.T) {
	pc, err := NewPermissionCache(nil, CacheConfig{Enabled: false})
	require.NoError(t, err)
	require.Nil(t, pc)

	// A nil cache is a usable no-op.
	ctx := context.Background()
	_, hit := pc.Get(ctx, "user-1")
	require.False(t, hit)
	pc.Set(ctx, "user-1", []Grant{{ID: "p1", Name: "posts.edit"}})
	require.NoError(t, pc.Invalidate(ctx, "refresh", "user-1"))
}

func TestNewPermissionCacheRejectsUnknownStrategy(t *testing.T) {
	_, err := NewPermissionCache(cache.NewMemoryStore(), CacheConfig{Enabled: true, Strategy: "guess"})
	require.Error(t, err)
}

func TestPermissionCacheRoundTrip(t *testing.T) {
	pc, err := NewPermissionCache(cache.NewMemoryStore(), CacheConfig{Enabled: true})
	require.NoError(t, err)

	ctx := context.Background()
	grants := []Grant{
		{ID: "p1", Name: "posts.edit"},
		{ID: "p2", Name: "posts.view"},
	}

	_, hit := pc.Get(ctx, "user-1")
	require.False(t, hit)

	pc.Set(ctx, "user-1", grants)

	got, hit := pc.Get(ctx, "user-1")
	require.True(t, hit)
	require.Equal(t, grants, got)

	// Other principals are unaffected.
	_, hit = pc.Get(ctx, "user-2")
	require.False(t, hit)
}

func TestPermissionCachePreciseInvalidation(t *testing.T) {
	pc, err := NewPermissionCache(cache.NewMemoryStore(), CacheConfig{Enabled: true, Strategy: StrategyPrecise})
	require.NoError(t, err)

	ctx := context.Background()
	pc.Set(ctx, "user-1", []Grant{{ID: "p1", Name: "posts.edit"}})
	pc.Set(ctx, "user-2", []Grant{{ID: "p2", Name: "posts.view"}})

	require.NoError(t, pc.Invalidate(ctx, "role_assignment", "user-1"))

	_, hit := pc.Get(ctx, "user-1")
	require.False(t, hit)
	_, hit = pc.Get(ctx, "user-2")
	require.True(t, hit, "precise invalidation must not touch other principals")
}

func TestPermissionCacheFlushInvalidation(t *testing.T) {
	pc, err := NewPermissionCache(cache.NewMemoryStore(), CacheConfig{Enabled: true, Strategy: StrategyFlush})
	require.NoError(t, err)

	ctx := context.Background()
	pc.Set(ctx, "user-1", []Grant{{ID: "p1", Name: "posts.edit"}})
	pc.Set(ctx, "user-2", []Grant{{ID: "p2", Name: "posts.view"}})

	// Flush ignores the principal list and orphans every cached set.
	require.NoError(t, pc.Invalidate(ctx, "role_permissions", "user-1"))

	_, hit := pc.Get(ctx, "user-1")
	require.False(t, hit)
	_, hit = pc.Get(ctx, "user-2")
	require.False(t, hit)

	// The namespace keeps working after a flush.
	pc.Set(ctx, "user-1", []Grant{{ID: "p3", Name: "posts.delete"}})
	got, hit := pc.Get(ctx, "user-1")
	require.True(t, hit)
	require.Len(t, got, 1)
}

func TestPermissionCacheCorruptEntryIsDiscarded(t *testing.T) {
	store := cache.NewMemoryStore()
	pc, err := NewPermissionCache(store, CacheConfig{Enabled: true, KeyPrefix: "warden"})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "warden_user_user-1_permissions", []byte("not json"), time.Minute))

	_, hit := pc.Get(ctx, "user-1")
	require.False(t, hit)

	// The corrupt entry is gone, so a fresh set round-trips.
	pc.Set(ctx, "user-1", []Grant{{ID: "p1", Name: "posts.edit"}})
	_, hit = pc.Get(ctx, "user-1")
	require.True(t, hit)
}
