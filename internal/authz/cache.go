package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/wardenhq/warden/internal/cache"
	"github.com/wardenhq/warden/pkg/logger"
	"github.com/wardenhq/warden/pkg/metrics"
)

// Grant is one entry of a principal's effective permission set.
type Grant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DefaultCacheTTL is the fallback time-to-live for cached permission sets.
const DefaultCacheTTL = time.Hour

// Invalidation strategy names accepted in configuration.
const (
	StrategyPrecise = "precise"
	StrategyFlush   = "flush"
)

// CacheConfig controls the effective-permission-set cache.
type CacheConfig struct {
	Enabled   bool
	TTL       time.Duration
	KeyPrefix string
	Strategy  string
}

// InvalidationStrategy decides how cached sets are keyed and discarded.
//
// The precise strategy deletes the entries of the principals a mutation
// affects. The flush strategy ignores the principal list and bumps a
// namespace version, orphaning every cached set at once; correct by
// over-invalidation, and cheaper for mutations that touch many principals
// at the cost of a cold cache afterwards.
type InvalidationStrategy interface {
	Key(ctx context.Context, principalID string) (string, error)
	Invalidate(ctx context.Context, principalIDs ...string) error
}

// PermissionCache memoizes effective permission sets per principal.
// A nil *PermissionCache is valid and disables memoization entirely.
type PermissionCache struct {
	store    cache.Store
	ttl      time.Duration
	strategy InvalidationStrategy
	log      *zap.Logger
}

// NewPermissionCache builds the cache layer. Returns nil when caching is
// disabled so callers fall through to direct recomputation.
func NewPermissionCache(store cache.Store, cfg CacheConfig) (*PermissionCache, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if store == nil {
		return nil, errors.New("authz cache: store is required")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "warden"
	}

	var strategy InvalidationStrategy
	switch cfg.Strategy {
	case "", StrategyPrecise:
		strategy = &preciseInvalidation{store: store, prefix: prefix}
	case StrategyFlush:
		strategy = &flushInvalidation{store: store, prefix: prefix}
	default:
		return nil, fmt.Errorf("authz cache: unknown invalidation strategy %q", cfg.Strategy)
	}

	return &PermissionCache{
		store:    store,
		ttl:      ttl,
		strategy: strategy,
		log:      logger.WithModule("authz.cache"),
	}, nil
}

// Get returns the cached permission set for a principal. Store errors are
// treated as misses so an unavailable cache degrades to recomputation
// instead of becoming an authorization outage.
func (c *PermissionCache) Get(ctx context.Context, principalID string) ([]Grant, bool) {
	if c == nil {
		return nil, false
	}

	key, err := c.strategy.Key(ctx, principalID)
	if err != nil {
		metrics.PermissionCache.WithLabelValues("error").Inc()
		c.log.Warn("cache key resolution failed", zap.Error(err))
		return nil, false
	}

	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		metrics.PermissionCache.WithLabelValues("error").Inc()
		c.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !found {
		metrics.PermissionCache.WithLabelValues("miss").Inc()
		return nil, false
	}

	var grants []Grant
	if err := json.Unmarshal(raw, &grants); err != nil {
		metrics.PermissionCache.WithLabelValues("error").Inc()
		c.log.Warn("cache entry corrupt; discarding", zap.String("key", key), zap.Error(err))
		_ = c.store.Delete(ctx, key)
		return nil, false
	}

	metrics.PermissionCache.WithLabelValues("hit").Inc()
	return grants, true
}

// Set stores the computed permission set for a principal.
func (c *PermissionCache) Set(ctx context.Context, principalID string, grants []Grant) {
	if c == nil {
		return
	}

	key, err := c.strategy.Key(ctx, principalID)
	if err != nil {
		c.log.Warn("cache key resolution failed", zap.Error(err))
		return
	}

	raw, err := json.Marshal(grants)
	if err != nil {
		c.log.Warn("cache encode failed", zap.Error(err))
		return
	}

	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate discards the cached sets of the supplied principals (or, under
// the flush strategy, every cached set). The trigger labels the metric.
func (c *PermissionCache) Invalidate(ctx context.Context, trigger string, principalIDs ...string) error {
	if c == nil {
		return nil
	}

	metrics.CacheInvalidations.WithLabelValues(trigger).Inc()
	return c.strategy.Invalidate(ctx, principalIDs...)
}

type preciseInvalidation struct {
	store  cache.Store
	prefix string
}

func (s *preciseInvalidation) Key(ctx context.Context, principalID string) (string, error) {
	return fmt.Sprintf("%s_user_%s_permissions", s.prefix, principalID), nil
}

func (s *preciseInvalidation) Invalidate(ctx context.Context, principalIDs ...string) error {
	if len(principalIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(principalIDs))
	for _, id := range principalIDs {
		keys = append(keys, fmt.Sprintf("%s_user_%s_permissions", s.prefix, id))
	}
	return s.store.Delete(ctx, keys...)
}

type flushInvalidation struct {
	store  cache.Store
	prefix string
}

func (s *flushInvalidation) versionKey() string {
	return s.prefix + "_permissions_version"
}

func (s *flushInvalidation) Key(ctx context.Context, principalID string) (string, error) {
	raw, found, err := s.store.Get(ctx, s.versionKey())
	if err != nil {
		return "", err
	}
	version := int64(0)
	if found {
		version, err = strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return "", fmt.Errorf("authz cache: corrupt version counter: %w", err)
		}
	}
	return fmt.Sprintf("%s_v%d_user_%s_permissions", s.prefix, version, principalID), nil
}

func (s *flushInvalidation) Invalidate(ctx context.Context, _ ...string) error {
	_, err := s.store.Increment(ctx, s.versionKey())
	return err
}
