package views

import (
	"context"
	"time"

	"github.com/chirpfeed/backend/internal/cache"
	"github.com/chirpfeed/backend/internal/logger"
	"github.com/chirpfeed/backend/internal/metrics"
	"go.uber.org/zap"
)

const viewedCacheName = "viewed_set"

// CachedStore decorates a Store with a per-user Redis set of recently viewed
// post IDs. Seed reads are served from the cache when it's warm, skipping the
// database round trip when a user reconnects within the window. All cache
// failures degrade to the inner store; none are surfaced to callers.
type CachedStore struct {
	inner Store
	redis *cache.RedisClient
	ttl   time.Duration
}

// NewCachedStore wraps inner with a Redis viewed-set cache.
// ttl should match the seed window so cached entries age out with the query.
func NewCachedStore(inner Store, redis *cache.RedisClient, ttl time.Duration) *CachedStore {
	return &CachedStore{inner: inner, redis: redis, ttl: ttl}
}

func viewedSetKey(userID string) string {
	return "views:recent:" + userID
}

// RecentlyViewed implements Store
func (s *CachedStore) RecentlyViewed(ctx context.Context, userID string, since time.Time, limit int) ([]string, error) {
	key := viewedSetKey(userID)

	members, err := s.redis.SMembers(ctx, key)
	if err == nil && len(members) > 0 {
		metrics.Get().CacheHitsTotal.WithLabelValues(viewedCacheName).Inc()
		if len(members) > limit {
			members = members[:limit]
		}
		return members, nil
	}
	if err != nil {
		logger.Log.Warn("Viewed-set cache read failed, falling back to database",
			logger.WithUserID(userID), zap.Error(err))
	}
	metrics.Get().CacheMissesTotal.WithLabelValues(viewedCacheName).Inc()

	postIDs, err := s.inner.RecentlyViewed(ctx, userID, since, limit)
	if err != nil {
		return nil, err
	}

	s.warm(ctx, userID, postIDs)
	return postIDs, nil
}

// RecordViews implements Store. The cache is only updated after the inner
// store accepted the batch, keeping it a strict subset of persisted views.
func (s *CachedStore) RecordViews(ctx context.Context, userID string, postIDs []string) error {
	if err := s.inner.RecordViews(ctx, userID, postIDs); err != nil {
		return err
	}
	s.warm(ctx, userID, postIDs)
	return nil
}

func (s *CachedStore) warm(ctx context.Context, userID string, postIDs []string) {
	if len(postIDs) == 0 {
		return
	}

	key := viewedSetKey(userID)
	members := make([]interface{}, len(postIDs))
	for i, id := range postIDs {
		members[i] = id
	}

	if err := s.redis.SAdd(ctx, key, members...); err != nil {
		logger.Log.Warn("Failed to warm viewed-set cache",
			logger.WithUserID(userID), zap.Error(err))
		return
	}
	if err := s.redis.Expire(ctx, key, s.ttl); err != nil {
		logger.Log.Warn("Failed to set viewed-set cache TTL",
			logger.WithUserID(userID), zap.Error(err))
	}
}
