package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abhisek/rutealo/internal/evaluation"
	"github.com/abhisek/rutealo/internal/logger"
)

// DefaultProfileTTL bounds how long a cached profile is served.
const DefaultProfileTTL = 10 * time.Minute

// ParseCacheURL validates a Redis connection URL.
func ParseCacheURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	return opts, nil
}

// OpenCache connects to Redis and verifies the connection.
func OpenCache(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := ParseCacheURL(url)
	if err != nil {
		return nil, err
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging cache: %w", err)
	}
	return client, nil
}

// CachedProfiles is a read-through Redis cache in front of a profile store.
// Cache errors never fail a call; the underlying store stays authoritative.
type CachedProfiles struct {
	next   evaluation.ProfileStore
	client redis.Cmdable
	ttl    time.Duration
	log    *logger.Logger
}

var _ evaluation.ProfileStore = (*CachedProfiles)(nil)

// NewCachedProfiles wraps next. A non-positive ttl uses DefaultProfileTTL.
func NewCachedProfiles(next evaluation.ProfileStore, client redis.Cmdable, ttl time.Duration, log *logger.Logger) *CachedProfiles {
	if ttl <= 0 {
		ttl = DefaultProfileTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CachedProfiles{next: next, client: client, ttl: ttl, log: log}
}

func profileCacheKey(learnerID string) string {
	return "rutealo:profile:" + learnerID
}

// SaveProfile writes through and drops the cached copy.
func (c *CachedProfiles) SaveProfile(ctx context.Context, p *evaluation.MasteryProfile) error {
	if err := c.next.SaveProfile(ctx, p); err != nil {
		return err
	}
	c.Invalidate(ctx, p.LearnerID)
	return nil
}

// LatestProfile serves from cache, loading and filling on a miss. Absent
// profiles are not cached.
func (c *CachedProfiles) LatestProfile(ctx context.Context, learnerID string) (*evaluation.MasteryProfile, error) {
	key := profileCacheKey(learnerID)
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p evaluation.MasteryProfile
		if err := json.Unmarshal(raw, &p); err == nil {
			return &p, nil
		}
		c.log.Warn("discarding corrupt cached profile", "learner_id", learnerID)
	case !errors.Is(err, redis.Nil):
		c.log.Warn("profile cache read failed", "learner_id", learnerID, "error", err)
	}

	p, err := c.next.LatestProfile(ctx, learnerID)
	if err != nil || p == nil {
		return p, err
	}
	if b, err := json.Marshal(p); err == nil {
		if err := c.client.Set(ctx, key, b, c.ttl).Err(); err != nil {
			c.log.Warn("profile cache write failed", "learner_id", learnerID, "error", err)
		}
	}
	return p, nil
}

// Invalidate drops the cached profile of learnerID.
func (c *CachedProfiles) Invalidate(ctx context.Context, learnerID string) {
	if err := c.client.Del(ctx, profileCacheKey(learnerID)).Err(); err != nil {
		c.log.Warn("profile cache invalidation failed", "learner_id", learnerID, "error", err)
	}
}
