// Package redis caches leaderboard pages. The leaderboard is the hottest
// read path and tolerates a few seconds of staleness, so pages are kept
// under a short TTL and dropped whenever a spend is credited.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	rplatform "gift-roulette-backend/internal/platform/redis"
	"gift-roulette-backend/internal/storage/sqlite"
)

const keyPrefix = "leaderboard:"

// LeaderboardCache provides Redis-based caching for leaderboard pages.
type LeaderboardCache struct {
	client *rplatform.Client
	ttl    time.Duration
}

func NewLeaderboardCache(client *rplatform.Client, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{client: client, ttl: ttl}
}

func pageKey(limit, offset int) string {
	return fmt.Sprintf("%s%d:%d", keyPrefix, limit, offset)
}

// Get returns the cached page, or (nil, nil) on a miss.
func (c *LeaderboardCache) Get(ctx context.Context, limit, offset int) ([]sqlite.LeaderboardEntry, error) {
	b, err := c.client.Get(ctx, pageKey(limit, offset)).Bytes()
	if errors.Is(err, redis.Nil) {
		// промах кэша
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []sqlite.LeaderboardEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Set stores a page under the configured TTL.
func (c *LeaderboardCache) Set(ctx context.Context, limit, offset int, entries []sqlite.LeaderboardEntry) error {
	b, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, pageKey(limit, offset), b, c.ttl).Err()
}

// Invalidate drops every cached page. Called after each spend credit so
// rankings never serve a stale order past the TTL window.
func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
