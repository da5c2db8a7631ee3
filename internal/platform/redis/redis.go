// Package redis holds the shared client behind the leaderboard cache.
// Redis is optional in this deployment: a disabled configuration yields
// a nil client and cache consumers must tolerate that.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 3 * time.Second

// Client wraps go-redis client to allow future extensions.
type Client struct {
	*redis.Client
}

// Settings is the deployment-level Redis configuration.
type Settings struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// Open connects per the settings and validates the connection with a
// bounded ping. A disabled configuration returns (nil, nil).
func Open(ctx context.Context, s Settings) (*Client, error) {
	if !s.Enabled {
		return nil, nil
	}
	if s.Addr == "" {
		return nil, fmt.Errorf("empty redis addr")
	}
	c := redis.NewClient(&redis.Options{Addr: s.Addr, Password: s.Password, DB: s.DB})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", s.Addr, err)
	}
	return &Client{Client: c}, nil
}
