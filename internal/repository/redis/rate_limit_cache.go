package redis

import (
	"context"
	"fmt"
	"time"

	"vsgifts-api/internal/client"
	"vsgifts-api/internal/util"
)

const (
	rateLimitPrefix   = "rate_limit:"
	ipRateLimitPrefix = "ip_rate_limit:"
)

// RateLimitCache counts requests in fixed windows keyed by client and route.
type RateLimitCache struct {
	client *client.RedisClient
}

func NewRateLimitCache(client *client.RedisClient) *RateLimitCache {
	return &RateLimitCache{client: client}
}

// Result describes one counted request.
type Result struct {
	Allowed   bool
	Count     int
	Remaining int
	ResetIn   time.Duration
}

func (c *RateLimitCache) IncrementCounter(ctx context.Context, key string, ttl time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	count, err := c.client.IncrWithExpire(ctx, rateLimitPrefix+key, ttl)
	if err != nil {
		util.Error("Failed to increment rate limit counter",
			util.String("key", key),
			util.Duration("ttl", ttl),
			util.ErrorField(err))
		return 0, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	util.Debug("Rate limit counter incremented",
		util.String("key", key),
		util.Int64("count", count))

	return int(count), nil
}

// AllowIP counts one request from ip against route and reports whether it
// fits within limit requests per window.
func (c *RateLimitCache) AllowIP(ctx context.Context, ip, route string, limit int, window time.Duration) (Result, error) {
	key := ipRateLimitPrefix + route + ":" + ip

	count, err := c.IncrementCounter(ctx, key, window)
	if err != nil {
		return Result{Allowed: true}, err
	}

	res := Result{
		Allowed:   count <= limit,
		Count:     count,
		Remaining: max(limit-count, 0),
		ResetIn:   window,
	}
	if ttl, err := c.client.TTL(ctx, rateLimitPrefix+key); err == nil && ttl > 0 {
		res.ResetIn = ttl
	}
	return res, nil
}
