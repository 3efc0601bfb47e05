package httpx

import (
	"context"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const redisLimiterTimeout = 250 * time.Millisecond

// redisRateLimiter shares windows across API instances. The increment, the
// first-hit expiry and the TTL read go in one MULTI so a window can never be
// left without an expiry.
type redisRateLimiter struct {
	client *redis.Client
	logger *slog.Logger
	prefix string
}

// NewRedisRateLimiter builds a limiter on a shared client. The caller owns
// client; Close leaves it open. ExpireNX needs Redis 7 or later.
func NewRedisRateLimiter(client *redis.Client, logger *slog.Logger) RateLimiter {
	return &redisRateLimiter{client: client, logger: logger, prefix: "cornerstone:ratelimit:"}
}

func (rl *redisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) RateDecision {
	if window <= 0 {
		window = time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, redisLimiterTimeout)
	defer cancel()

	k := rl.prefix + key
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := rl.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, window)
		ttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		rl.logger.Warn("rate limiter unavailable, allowing request", "key", key, "error", err)
		return RateDecision{Allowed: true}
	}

	remaining := ttl.Val()
	if remaining <= 0 {
		remaining = window
	}
	count := int(incr.Val())
	return RateDecision{Allowed: count <= limit, Count: count, Reset: time.Now().Add(remaining)}
}

func (rl *redisRateLimiter) Close() {}
