package middleware

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const rateLimitKeyPrefix = "ratelimit:"

var rateLimitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

local windowStart = now - window

redis.call('ZREMRANGEBYSCORE', key, '-inf', windowStart)

local count = redis.call('ZCARD', key)

if count >= limit then
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    local resetAt = 0
    if #oldest >= 2 then
        resetAt = tonumber(oldest[2]) + window
    else
        resetAt = now + window
    end
    return {0, 0, resetAt}
end

redis.call('ZADD', key, now, now .. '-' .. math.random())
redis.call('PEXPIRE', key, window + 10000)

return {1, limit - count - 1, now + window}
`)

// RedisLimiter shares windows across instances. When redis fails the check is
// answered by the fallback limiter instead of opening the gate.
type RedisLimiter struct {
	client   redis.Scripter
	fallback Limiter
}

func NewRedisLimiter(client redis.Scripter, fallback Limiter) *RedisLimiter {
	if fallback == nil {
		fallback = NewMemoryLimiter()
	}
	return &RedisLimiter{client: client, fallback: fallback}
}

func (rl *RedisLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (bool, int, time.Time) {
	now := time.Now().UnixMilli()

	result, err := rateLimitScript.Run(ctx, rl.client, []string{rateLimitKeyPrefix + key}, now, window.Milliseconds(), limit).Int64Slice()
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis rate limit check failed, using in-memory limiter")
		return rl.fallback.Check(ctx, key, limit, window)
	}
	if len(result) != 3 {
		log.Warn().Str("key", key).Msg("unexpected redis rate limit result, using in-memory limiter")
		return rl.fallback.Check(ctx, key, limit, window)
	}

	return result[0] == 1, int(result[1]), time.UnixMilli(result[2])
}
