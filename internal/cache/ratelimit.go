package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitIPPrefix = "ratelimit:waitlist:ip:"

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// tokenBucketScript refills and takes one token atomically.
// Times are milliseconds so sub-1 rps limits refill smoothly.
// Returns {allowed, retry_after_ms, tokens_left}.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])
	local burst = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])

	local data = redis.call('HMGET', key, 'tokens', 'last_ms')
	local tokens = tonumber(data[1]) or burst
	local last = tonumber(data[2]) or now

	local elapsed = math.max(0, now - last) / 1000
	tokens = math.min(burst, tokens + elapsed * rate)

	local allowed = 0
	local retry_after = 0
	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	else
		retry_after = math.ceil((1 - tokens) / rate * 1000)
	end

	redis.call('HSET', key, 'tokens', tostring(tokens), 'last_ms', now)
	redis.call('PEXPIRE', key, ttl)

	return {allowed, retry_after, math.floor(tokens)}
`)

// CheckIPRateLimit takes one token from the bucket of ip.
// The IP is hashed so raw addresses never reach Redis.
func (c *Cache) CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond float64, burst int) (*RateLimitResult, error) {
	if ratePerSecond <= 0 || burst < 1 {
		return nil, fmt.Errorf("invalid rate limit: rate=%v burst=%d", ratePerSecond, burst)
	}

	now := time.Now()
	result, err := tokenBucketScript.Run(ctx, c.client,
		[]string{rateLimitIPPrefix + hashIP(ip)},
		ratePerSecond, burst, now.UnixMilli(), bucketTTL(ratePerSecond, burst).Milliseconds(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script: %w", err)
	}

	retryAfter := time.Duration(result[1]) * time.Millisecond
	return &RateLimitResult{
		Allowed:    result[0] == 1,
		Remaining:  result[2],
		ResetAt:    now.Add(tokenInterval(ratePerSecond)),
		RetryAfter: retryAfter,
	}, nil
}

// bucketTTL keeps a bucket until it would have refilled completely, plus a
// second of slack. An expired bucket is indistinguishable from a full one.
func bucketTTL(ratePerSecond float64, burst int) time.Duration {
	refill := math.Ceil(float64(burst) / ratePerSecond)
	return time.Duration(refill+1) * time.Second
}

func tokenInterval(ratePerSecond float64) time.Duration {
	return time.Duration(float64(time.Second) / ratePerSecond)
}

// hashIP returns the first 8 bytes of SHA-256(ip) as hex.
func hashIP(ip string) string {
	hash := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(hash[:8])
}
