package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// submissionLockPrefix is the Redis key prefix for waitlist submission locks.
const submissionLockPrefix = "lock:waitlist:"

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// AcquireSubmissionLock takes a short-lived lock on key with SET NX PX.
// It returns acquired=false when another submission holds the lock.
// The returned release function is safe to call more than once.
func (c *Cache) AcquireSubmissionLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token, err := randomToken()
	if err != nil {
		return nil, false, err
	}

	redisKey := submissionLockPrefix + hashIP(key)
	ok, err := c.client.SetNX(ctx, redisKey, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire submission lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, c.client, []string{redisKey}, token).Err()
	}
	return release, true, nil
}

func randomToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate lock token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
