package cache

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// localSweepInterval is how often idle buckets and expired locks are pruned.
const localSweepInterval = time.Minute

// Local provides in-process rate limiting and submission locks.
// It backs single-instance deployments that run without Redis.
type Local struct {
	mu        sync.Mutex
	limiters  map[string]*localBucket
	locks     map[string]time.Time
	lastSweep time.Time
	now       func() time.Time
}

// localBucket is one IP's limiter. It is dropped once idle for longer than
// bucketTTL, when it would have refilled anyway.
type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	ttl      time.Duration
}

// NewLocal creates an empty Local cache.
func NewLocal() *Local {
	return &Local{
		limiters:  make(map[string]*localBucket),
		locks:     make(map[string]time.Time),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// CheckIPRateLimit applies a token bucket per IP.
func (l *Local) CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond float64, burst int) (*RateLimitResult, error) {
	if ratePerSecond <= 0 || burst < 1 {
		return nil, fmt.Errorf("invalid rate limit: rate=%v burst=%d", ratePerSecond, burst)
	}

	now := l.now()
	limiter := l.limiter(hashIP(ip), ratePerSecond, burst, now)

	reservation := limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)
		return &RateLimitResult{
			Allowed:    false,
			ResetAt:    now.Add(delay),
			RetryAfter: time.Duration(math.Ceil(delay.Seconds())) * time.Second,
		}, nil
	}

	return &RateLimitResult{
		Allowed:   true,
		Remaining: int64(limiter.TokensAt(now)),
		ResetAt:   now.Add(time.Duration(float64(time.Second) / ratePerSecond)),
	}, nil
}

func (l *Local) limiter(key string, ratePerSecond float64, burst int, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(now)

	limit := rate.Limit(ratePerSecond)
	bucket, ok := l.limiters[key]
	if !ok {
		bucket = &localBucket{limiter: rate.NewLimiter(limit, burst)}
		l.limiters[key] = bucket
	} else if bucket.limiter.Limit() != limit || bucket.limiter.Burst() != burst {
		bucket.limiter.SetLimitAt(now, limit)
		bucket.limiter.SetBurstAt(now, burst)
	}
	bucket.lastSeen = now
	bucket.ttl = bucketTTL(ratePerSecond, burst)
	return bucket.limiter
}

// sweepLocked drops idle buckets and expired locks at most once per
// localSweepInterval. l.mu must be held.
func (l *Local) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < localSweepInterval {
		return
	}
	l.lastSweep = now

	for key, bucket := range l.limiters {
		if now.Sub(bucket.lastSeen) > bucket.ttl {
			delete(l.limiters, key)
		}
	}
	for key, expires := range l.locks {
		if !now.Before(expires) {
			delete(l.locks, key)
		}
	}
}

// AcquireSubmissionLock takes an in-process lock on key that expires after ttl.
func (l *Local) AcquireSubmissionLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweepLocked(now)
	if expires, held := l.locks[key]; held && now.Before(expires) {
		return nil, false, nil
	}
	expires := now.Add(ttl)
	l.locks[key] = expires

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if l.locks[key].Equal(expires) {
				delete(l.locks, key)
			}
		})
	}
	return release, true, nil
}

// Ping always succeeds.
func (l *Local) Ping(ctx context.Context) error {
	return nil
}
