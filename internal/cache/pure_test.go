package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestHashIP_Deterministic(t *testing.T) {
	t.Parallel()

	ip := "192.168.1.100"

	hash1 := hashIP(ip)
	hash2 := hashIP(ip)

	if hash1 != hash2 {
		t.Error("Same IP should produce same hash")
	}
}

func TestHashIP_Length(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ip   string
	}{
		{"IPv4", "192.168.1.1"},
		{"IPv4 localhost", "127.0.0.1"},
		{"IPv6 localhost", "::1"},
		{"IPv6 full", "2001:0db8:85a3:0000:0000:8a2e:0370:7334"},
		{"empty", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			hash := hashIP(tt.ip)
			// hashIP uses first 8 bytes of SHA256, encoded as 16 hex chars
			if len(hash) != 16 {
				t.Errorf("hashIP(%q) length = %d, want 16", tt.ip, len(hash))
			}
		})
	}
}

func TestHashIP_Different(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ip1  string
		ip2  string
	}{
		{"different IPv4", "192.168.1.1", "192.168.1.2"},
		{"IPv4 vs IPv6", "127.0.0.1", "::1"},
		{"public vs private", "8.8.8.8", "192.168.1.1"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if hashIP(tt.ip1) == hashIP(tt.ip2) {
				t.Errorf("Different IPs should produce different hashes: %q and %q", tt.ip1, tt.ip2)
			}
		})
	}
}

func TestRandomToken_Unique(t *testing.T) {
	t.Parallel()

	a, err := randomToken()
	if err != nil {
		t.Fatalf("randomToken: %v", err)
	}
	b, _ := randomToken()
	if a == b || len(a) != 32 {
		t.Errorf("tokens should be unique 32-char hex: %q %q", a, b)
	}
}

func TestLocal_RateLimitBurstThenDeny(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	local := NewLocal()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	local.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		res, err := local.CheckIPRateLimit(ctx, "10.0.0.1", 1, 3)
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("request %d within burst should be allowed", i)
		}
	}

	res, err := local.CheckIPRateLimit(ctx, "10.0.0.1", 1, 3)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.Allowed {
		t.Fatal("request beyond burst should be denied")
	}
	if res.RetryAfter != time.Second {
		t.Errorf("RetryAfter = %v, want 1s", res.RetryAfter)
	}

	other, _ := local.CheckIPRateLimit(ctx, "10.0.0.2", 1, 3)
	if !other.Allowed {
		t.Error("other IPs should have their own bucket")
	}

	now = now.Add(time.Second)
	res, _ = local.CheckIPRateLimit(ctx, "10.0.0.1", 1, 3)
	if !res.Allowed {
		t.Error("bucket should refill after one second")
	}
}

func TestLocal_PrunesIdleBuckets(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	local := NewLocal()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	local.now = func() time.Time { return now }
	local.lastSweep = now

	for i := 0; i < 1000; i++ {
		ip := fmt.Sprintf("198.51.%d.%d", i/256, i%256)
		if _, err := local.CheckIPRateLimit(ctx, ip, 0.2, 5); err != nil {
			t.Fatalf("check %s: %v", ip, err)
		}
	}
	if got := len(local.limiters); got != 1000 {
		t.Fatalf("buckets = %d, want 1000", got)
	}

	// Touched inside its TTL (26s for 0.2/5), so it survives the sweep
	now = now.Add(50 * time.Second)
	if _, err := local.CheckIPRateLimit(ctx, "198.51.0.1", 0.2, 5); err != nil {
		t.Fatalf("check: %v", err)
	}
	if got := len(local.limiters); got != 1000 {
		t.Fatalf("sweep ran early: buckets = %d", got)
	}

	now = now.Add(11 * time.Second)
	if _, err := local.CheckIPRateLimit(ctx, "203.0.113.9", 0.2, 5); err != nil {
		t.Fatalf("check: %v", err)
	}
	if got := len(local.limiters); got != 2 {
		t.Errorf("buckets after sweep = %d, want 2", got)
	}
	if _, ok := local.limiters[hashIP("198.51.0.1")]; !ok {
		t.Error("recently used bucket was pruned")
	}
}

func TestLocal_PrunesExpiredLocks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	local := NewLocal()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	local.now = func() time.Time { return now }
	local.lastSweep = now

	for i := 0; i < 100; i++ {
		if _, ok, _ := local.AcquireSubmissionLock(ctx, fmt.Sprintf("lead%d@example.com", i), time.Second); !ok {
			t.Fatalf("acquire %d failed", i)
		}
	}

	now = now.Add(2 * localSweepInterval)
	release, ok, _ := local.AcquireSubmissionLock(ctx, "fresh@example.com", time.Second)
	if !ok {
		t.Fatal("acquire failed")
	}
	defer release()
	if got := len(local.locks); got != 1 {
		t.Errorf("locks after sweep = %d, want 1", got)
	}
}

func TestLocal_SubmissionLock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	local := NewLocal()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	local.now = func() time.Time { return now }

	release, ok, err := local.AcquireSubmissionLock(ctx, "a@example.com", 10*time.Second)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}

	if _, ok, _ := local.AcquireSubmissionLock(ctx, "a@example.com", 10*time.Second); ok {
		t.Fatal("second acquire should fail while held")
	}
	if _, ok, _ := local.AcquireSubmissionLock(ctx, "b@example.com", 10*time.Second); !ok {
		t.Fatal("different key should be acquirable")
	}

	release()
	release()

	if _, ok, _ := local.AcquireSubmissionLock(ctx, "a@example.com", 10*time.Second); !ok {
		t.Fatal("acquire after release should succeed")
	}
}

func TestLocal_SubmissionLockExpires(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	local := NewLocal()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	local.now = func() time.Time { return now }

	staleRelease, _, _ := local.AcquireSubmissionLock(ctx, "a@example.com", time.Second)
	now = now.Add(2 * time.Second)

	release, ok, _ := local.AcquireSubmissionLock(ctx, "a@example.com", time.Second)
	if !ok {
		t.Fatal("expired lock should be reacquirable")
	}

	// A stale holder must not release the new lock
	staleRelease()
	if _, ok, _ := local.AcquireSubmissionLock(ctx, "a@example.com", time.Second); ok {
		t.Fatal("stale release removed the current lock")
	}
	release()
}

func TestLocal_ConcurrentLock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	local := NewLocal()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		acquired int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, _ := local.AcquireSubmissionLock(ctx, "same@example.com", time.Minute); ok {
				mu.Lock()
				acquired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if acquired != 1 {
		t.Errorf("acquired = %d, want exactly 1", acquired)
	}
}

func TestBucketTTL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		rate  float64
		burst int
		want  time.Duration
	}{
		{"waitlist default", 0.2, 5, 26 * time.Second},
		{"one per second", 1, 3, 4 * time.Second},
		{"slow bucket outlives a minute", 0.01, 2, 201 * time.Second},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := bucketTTL(tt.rate, tt.burst); got != tt.want {
				t.Errorf("bucketTTL(%v, %d) = %v, want %v", tt.rate, tt.burst, got, tt.want)
			}
		})
	}
}

func TestCheckIPRateLimit_RejectsInvalidLimits(t *testing.T) {
	t.Parallel()

	c := &Cache{}
	if _, err := c.CheckIPRateLimit(context.Background(), "10.0.0.1", 0, 5); err == nil {
		t.Error("zero rate should be rejected before reaching Redis")
	}
	if _, err := c.CheckIPRateLimit(context.Background(), "10.0.0.1", 1, 0); err == nil {
		t.Error("zero burst should be rejected before reaching Redis")
	}

	local := NewLocal()
	if _, err := local.CheckIPRateLimit(context.Background(), "10.0.0.1", 0, 5); err == nil {
		t.Error("zero rate should be rejected by the local limiter")
	}
	if len(local.limiters) != 0 {
		t.Error("rejected limits must not create a bucket")
	}
}

func TestPoolConfig_Apply(t *testing.T) {
	t.Parallel()

	opt, err := redis.ParseURL("redis://localhost:6379/0")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	PoolConfig{PoolSize: 25, MinIdleConns: 3, PoolTimeout: 2 * time.Second}.apply(opt)
	if opt.PoolSize != 25 || opt.MinIdleConns != 3 || opt.PoolTimeout != 2*time.Second {
		t.Errorf("options = size %d idle %d timeout %v", opt.PoolSize, opt.MinIdleConns, opt.PoolTimeout)
	}

	untouched, _ := redis.ParseURL("redis://localhost:6379/0")
	PoolConfig{}.apply(untouched)
	if untouched.PoolSize != 0 || untouched.MinIdleConns != 0 {
		t.Error("zero PoolConfig should leave go-redis defaults in place")
	}
}
