package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/guaupro/landing/internal/cache"
)

// IPLimiter applies a token bucket per client IP.
type IPLimiter interface {
	CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond float64, burst int) (*cache.RateLimitResult, error)
}

// RateLimitConfig holds configuration for the IP rate limit middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter IPLimiter
	Enabled bool
	RPS     float64
	Burst   int
}

// RateLimitIP returns middleware that rate limits requests per client IP.
// Limiter errors fail open.
func RateLimitIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled || cfg.Limiter == nil || cfg.RPS <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := getClientIP(r)

			result, err := cfg.Limiter.CheckIPRateLimit(r.Context(), ip, cfg.RPS, cfg.Burst)
			if err != nil {
				cfg.Logger.Error("IP rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, cfg.Burst, result.Remaining, result.ResetAt)

			if !result.Allowed {
				retryAfter := retryAfterSeconds(result.RetryAfter)
				cfg.Logger.Warn("rate limit exceeded",
					slog.String("ip", ip),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int("retry_after_seconds", retryAfter),
					slog.String("request_id", GetRequestID(r.Context())),
				)

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED",
					fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", retryAfter))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// retryAfterSeconds rounds up so clients never retry early. Minimum 1.
func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

func setRateLimitHeaders(w http.ResponseWriter, limit int, remaining int64, resetAt time.Time) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

// getClientIP returns the host part of RemoteAddr. Proxy headers are
// resolved upstream by chi's RealIP middleware.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
