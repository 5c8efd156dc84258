package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/foodrescue/foodrescue/internal/apierror"
)

// RateLimiter is a sliding-window counter. Keys combine a route scope and the
// client IP, so one limiter can back several routes without them sharing a budget.
type RateLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		hits:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
	go rl.cleanupLoop()
	return rl
}

// AuthRateLimiter allows 10 login or registration attempts per 15 minutes.
func AuthRateLimiter() *RateLimiter {
	return NewRateLimiter(10, 15*time.Minute)
}

// ClaimRateLimiter allows 30 claim attempts per minute.
func ClaimRateLimiter() *RateLimiter {
	return NewRateLimiter(30, time.Minute)
}

// DigestRateLimiter allows 5 manual digest runs per hour. Each run mails every user.
func DigestRateLimiter() *RateLimiter {
	return NewRateLimiter(5, time.Hour)
}

// Allow records a hit for key. When the window is full it reports false and
// how long until the oldest hit leaves the window.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	hits := inWindow(rl.hits[key], now.Add(-rl.window))
	if len(hits) >= rl.limit {
		rl.hits[key] = hits
		return false, hits[0].Add(rl.window).Sub(now)
	}

	rl.hits[key] = append(hits, now)
	return true, 0
}

// inWindow drops hits at or before cutoff. Hits are appended in time order,
// so the survivors are always a suffix.
func inWindow(hits []time.Time, cutoff time.Time) []time.Time {
	i := sort.Search(len(hits), func(i int) bool { return hits[i].After(cutoff) })
	return hits[i:]
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for range ticker.C {
		rl.cleanup()
	}
}

// cleanup forgets keys with no hits left in the window.
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)
	for key, hits := range rl.hits {
		if len(inWindow(hits, cutoff)) == 0 {
			delete(rl.hits, key)
		}
	}
}

// RateLimit limits a route per client IP under the given scope. Rejections get
// 429 with Retry-After and are counted in foodrescue_rate_limited_total.
func RateLimit(scope string, limiter *RateLimiter) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ip := getClientIP(r)

			ok, retryAfter := limiter.Allow(scope + "|" + ip)
			if !ok {
				rateLimitedTotal.WithLabelValues(scope).Inc()
				slog.Warn("rate limit exceeded",
					"scope", scope,
					"ip", ip,
					"retry_after", retryAfter,
				)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				apierror.TooManyRequests(w, "too many requests, please try again later")
				return
			}

			next(w, r)
		}
	}
}

// getClientIP prefers proxy headers, then the connection's remote address.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
