package handler

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/crewjam/csp"
	"golang.org/x/time/rate"
)

// contentSecurityPolicy locks everything down; the API serves no documents.
var contentSecurityPolicy = csp.Header{
	DefaultSrc: []string{"'none'"},
}.String() + "; frame-ancestors 'none'"

// SecurityHeaders adds security response headers (CSP, X-Frame-Options, etc.)
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("X-XSS-Protection", "0")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		h.Set("Content-Security-Policy", contentSecurityPolicy)
		h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

const rateLimitedMessage = "Too many requests, please try again later."

// RateLimiter provides per-client token-bucket rate limiting.
type RateLimiter struct {
	limit             rate.Limit
	burst             int
	trustedProxyCount int
	idleTTL           time.Duration
	now               func() time.Time

	mu      sync.Mutex
	clients map[string]*clientEntry
}

type clientEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter refilling maxPerMinute tokens per
// minute with the given burst. trustedProxies is the number of reverse proxies
// in front of the server that append to X-Forwarded-For; with 0 the header is
// ignored and the peer address identifies the client.
func NewRateLimiter(maxPerMinute, burst, trustedProxies int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	if trustedProxies < 0 {
		trustedProxies = 0
	}
	return &RateLimiter{
		limit:             rate.Limit(float64(maxPerMinute) / 60),
		burst:             burst,
		trustedProxyCount: trustedProxies,
		idleTTL:           10 * time.Minute,
		now:               time.Now,
		clients:           make(map[string]*clientEntry),
	}
}

// StartJanitor removes idle clients every interval until ctx is cancelled.
func (rl *RateLimiter) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				rl.cleanup()
			}
		}
	}()
}

func (rl *RateLimiter) cleanup() {
	cutoff := rl.now().Add(-rl.idleTTL)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, ent := range rl.clients {
		if ent.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *RateLimiter) limiter(ip string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if ent, ok := rl.clients[ip]; ok {
		ent.lastSeen = now
		return ent.lim
	}
	lim := rate.NewLimiter(rl.limit, rl.burst)
	rl.clients[ip] = &clientEntry{lim: lim, lastSeen: now}
	return lim
}

// Middleware returns an http.Handler that enforces rate limits.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := rl.now()
		lim := rl.limiter(rl.clientIP(r), now)

		res := lim.ReserveN(now, 1)
		if delay := res.DelayFrom(now); !res.OK() || delay > 0 {
			res.CancelAt(now)
			w.Header().Set("Retry-After", retryAfterSeconds(delay, rl.limit))
			writeJSON(w, http.StatusTooManyRequests, messageResponse{Message: rateLimitedMessage})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func retryAfterSeconds(d time.Duration, limit rate.Limit) string {
	if d <= 0 || d == rate.InfDuration {
		d = time.Minute
		if limit > 0 {
			d = time.Duration(float64(time.Second) / float64(limit))
		}
	}
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// clientIP extracts the real client IP, reading from the rightmost trusted
// proxy position in X-Forwarded-For to prevent spoofing.
func (rl *RateLimiter) clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" && rl.trustedProxyCount > 0 {
		parts := strings.Split(xff, ",")
		// The rightmost entry added by our infrastructure is at
		// index len(parts) - trustedProxyCount.
		idx := len(parts) - rl.trustedProxyCount
		if idx >= 0 && idx < len(parts) {
			return strings.TrimSpace(parts[idx])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
