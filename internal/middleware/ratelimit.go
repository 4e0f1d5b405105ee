package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds the per-client limiter settings. Defaults come from
// internal/config.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// visitorTTL is how long an idle client keeps its token bucket.
const visitorTTL = 10 * time.Minute

type visitor struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// visitorTable maps client IPs to token buckets. Idle entries are evicted
// inline during lookups, so the table needs no background goroutine.
type visitorTable struct {
	cfg RateLimitConfig

	mu        sync.Mutex
	visitors  map[string]*visitor
	nextSweep time.Time
}

func newVisitorTable(cfg RateLimitConfig) *visitorTable {
	return &visitorTable{
		cfg:       cfg,
		visitors:  map[string]*visitor{},
		nextSweep: time.Now().Add(visitorTTL),
	}
}

func (vt *visitorTable) bucketFor(ip string) *rate.Limiter {
	vt.mu.Lock()
	defer vt.mu.Unlock()

	now := time.Now()
	if now.After(vt.nextSweep) {
		for addr, v := range vt.visitors {
			if now.Sub(v.lastSeen) > visitorTTL {
				delete(vt.visitors, addr)
			}
		}
		vt.nextSweep = now.Add(visitorTTL / 2)
	}

	v, ok := vt.visitors[ip]
	if !ok {
		v = &visitor{bucket: rate.NewLimiter(rate.Limit(vt.cfg.RequestsPerSecond), vt.cfg.Burst)}
		vt.visitors[ip] = v
	}
	v.lastSeen = now
	return v.bucket
}

// RateLimiter enforces a token-bucket limit per client IP. Requests beyond
// the bucket get 429 with a Retry-After hint.
func RateLimiter(cfg RateLimitConfig) func(http.Handler) http.Handler {
	table := newVisitorTable(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bucket := table.bucketFor(clientIP(r))
			if !bucket.Allow() {
				w.Header().Set("Retry-After", "1")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"code":    http.StatusTooManyRequests,
					"message": "rate limit exceeded",
				})
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(bucket.Tokens())))
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP uses RemoteAddr only — X-Forwarded-For is untrusted and would
// allow rate-limit bypass via header spoofing.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
