package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Dan9191/adboard/internal/service"
	"golang.org/x/time/rate"
)

// ClientIP returns the caller's address. Forwarding headers are honored
// only when the direct peer is one of the trusted proxies; the rightmost
// X-Forwarded-For hop that is not itself a trusted proxy is the client.
func ClientIP(r *http.Request, trusted []netip.Prefix) string {
	peer := remoteAddr(r)
	if !peer.IsValid() {
		return r.RemoteAddr
	}
	if !isTrusted(peer, trusted) {
		return peer.String()
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			if !isTrusted(hop, trusted) {
				return hop.String()
			}
		}
	}
	if xri, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return xri.String()
	}
	return peer.String()
}

func remoteAddr(r *http.Request) netip.Addr {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}
	}
	return addr.Unmap()
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	if !addr.IsValid() {
		return false
	}
	for _, p := range trusted {
		if p.Contains(addr.Unmap()) {
			return true
		}
	}
	return false
}

// RateLimiter hands out one token bucket per client IP
type RateLimiter struct {
	limit       rate.Limit
	burst       int
	perMinute   int
	trusted     []netip.Prefix
	limiters    sync.Map // map[string]*rate.Limiter
	mu          sync.Mutex
	lastCleanup time.Time
}

// NewRateLimiter allows perMinute requests per client with the given burst.
// A non-positive perMinute disables limiting. Clients are keyed by ClientIP
// with the given trusted proxies.
func NewRateLimiter(perMinute, burst int, trusted []netip.Prefix) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:       rate.Limit(float64(perMinute) / time.Minute.Seconds()),
		burst:       burst,
		perMinute:   perMinute,
		trusted:     trusted,
		lastCleanup: time.Now(),
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if l, ok := rl.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}
	actual, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.limit, rl.burst))
	rl.maybeCleanup()
	return actual.(*rate.Limiter)
}

// maybeCleanup drops idle limiters; a full bucket means no recent traffic
func (rl *RateLimiter) maybeCleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if time.Since(rl.lastCleanup) < 5*time.Minute {
		return
	}
	rl.lastCleanup = time.Now()
	rl.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(rl.burst) {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// Middleware answers 429 once a client exceeds its budget
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if rl.perMinute <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ClientIP(r, rl.trusted)
		l := rl.limiter(key)
		if !l.Allow() {
			reservation := l.Reserve()
			retryAfter := max(int(reservation.Delay().Seconds()), 1)
			reservation.Cancel()

			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.perMinute))
			Logger(r.Context()).WithField("key", key).Warn("Rate limit exceeded")
			WriteError(w, http.StatusTooManyRequests, service.MsgTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
