package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleLimiterTTL is how long a client's bucket is kept after its last request.
const idleLimiterTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter hands out one token bucket per client key (the remote IP).
// Buckets idle for longer than idleLimiterTTL are dropped on the next sweep.
type KeyedLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

// NewKeyedLimiter allows rps requests per second per key, with bursts up to
// burst.
func NewKeyedLimiter(rps float64, burst int) *KeyedLimiter {
	if burst < 1 {
		burst = 1
	}
	return &KeyedLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
	}
}

// Allow reports whether key may make a request now.
func (k *KeyedLimiter) Allow(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	if now.Sub(k.lastSweep) > idleLimiterTTL {
		for id, c := range k.clients {
			if now.Sub(c.lastSeen) > idleLimiterTTL {
				delete(k.clients, id)
			}
		}
		k.lastSweep = now
	}

	c, ok := k.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// RateLimit rejects requests from clients that exceeded l, calling limited
// to write the response. Clients are keyed by r.RemoteAddr. chi's RealIP
// rewrites that from X-Forwarded-For, which any client can set, so install
// RealIP ahead of this only behind a trusted proxy.
func RateLimit(l *KeyedLimiter, limited http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(clientKey(r)) {
				w.Header().Set("Retry-After", "1")
				limited(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
