// file: internal/server/middleware/ratelimit.go
// version: 1.2.0
// guid: 1a2b3c4d-5e6f-7a8b-9c0d-1e2f3a4b5c6d

package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	// clientIdleTTL is how long an IP keeps its bucket without traffic.
	clientIdleTTL = 15 * time.Minute

	// sweepInterval bounds how often the idle sweep walks the client map,
	// so a hot limiter is not paying the full scan on every request.
	sweepInterval = time.Minute
)

// client is one tracked caller.
type client struct {
	bucket *rate.Limiter
	seen   time.Time
}

// IPRateLimiter hands every client IP its own token bucket. Search queries
// fan out from dispatcher tooling that can hammer the API; this keeps one
// noisy client from starving the rest.
type IPRateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	perSecond rate.Limit
	burst     int
	lastSweep time.Time
}

// NewIPRateLimiter builds a limiter refilling requestsPerMinute tokens per
// minute with the given burst. Non-positive settings clamp to 1 instead of
// disabling the limiter; whether to install one at all is the caller's call.
func NewIPRateLimiter(requestsPerMinute, burst int) *IPRateLimiter {
	if requestsPerMinute < 1 {
		requestsPerMinute = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &IPRateLimiter{
		clients:   make(map[string]*client),
		perSecond: rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:     burst,
		lastSweep: time.Now(),
	}
}

// limiterForIP returns the bucket for ip, creating it on first sight and
// opportunistically sweeping idle clients.
func (l *IPRateLimiter) limiterForIP(ip string) *rate.Limiter {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > sweepInterval {
		for key, c := range l.clients {
			if now.Sub(c.seen) > clientIdleTTL {
				delete(l.clients, key)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[ip]
	if !ok {
		c = &client{bucket: rate.NewLimiter(l.perSecond, l.burst)}
		l.clients[ip] = c
	}
	c.seen = now
	return c.bucket
}

// ActiveClients reports how many IPs currently hold a bucket.
func (l *IPRateLimiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Middleware enforces the limit, answering 429 with a Retry-After hint of
// one token's refill time when a client's bucket is empty.
func (l *IPRateLimiter) Middleware() gin.HandlerFunc {
	retryAfter := strconv.Itoa(int(math.Ceil(1.0 / float64(l.perSecond))))
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.limiterForIP(ip).Allow() {
			c.Header("Retry-After", retryAfter)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
