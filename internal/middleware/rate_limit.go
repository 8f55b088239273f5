// internal/middleware/rate_limit.go
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cardmeet/cardmeet-backend/internal/utils"
)

// clients idle longer than this get their bucket dropped.
const clientIdleTimeout = 3 * time.Minute

type clientBucket struct {
	bucket *rate.Limiter
	seen   time.Time
}

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
	limit   rate.Limit
	burst   int
}

func NewIPRateLimiter(limit rate.Limit, burst int) *IPRateLimiter {
	rl := &IPRateLimiter{
		clients: make(map[string]*clientBucket),
		limit:   limit,
		burst:   burst,
	}
	go rl.janitor()
	return rl
}

func (rl *IPRateLimiter) janitor() {
	ticker := time.NewTicker(time.Minute)
	for range ticker.C {
		rl.mu.Lock()
		for ip, client := range rl.clients {
			if time.Since(client.seen) > clientIdleTimeout {
				delete(rl.clients, ip)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *IPRateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	client, ok := rl.clients[ip]
	if !ok {
		client = &clientBucket{bucket: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[ip] = client
	}
	client.seen = time.Now()
	rl.mu.Unlock()

	return client.bucket.Allow()
}

func (rl *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			utils.ErrorResponse(c, http.StatusTooManyRequests,
				"RATE_LIMITED", "Too many requests, slow down", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

var (
	generalLimiter = NewIPRateLimiter(rate.Every(time.Second), 10) // 10 requests per second
	authLimiter    = NewIPRateLimiter(rate.Every(time.Minute), 5)  // 5 auth attempts per minute
	scanLimiter    = NewIPRateLimiter(rate.Every(time.Minute), 10) // 10 card scans per minute
)

func GeneralRateLimit() gin.HandlerFunc {
	return generalLimiter.Middleware()
}

func AuthRateLimit() gin.HandlerFunc {
	return authLimiter.Middleware()
}

func ScanRateLimit() gin.HandlerFunc {
	return scanLimiter.Middleware()
}
