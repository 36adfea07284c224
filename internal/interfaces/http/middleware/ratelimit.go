package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cashledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	rateLimiterCapacity = 100_000
	rateLimiterIdleTTL  = 10 * time.Minute
)

// RateLimiter hands out one token bucket per client key. Idle buckets expire
// and the number of tracked clients is bounded.
type RateLimiter struct {
	mu      sync.Mutex
	buckets *expirable.LRU[string, *rate.Limiter]
	limit   rate.Limit
	burst   int
}

// NewRateLimiter creates a limiter allowing rps requests per second with burst
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = max(1, int(math.Ceil(rps)))
	}
	return &RateLimiter{
		buckets: expirable.NewLRU[string, *rate.Limiter](rateLimiterCapacity, nil, rateLimiterIdleTTL),
		limit:   rate.Limit(rps),
		burst:   burst,
	}
}

func (rl *RateLimiter) bucket(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if l, ok := rl.buckets.Get(key); ok {
		return l
	}
	l := rate.NewLimiter(rl.limit, rl.burst)
	rl.buckets.Add(key, l)
	return l
}

// Allow reports whether key may make a request now
func (rl *RateLimiter) Allow(key string) bool {
	return rl.bucket(key).Allow()
}

// RetryAfter estimates how long key has to wait for its next token
func (rl *RateLimiter) RetryAfter(key string) time.Duration {
	r := rl.bucket(key).Reserve()
	defer r.Cancel()
	return r.Delay()
}

// RateLimit limits by client IP
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return RateLimitByKey(limiter, func(c *gin.Context) string { return c.ClientIP() })
}

// RateLimitByKey limits by a custom key, such as the authenticated user
func RateLimitByKey(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)
		if limiter.Allow(key) {
			c.Next()
			return
		}

		wait := limiter.RetryAfter(key)
		c.Header("Retry-After", strconv.Itoa(max(1, int(math.Ceil(wait.Seconds())))))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse(
			dto.ErrCodeRateLimited,
			"Too many requests, please retry later",
			requestIDOf(c),
		))
	}
}

// CallerKey keys rate limits by authenticated user, falling back to client IP
func CallerKey(c *gin.Context) string {
	if scope, ok := GetScope(c); ok {
		return "user:" + scope.UserID.String()
	}
	return "ip:" + c.ClientIP()
}
