package mw

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"dorm-occupancy-backend/internal/api/code"
)

const (
	// limiterIdleTTL drops buckets of clients that have gone quiet.
	limiterIdleTTL = 10 * time.Minute
	// sharedIPFactor is how many actors' worth of traffic one address may send in total.
	sharedIPFactor = 4
)

// KeyedRateLimiter stores a rate limiter for each client key. Buckets idle for longer
// than the configured TTL are evicted.
type KeyedRateLimiter struct {
	keys *cache.Cache
	ttl  time.Duration
	r    rate.Limit
	b    int
}

// NewKeyedRateLimiter creates a new KeyedRateLimiter.
func NewKeyedRateLimiter(r rate.Limit, b int, idle time.Duration) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		keys: cache.New(idle, idle),
		ttl:  idle,
		r:    r,
		b:    b,
	}
}

// GetLimiter returns the rate limiter for key and extends its lifetime.
func (k *KeyedRateLimiter) GetLimiter(key string) *rate.Limiter {
	if v, found := k.keys.Get(key); found {
		limiter := v.(*rate.Limiter)
		k.keys.Set(key, limiter, k.ttl)
		return limiter
	}

	limiter := rate.NewLimiter(k.r, k.b)
	if err := k.keys.Add(key, limiter, k.ttl); err != nil {
		// Another request created it first.
		if v, found := k.keys.Get(key); found {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

// Len is the number of live buckets.
func (k *KeyedRateLimiter) Len() int {
	return k.keys.ItemCount()
}

// actorKey separates actors sharing one address; the header alone is client-controlled.
func actorKey(c *gin.Context) string {
	return c.ClientIP() + "|" + c.GetHeader("X-Actor-ID")
}

// RateLimiter is a middleware for per-client rate limiting. Each actor on an address gets
// r/b, and the address as a whole is capped at sharedIPFactor times that, so rotating
// X-Actor-ID does not lift the limit.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	perIP := NewKeyedRateLimiter(r*sharedIPFactor, b*sharedIPFactor, limiterIdleTTL)
	perActor := NewKeyedRateLimiter(r, b, limiterIdleTTL)
	return func(c *gin.Context) {
		if !perIP.GetLimiter(c.ClientIP()).Allow() || !perActor.GetLimiter(actorKey(c)).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    code.ErrTooManyRequests,
				"message": code.GetMessage(code.ErrTooManyRequests),
			})
			return
		}
		c.Next()
	}
}
