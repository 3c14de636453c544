package mw

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// KeyedRateLimiter stores a rate limiter for each client key. Idle limiters
// expire so the set does not grow without bound.
type KeyedRateLimiter struct {
	limiters *cache.Cache
	mu       sync.Mutex
	r        rate.Limit
	b        int
}

// NewKeyedRateLimiter creates a new KeyedRateLimiter.
func NewKeyedRateLimiter(r rate.Limit, b int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		limiters: cache.New(10*time.Minute, 20*time.Minute),
		r:        r,
		b:        b,
	}
}

// GetLimiter returns the rate limiter for a key, creating it on first use.
func (k *KeyedRateLimiter) GetLimiter(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	if l, found := k.limiters.Get(key); found {
		k.limiters.SetDefault(key, l)
		return l.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(k.r, k.b)
	k.limiters.SetDefault(key, limiter)
	return limiter
}

// RateLimiter is a middleware for per-client rate limiting. When ipHeader is
// set and present on the request it identifies the client, otherwise gin's
// ClientIP does.
func RateLimiter(r rate.Limit, b int, ipHeader string) gin.HandlerFunc {
	limiter := NewKeyedRateLimiter(r, b)
	return func(c *gin.Context) {
		key := c.ClientIP()
		if ipHeader != "" {
			if v := c.GetHeader(ipHeader); v != "" {
				key = v
			}
		}
		if !limiter.GetLimiter(key).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
