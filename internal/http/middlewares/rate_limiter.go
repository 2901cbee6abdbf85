package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a per-client-IP token bucket refilled at rate tokens per second.
type RateLimiter struct {
	mu       sync.Mutex
	rate     float64
	burst    float64
	tokens   map[string]float64
	lastTime map[string]time.Time
	now      func() time.Time
}

func NewRateLimiter(rate, burst int) *RateLimiter {
	return &RateLimiter{
		rate:     float64(rate),
		burst:    float64(burst),
		tokens:   make(map[string]float64),
		lastTime: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if _, exists := rl.tokens[key]; !exists {
		rl.tokens[key] = rl.burst
		rl.lastTime[key] = now
	}

	elapsed := now.Sub(rl.lastTime[key])
	rl.lastTime[key] = now

	rl.tokens[key] += elapsed.Seconds() * rl.rate
	if rl.tokens[key] > rl.burst {
		rl.tokens[key] = rl.burst
	}

	if rl.tokens[key] < 1 {
		return false
	}
	rl.tokens[key]--
	return true
}

func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
