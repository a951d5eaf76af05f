package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the limiter map; idle limiters are pruned past it.
const maxTrackedClients = 10000

// RateLimiter throttles proctoring event endpoints per client
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*rate.Limiter
}

// NewRateLimiter allows perSecond events with the given burst per client.
// perSecond <= 0 disables throttling.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		clients: make(map[string]*rate.Limiter),
	}
}

func (rl *RateLimiter) Enabled() bool {
	return rl != nil && rl.limit > 0
}

// Allow consumes one event for key
func (rl *RateLimiter) Allow(key string) bool {
	if !rl.Enabled() {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.clients[key]
	if !ok {
		if len(rl.clients) >= maxTrackedClients {
			rl.pruneLocked()
		}
		limiter = rate.NewLimiter(rl.limit, rl.burst)
		rl.clients[key] = limiter
	}
	return limiter.Allow()
}

// pruneLocked drops limiters that have refilled completely
func (rl *RateLimiter) pruneLocked() {
	for key, limiter := range rl.clients {
		if limiter.Tokens() >= float64(rl.burst) {
			delete(rl.clients, key)
		}
	}
}

// Middleware keys on the authenticated user, falling back to the client IP
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if identity := currentIdentity(c); identity != nil {
			key = identity.UserID
		}
		if !rl.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Message: "Too many events, slow down",
			})
			return
		}
		c.Next()
	}
}
