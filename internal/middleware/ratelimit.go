package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed-window counter per key.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string]*window
	limit    int
	length   time.Duration
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type window struct {
	count   int
	resetAt time.Time
}

func NewRateLimiter(limit int, length time.Duration) *RateLimiter {
	return NewRateLimiterWithNow(limit, length, time.Now)
}

func NewRateLimiterWithNow(limit int, length time.Duration, now func() time.Time) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string]*window),
		limit:    limit,
		length:   length,
		now:      now,
		stop:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Stop ends the background sweep of expired windows.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanup() {
	if rl.length <= 0 {
		return
	}

	ticker := time.NewTicker(rl.length)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for key, w := range rl.requests {
		if now.After(w.resetAt) {
			delete(rl.requests, key)
		}
	}
}

// Allow counts one request for key. When the key is over its limit the
// returned duration is the time left until the window resets.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, exists := rl.requests[key]
	if !exists || now.After(w.resetAt) {
		rl.requests[key] = &window{count: 1, resetAt: now.Add(rl.length)}
		return true, 0
	}

	if w.count >= rl.limit {
		return false, w.resetAt.Sub(now)
	}

	w.count++
	return true, 0
}

func RateLimitMiddleware(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retry := rl.Allow(c.ClientIP())
		if !ok {
			secs := int(retry.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded", "code": "RateLimited"})
			return
		}
		c.Next()
	}
}
