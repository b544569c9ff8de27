package server

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/imspidey6989/MediBridge/pkg/monitoring"
	"github.com/imspidey6989/MediBridge/pkg/types"
)

// RateLimiter implements per-client rate limiting using a token bucket
type RateLimiter struct {
	buckets    map[string]*tokenBucket
	bucketsMux sync.RWMutex
	limit      int
	period     time.Duration
}

type tokenBucket struct {
	tokens     int
	lastRefill time.Time
	mutex      sync.Mutex
}

// NewRateLimiter creates a rate limiter allowing limit requests per period
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*tokenBucket),
		limit:   limit,
		period:  period,
	}
}

// Allow checks if a request from the given client is allowed
func (rl *RateLimiter) Allow(clientID string) bool {
	bucket := rl.getBucket(clientID)

	bucket.mutex.Lock()
	defer bucket.mutex.Unlock()

	now := time.Now()
	elapsed := now.Sub(bucket.lastRefill)

	if elapsed >= rl.period {
		bucket.tokens = rl.limit
		bucket.lastRefill = now
	} else {
		tokensToAdd := int(elapsed.Nanoseconds() * int64(rl.limit) / rl.period.Nanoseconds())
		if tokensToAdd > 0 {
			bucket.tokens = min(bucket.tokens+tokensToAdd, rl.limit)
			bucket.lastRefill = now
		}
	}

	if bucket.tokens > 0 {
		bucket.tokens--
		return true
	}
	return false
}

func (rl *RateLimiter) getBucket(clientID string) *tokenBucket {
	rl.bucketsMux.RLock()
	bucket, exists := rl.buckets[clientID]
	rl.bucketsMux.RUnlock()

	if exists {
		return bucket
	}

	rl.bucketsMux.Lock()
	defer rl.bucketsMux.Unlock()

	if bucket, exists := rl.buckets[clientID]; exists {
		return bucket
	}

	bucket = &tokenBucket{
		tokens:     rl.limit,
		lastRefill: time.Now(),
	}
	rl.buckets[clientID] = bucket
	return bucket
}

func (rl *RateLimiter) cleanup() {
	rl.bucketsMux.Lock()
	defer rl.bucketsMux.Unlock()

	cutoff := time.Now().Add(-24 * time.Hour)

	for clientID, bucket := range rl.buckets {
		bucket.mutex.Lock()
		if bucket.lastRefill.Before(cutoff) {
			delete(rl.buckets, clientID)
		}
		bucket.mutex.Unlock()
	}
}

// StartCleanup starts periodic removal of idle buckets. It stops when the
// returned function is called.
func (rl *RateLimiter) StartCleanup(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				rl.cleanup()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}

// Middleware rejects requests over the limit with 429, keyed by client IP
func (rl *RateLimiter) Middleware(name string, metrics *monitoring.MetricsCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			metrics.RecordRateLimitRejection(name)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, types.Response{
				Success: false,
				Message: "Too many requests, please try again later",
			})
			return
		}
		c.Next()
	}
}

// MiddlewareForPrefix applies the limiter only to paths under the prefix
func (rl *RateLimiter) MiddlewareForPrefix(prefix, name string, metrics *monitoring.MetricsCollector) gin.HandlerFunc {
	limit := rl.Middleware(name, metrics)
	return func(c *gin.Context) {
		if !strings.HasPrefix(c.Request.URL.Path, prefix) {
			c.Next()
			return
		}
		limit(c)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
