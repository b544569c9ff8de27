package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/imspidey6989/MediBridge/pkg/monitoring"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	assert.True(t, rl.Allow("client-1"))
	assert.True(t, rl.Allow("client-1"))
	assert.True(t, rl.Allow("client-1"))
	assert.False(t, rl.Allow("client-1"))

	// Separate clients get separate buckets
	assert.True(t, rl.Allow("client-2"))
}

func TestRateLimiterRefillsAfterPeriod(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Millisecond)

	assert.True(t, rl.Allow("client-1"))
	assert.False(t, rl.Allow("client-1"))

	time.Sleep(15 * time.Millisecond)
	assert.True(t, rl.Allow("client-1"))
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewRateLimiter(2, time.Minute)
	metrics := monitoring.NewMetricsCollector("test-server")

	router := gin.New()
	router.GET("/limited", rl.Middleware("general", metrics), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/limited", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/limited", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimitMiddlewareForPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewRateLimiter(1, time.Minute)
	metrics := monitoring.NewMetricsCollector("test-server")

	router := gin.New()
	router.Use(rl.MiddlewareForPrefix("/api/auth", "auth", metrics))
	router.GET("/api/auth/google", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/other", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/google", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/google", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// Paths outside the prefix are never limited by this limiter
	for i := 0; i < 5; i++ {
		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/other", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
