// Package server assembles the HTTP API: middleware chain, route groups and
// server lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/imspidey6989/MediBridge/internal/auth"
	"github.com/imspidey6989/MediBridge/internal/dashboard"
	"github.com/imspidey6989/MediBridge/internal/records"
	"github.com/imspidey6989/MediBridge/internal/verification"
	"github.com/imspidey6989/MediBridge/pkg/config"
	"github.com/imspidey6989/MediBridge/pkg/logger"
	"github.com/imspidey6989/MediBridge/pkg/monitoring"
	"github.com/imspidey6989/MediBridge/pkg/types"
)

const apiVersion = "1.0.0"

// Handlers groups the route registrars the server mounts under /api
type Handlers struct {
	Auth         *auth.Handlers
	Records      *records.Handlers
	Dashboard    *dashboard.Handlers
	Verification *verification.Handlers
}

// Server is the public HTTP API server
type Server struct {
	engine      *gin.Engine
	httpServer  *http.Server
	logger      *logger.Logger
	cfg         *config.Config
	stopCleanup []func()
}

// New assembles the API server: recovery, security headers, CORS, request
// logging and rate limiting run in that order before any route.
func New(cfg *config.Config, log *logger.Logger, metrics *monitoring.MetricsCollector, handlers Handlers) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(securityHeaders())
	engine.Use(corsMiddleware(cfg.CORS.AllowedOrigin))
	engine.Use(requestLogger(log, metrics))

	s := &Server{
		engine: engine,
		logger: log,
		cfg:    cfg,
	}

	api := engine.Group("/api")
	if cfg.RateLimit.Enabled {
		general := NewRateLimiter(cfg.RateLimit.GeneralRequests, time.Duration(cfg.RateLimit.GeneralWindow)*time.Second)
		strict := NewRateLimiter(cfg.RateLimit.AuthRequests, time.Duration(cfg.RateLimit.AuthWindowSec)*time.Second)

		cleanupInterval := time.Duration(cfg.RateLimit.CleanupInterval) * time.Second
		s.stopCleanup = append(s.stopCleanup,
			general.StartCleanup(cleanupInterval),
			strict.StartCleanup(cleanupInterval))

		api.Use(general.Middleware("general", metrics))
		// Login attempts get a much tighter budget than the rest of the API
		api.Use(strict.MiddlewareForPrefix("/api/auth", "auth", metrics))
	}

	handlers.Auth.RegisterRoutes(api)
	handlers.Records.RegisterRoutes(api)
	handlers.Dashboard.RegisterRoutes(api)
	handlers.Verification.RegisterRoutes(api)

	engine.GET("/", s.root)
	engine.GET("/health", s.health)
	engine.GET("/api", s.apiIndex)
	engine.NoRoute(s.notFound)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	return s
}

// Engine exposes the underlying router, used by tests
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start begins serving; it blocks until the listener fails or is shut down
func (s *Server) Start() error {
	s.logger.WithFields(map[string]interface{}{
		"addr":        s.httpServer.Addr,
		"environment": s.cfg.Environment,
	}).Info("API server starting")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops background loops
func (s *Server) Shutdown(ctx context.Context) error {
	for _, stop := range s.stopCleanup {
		stop()
	}
	return s.httpServer.Shutdown(ctx)
}

var startTime = time.Now()

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to MediBridge Backend API",
		"version": apiVersion,
		"status":  "Server is running successfully",
		"endpoints": gin.H{
			"health":        "/health",
			"api":           "/api",
			"auth":          "/api/auth",
			"healthRecords": "/api/health-records",
			"dashboard":     "/api/dashboard",
			"verification":  "/api/verification",
		},
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(startTime).Seconds(),
	})
}

func (s *Server) apiIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "MediBridge API",
		"endpoints": gin.H{
			"auth": gin.H{
				"login":     "POST /api/auth/google",
				"profile":   "GET /api/auth/profile",
				"logout":    "POST /api/auth/logout",
				"verify":    "GET /api/auth/verify",
				"protected": "GET /api/auth/protected",
			},
			"healthRecords": gin.H{
				"list":   "GET /api/health-records",
				"create": "POST /api/health-records",
				"get":    "GET /api/health-records/:id",
				"update": "PUT /api/health-records/:id",
				"delete": "DELETE /api/health-records/:id",
				"stats":  "GET /api/health-records/stats/overview",
			},
			"dashboard": gin.H{
				"overview":  "GET /api/dashboard/overview",
				"analytics": "GET /api/dashboard/analytics",
				"trends":    "GET /api/dashboard/trends",
				"reminders": "GET /api/dashboard/reminders",
				"export":    "GET /api/dashboard/export",
			},
			"verification": gin.H{
				"verify":      "POST /api/verification/verify/:recordId",
				"batchVerify": "POST /api/verification/verify-batch",
				"history":     "GET /api/verification/history/:recordId",
				"stats":       "GET /api/verification/stats",
			},
		},
	})
}

func (s *Server) notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, types.Response{
		Success: false,
		Message: fmt.Sprintf("The route %s does not exist", c.Request.URL.Path),
	})
}
