package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/imspidey6989/MediBridge/internal/auth"
	"github.com/imspidey6989/MediBridge/internal/dashboard"
	"github.com/imspidey6989/MediBridge/internal/rbac"
	"github.com/imspidey6989/MediBridge/internal/records"
	"github.com/imspidey6989/MediBridge/internal/server"
	"github.com/imspidey6989/MediBridge/internal/store"
	"github.com/imspidey6989/MediBridge/internal/verification"
	"github.com/imspidey6989/MediBridge/pkg/config"
	"github.com/imspidey6989/MediBridge/pkg/database"
	"github.com/imspidey6989/MediBridge/pkg/logger"
	"github.com/imspidey6989/MediBridge/pkg/monitoring"
)

const (
	serviceName    = "medibridge-api"
	serviceVersion = "1.0.0"

	auditQueueSize  = 256
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel)
	log.WithFields(map[string]interface{}{
		"version":     serviceVersion,
		"environment": cfg.Environment,
	}).Info("Starting MediBridge API")

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureSchema(ctx); err != nil {
		cancel()
		log.WithError(err).Error("Failed to ensure database schema")
		os.Exit(1)
	}
	cancel()

	st := store.New(db.DB, log)

	// Metrics and the operational endpoints run on a separate port
	metrics := monitoring.NewMetricsCollector(serviceName)
	healthMgr := monitoring.NewHealthManager(serviceName, serviceVersion)
	healthMgr.RegisterChecker("database", monitoring.NewDatabaseHealthChecker(db.DB))

	var opsServer *monitoring.Server
	if cfg.Monitoring.Enabled {
		opsServer = monitoring.NewServer(&cfg.Monitoring, metrics, healthMgr)
		go func() {
			if err := opsServer.Start(); err != nil {
				log.WithError(err).Error("Monitoring server failed")
			}
		}()
	}

	// Authentication: Google identity verification plus JWT sessions
	tokens := auth.NewTokenManager(cfg.JWT)
	verifier := auth.NewGoogleVerifier(cfg.Google.ClientID)
	authService := auth.NewService(st, verifier, tokens, log)
	authHandlers := auth.NewHandlers(authService, log, metrics, cfg.IsProduction(), !cfg.IsProduction())

	// Authorization and the audit trail
	rbacMW := rbac.NewMiddleware(log)
	audit := rbac.NewAuditLogger(st, log, metrics, auditQueueSize)

	// Record verification runs against the mock provider until the real
	// NAMASTE TM2 integration lands
	provider := verification.NewMockProvider()
	verifyService := verification.NewService(st, provider, audit, log, metrics)

	srv := server.New(cfg, log, metrics, server.Handlers{
		Auth:         authHandlers,
		Records:      records.NewHandlers(st, rbacMW, audit, authHandlers, log, !cfg.IsProduction()),
		Dashboard:    dashboard.NewHandlers(st, rbacMW, audit, authHandlers, log, !cfg.IsProduction()),
		Verification: verification.NewHandlers(verifyService, rbacMW, authHandlers, log, !cfg.IsProduction()),
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.WithError(err).Error("API server failed")
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down MediBridge API")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("API server forced to shutdown")
	}

	if opsServer != nil {
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Monitoring server forced to shutdown")
		}
	}

	// Flush any queued audit events before the database connection closes
	audit.Close()

	log.Info("MediBridge API stopped")
}
