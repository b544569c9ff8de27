package monitoring

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/imspidey6989/MediBridge/pkg/config"
)

// Server exposes the metrics and health endpoints on a dedicated port
type Server struct {
	server *http.Server
}

// NewServer builds the ops HTTP server from monitoring config
func NewServer(cfg *config.MonitoringConfig, metrics *MetricsCollector, health *HealthManager) *Server {
	router := mux.NewRouter()
	router.Handle(cfg.MetricsPath, metrics.Handler()).Methods(http.MethodGet)
	router.HandleFunc(cfg.HealthPath, health.HTTPHandler()).Methods(http.MethodGet)

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Start begins serving; blocks until the server stops
func (s *Server) Start() error {
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
