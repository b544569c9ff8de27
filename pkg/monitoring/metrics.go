package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code", "service"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "service"},
	)

	// Authentication metrics
	authAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"method", "status", "service"},
	)

	// Audit queue metrics
	auditLogFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_log_failures_total",
			Help: "Total number of audit log inserts that failed",
		},
		[]string{"service"},
	)

	auditLogDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_log_dropped_total",
			Help: "Total number of audit events dropped due to a full queue",
		},
		[]string{"service"},
	)

	// Verification metrics
	recordVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "record_verifications_total",
			Help: "Total number of health record verification attempts",
		},
		[]string{"status", "service"},
	)

	// Rate limiting metrics
	rateLimitRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Total number of requests rejected by rate limiting",
		},
		[]string{"limiter", "service"},
	)
)

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct {
	serviceName string
}

var registerMetricsOnce sync.Once

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(serviceName string) *MetricsCollector {
	registerMetricsOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			authAttemptsTotal,
			auditLogFailuresTotal,
			auditLogDroppedTotal,
			recordVerificationsTotal,
			rateLimitRejectionsTotal,
		)
	})

	return &MetricsCollector{
		serviceName: serviceName,
	}
}

// RecordHTTPRequest records HTTP request metrics
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, statusCode, m.serviceName).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, m.serviceName).Observe(duration.Seconds())
}

// RecordAuthAttempt records authentication attempt metrics
func (m *MetricsCollector) RecordAuthAttempt(method, status string) {
	authAttemptsTotal.WithLabelValues(method, status, m.serviceName).Inc()
}

// RecordAuditFailure records a failed audit log insert
func (m *MetricsCollector) RecordAuditFailure() {
	auditLogFailuresTotal.WithLabelValues(m.serviceName).Inc()
}

// RecordAuditDropped records an audit event dropped on a full queue
func (m *MetricsCollector) RecordAuditDropped() {
	auditLogDroppedTotal.WithLabelValues(m.serviceName).Inc()
}

// RecordVerification records a verification attempt outcome
func (m *MetricsCollector) RecordVerification(status string) {
	recordVerificationsTotal.WithLabelValues(status, m.serviceName).Inc()
}

// RecordRateLimitRejection records a rate limited request
func (m *MetricsCollector) RecordRateLimitRejection(limiter string) {
	rateLimitRejectionsTotal.WithLabelValues(limiter, m.serviceName).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.Handler()
}
