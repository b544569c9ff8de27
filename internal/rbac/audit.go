package rbac

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/imspidey6989/MediBridge/internal/store"
	"github.com/imspidey6989/MediBridge/pkg/logger"
	"github.com/imspidey6989/MediBridge/pkg/monitoring"
)

const auditInsertTimeout = 5 * time.Second

type auditEvent struct {
	Action       string
	UserID       string
	ResourceType string
	ResourceID   string
	Details      json.RawMessage
}

// AuditLogger persists audit events off the request path. Events are queued
// and written by a single background worker; a full queue drops the event
// rather than block the caller. Drops and write failures are counted.
type AuditLogger struct {
	store   *store.Store
	logger  *logger.Logger
	metrics *monitoring.MetricsCollector

	queue     chan auditEvent
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewAuditLogger creates an audit logger and starts its worker
func NewAuditLogger(st *store.Store, log *logger.Logger, metrics *monitoring.MetricsCollector, queueSize int) *AuditLogger {
	if queueSize <= 0 {
		queueSize = 256
	}

	a := &AuditLogger{
		store:   st,
		logger:  log,
		metrics: metrics,
		queue:   make(chan auditEvent, queueSize),
	}

	a.wg.Add(1)
	go a.worker()
	return a
}

// Record queues one audit event. It never blocks and never fails the
// calling operation; when the queue is full the event is dropped and counted.
func (a *AuditLogger) Record(action, userID, resourceType, resourceID string, details map[string]interface{}) {
	payload := json.RawMessage("{}")
	if details != nil {
		if encoded, err := json.Marshal(details); err == nil {
			payload = encoded
		}
	}

	event := auditEvent{
		Action:       action,
		UserID:       userID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      payload,
	}

	select {
	case a.queue <- event:
	default:
		a.metrics.RecordAuditDropped()
		a.logger.WithFields(map[string]interface{}{
			"action":  action,
			"user_id": userID,
		}).Warn("Audit queue full, event dropped")
	}
}

// Close stops accepting events and drains the queue before returning
func (a *AuditLogger) Close() {
	a.closeOnce.Do(func() {
		close(a.queue)
	})
	a.wg.Wait()
}

func (a *AuditLogger) worker() {
	defer a.wg.Done()

	for event := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), auditInsertTimeout)
		err := a.store.InsertAuditEntry(ctx, event.Action, event.UserID,
			event.ResourceType, event.ResourceID, event.Details)
		cancel()

		if err != nil {
			a.metrics.RecordAuditFailure()
			a.logger.WithError(err).WithFields(map[string]interface{}{
				"action":  event.Action,
				"user_id": event.UserID,
			}).Error("Audit log write failed")
		}
	}
}
