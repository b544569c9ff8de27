package rbac

import (
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imspidey6989/MediBridge/internal/store"
	"github.com/imspidey6989/MediBridge/pkg/logger"
	"github.com/imspidey6989/MediBridge/pkg/monitoring"
)

func TestAuditLoggerPersistsEvents(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(sqlmock.AnyArg(), "record_created", "user-1", "health_record", "rec-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	audit := NewAuditLogger(store.New(db, logger.New("error")), logger.New("error"),
		monitoring.NewMetricsCollector("test-audit"), 8)

	audit.Record("record_created", "user-1", "health_record", "rec-1", map[string]interface{}{
		"title": "Checkup",
	})

	// Close drains the queue, so the insert must have happened by now
	audit.Close()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditLoggerSurvivesWriteFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnError(assert.AnError)

	audit := NewAuditLogger(store.New(db, logger.New("error")), logger.New("error"),
		monitoring.NewMetricsCollector("test-audit"), 8)

	audit.Record("record_deleted", "user-1", "health_record", "rec-1", nil)
	audit.Close()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditLoggerDropsWhenQueueFull(t *testing.T) {
	// No worker: events stay queued so the overflow path is deterministic
	audit := &AuditLogger{
		logger:  logger.New("error"),
		metrics: monitoring.NewMetricsCollector("test-audit"),
		queue:   make(chan auditEvent, 1),
	}

	audit.Record("first", "user-1", "health_record", "", nil)
	audit.Record("second", "user-1", "health_record", "", nil)

	require.Len(t, audit.queue, 1)
	queued := <-audit.queue
	assert.Equal(t, "first", queued.Action)
	assert.Equal(t, json.RawMessage("{}"), queued.Details)
}
