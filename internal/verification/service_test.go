package verification

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imspidey6989/MediBridge/internal/rbac"
	"github.com/imspidey6989/MediBridge/internal/store"
	"github.com/imspidey6989/MediBridge/pkg/logger"
	"github.com/imspidey6989/MediBridge/pkg/monitoring"
	"github.com/imspidey6989/MediBridge/pkg/types"
)

type fixedProvider struct {
	outcome *Outcome
	calls   int
}

func (p *fixedProvider) Name() string { return "namaste_tm2" }

func (p *fixedProvider) DisplayName() string { return "Namaste TM2 System" }

func (p *fixedProvider) Verify(ctx context.Context, record *types.HealthRecord, verificationType string) (*Outcome, error) {
	p.calls++
	return p.outcome, nil
}

func patientUser() *types.User {
	return &types.User{ID: "user-1", Role: types.RolePatient}
}

func newTestService(t *testing.T, provider Provider) (*Service, sqlmock.Sqlmock, *rbac.AuditLogger, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	log := logger.New("error")
	metrics := monitoring.NewMetricsCollector("test-verification")
	st := store.New(db, log)
	audit := rbac.NewAuditLogger(st, log, metrics, 32)

	svc := NewService(st, provider, audit, log, metrics)
	return svc, mock, audit, func() {
		audit.Close()
		db.Close()
	}
}

func recordRows(id, userID, title, verificationStatus string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "user_id", "record_type", "title", "description",
		"icd11_code", "icd11_title", "diagnosis",
		"symptoms", "medications", "test_results", "attachments",
		"doctor_name", "hospital_name", "visit_date",
		"severity", "status", "verification_status", "verification_data",
		"created_at", "updated_at",
	}).AddRow(id, userID, "diagnosis", title, "",
		"", "", "",
		pq.StringArray{}, []byte("[]"), []byte("[]"), []byte("[]"),
		"", "", nil,
		"mild", "active", verificationStatus, nil,
		now, now)
}

func logRows(recordID string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "record_id", "verification_type", "status",
		"verification_data", "verified_by", "verified_at", "notes",
	}).AddRow("log-1", recordID, "namaste_tm2_full", "verified",
		[]byte("{}"), "Namaste TM2 System", time.Now(), "")
}

func TestVerifyRecordNotFound(t *testing.T) {
	provider := &fixedProvider{outcome: &Outcome{Verified: true}}
	svc, mock, _, cleanup := newTestService(t, provider)
	defer cleanup()

	mock.ExpectQuery("FROM health_records WHERE id").
		WithArgs("rec-404", "user-1").
		WillReturnError(sql.ErrNoRows)

	result, err := svc.VerifyRecord(context.Background(), patientUser(), "rec-404", "full")
	assert.Nil(t, result)
	assert.True(t, types.IsNotFound(err))
	assert.Zero(t, provider.calls)
}

func TestVerifyRecordAlreadyVerified(t *testing.T) {
	provider := &fixedProvider{outcome: &Outcome{Verified: true}}
	svc, mock, _, cleanup := newTestService(t, provider)
	defer cleanup()

	mock.ExpectQuery("FROM health_records WHERE id").
		WithArgs("rec-1", "user-1").
		WillReturnRows(recordRows("rec-1", "user-1", "Checkup", "verified"))

	result, err := svc.VerifyRecord(context.Background(), patientUser(), "rec-1", "full")
	assert.Nil(t, result)

	var typed *types.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, types.ErrorTypeValidation, typed.Type)

	// The provider is never consulted and no writes happen
	assert.Zero(t, provider.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyRecordWritesOutcomeAndOneLog(t *testing.T) {
	provider := &fixedProvider{outcome: &Outcome{
		Verified:   true,
		Confidence: 87.5,
		Timestamp:  time.Now(),
	}}
	svc, mock, audit, cleanup := newTestService(t, provider)
	defer cleanup()

	mock.MatchExpectationsInOrder(false)
	mock.ExpectQuery("FROM health_records WHERE id").
		WithArgs("rec-1", "user-1").
		WillReturnRows(recordRows("rec-1", "user-1", "Checkup", "pending"))
	mock.ExpectQuery("SET verification_status").
		WillReturnRows(recordRows("rec-1", "user-1", "Checkup", "verified"))
	mock.ExpectQuery("INSERT INTO verification_logs").
		WillReturnRows(logRows("rec-1"))
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := svc.VerifyRecord(context.Background(), patientUser(), "rec-1", "full")
	require.NoError(t, err)
	assert.Equal(t, types.VerificationVerified, result.VerificationStatus)
	assert.Equal(t, 1, provider.calls)

	audit.Close()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyRecordFailedOutcome(t *testing.T) {
	provider := &fixedProvider{outcome: &Outcome{Verified: false, Confidence: 12.0}}
	svc, mock, audit, cleanup := newTestService(t, provider)
	defer cleanup()

	mock.MatchExpectationsInOrder(false)
	mock.ExpectQuery("FROM health_records WHERE id").
		WillReturnRows(recordRows("rec-1", "user-1", "Checkup", "pending"))
	mock.ExpectQuery("SET verification_status").
		WillReturnRows(recordRows("rec-1", "user-1", "Checkup", "failed"))
	mock.ExpectQuery("INSERT INTO verification_logs").
		WillReturnRows(logRows("rec-1"))
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := svc.VerifyRecord(context.Background(), patientUser(), "rec-1", "full")
	require.NoError(t, err)
	assert.Equal(t, types.VerificationFailed, result.VerificationStatus)

	audit.Close()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyBatchRejectsEmpty(t *testing.T) {
	provider := &fixedProvider{outcome: &Outcome{Verified: true}}
	svc, mock, _, cleanup := newTestService(t, provider)
	defer cleanup()

	results, summary, err := svc.VerifyBatch(context.Background(), patientUser(), nil, "full")
	assert.Nil(t, results)
	assert.Nil(t, summary)

	var typed *types.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, types.ErrorTypeValidation, typed.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyBatchRejectsOversize(t *testing.T) {
	provider := &fixedProvider{outcome: &Outcome{Verified: true}}
	svc, mock, _, cleanup := newTestService(t, provider)
	defer cleanup()

	ids := make([]string, 11)
	for i := range ids {
		ids[i] = "rec"
	}

	results, summary, err := svc.VerifyBatch(context.Background(), patientUser(), ids, "full")
	assert.Nil(t, results)
	assert.Nil(t, summary)

	var typed *types.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, types.ErrorTypeValidation, typed.Type)

	// Rejected before touching any record
	assert.Zero(t, provider.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyBatchMixedResults(t *testing.T) {
	provider := &fixedProvider{outcome: &Outcome{Verified: true, Confidence: 90}}
	svc, mock, audit, cleanup := newTestService(t, provider)
	defer cleanup()

	mock.MatchExpectationsInOrder(false)
	mock.ExpectQuery("FROM health_records WHERE id").
		WithArgs("rec-1", "user-1").
		WillReturnRows(recordRows("rec-1", "user-1", "Checkup", "pending"))
	mock.ExpectQuery("SET verification_status").
		WillReturnRows(recordRows("rec-1", "user-1", "Checkup", "verified"))
	mock.ExpectQuery("INSERT INTO verification_logs").
		WillReturnRows(logRows("rec-1"))
	mock.ExpectQuery("FROM health_records WHERE id").
		WithArgs("rec-404", "user-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	results, summary, err := svc.VerifyBatch(context.Background(), patientUser(),
		[]string{"rec-1", "rec-404"}, "full")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].Success)
	assert.True(t, results[0].Verified)
	assert.False(t, results[1].Success)
	assert.Equal(t, "Record not found", results[1].Message)

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Successful)
	assert.Equal(t, 1, summary.Failed)

	audit.Close()
}

func TestVerifyRecordAsVerifierReachesForeignRecord(t *testing.T) {
	provider := &fixedProvider{outcome: &Outcome{Verified: true, Confidence: 95}}
	svc, mock, audit, cleanup := newTestService(t, provider)
	defer cleanup()

	verifier := &types.User{ID: "verifier-1", Role: types.RoleVerifier}

	mock.MatchExpectationsInOrder(false)
	// Lookup is not scoped to the caller; the update stays scoped to the
	// record's actual owner
	mock.ExpectQuery("FROM health_records WHERE id").
		WithArgs("rec-1").
		WillReturnRows(recordRows("rec-1", "owner-9", "Checkup", "pending"))
	mock.ExpectQuery("SET verification_status").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "rec-1", "owner-9").
		WillReturnRows(recordRows("rec-1", "owner-9", "Checkup", "verified"))
	mock.ExpectQuery("INSERT INTO verification_logs").
		WithArgs(sqlmock.AnyArg(), "rec-1", "namaste_tm2_full", "verified",
			sqlmock.AnyArg(), "Namaste TM2 System", sqlmock.AnyArg()).
		WillReturnRows(logRows("rec-1"))
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := svc.VerifyRecord(context.Background(), verifier, "rec-1", "full")
	require.NoError(t, err)
	assert.Equal(t, types.VerificationVerified, result.VerificationStatus)
	assert.Equal(t, 1, provider.calls)

	audit.Close()
	assert.NoError(t, mock.ExpectationsWereMet())
}
