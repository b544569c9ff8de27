package records

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imspidey6989/MediBridge/internal/auth"
	"github.com/imspidey6989/MediBridge/internal/rbac"
	"github.com/imspidey6989/MediBridge/internal/store"
	"github.com/imspidey6989/MediBridge/pkg/config"
	"github.com/imspidey6989/MediBridge/pkg/logger"
	"github.com/imspidey6989/MediBridge/pkg/monitoring"
	"github.com/imspidey6989/MediBridge/pkg/types"
)

type testEnv struct {
	router *gin.Engine
	mock   sqlmock.Sqlmock
	audit  *rbac.AuditLogger
	token  string
	close  func()
}

func newTestEnv(t *testing.T, role string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	log := logger.New("error")
	metrics := monitoring.NewMetricsCollector("test-records")
	st := store.New(db, log)

	tokens := auth.NewTokenManager(config.JWTConfig{
		SecretKey: "test-secret-key-for-sessions",
		TokenTTL:  3600,
		Issuer:    "medibridge-test",
	})
	authSvc := auth.NewService(st, nil, tokens, log)
	authHandlers := auth.NewHandlers(authSvc, log, metrics, false, true)

	rbacMW := rbac.NewMiddleware(log)
	audit := rbac.NewAuditLogger(st, log, metrics, 32)

	handlers := NewHandlers(st, rbacMW, audit, authHandlers, log, true)

	router := gin.New()
	handlers.RegisterRoutes(router.Group("/api"))

	token, err := tokens.Issue(&types.User{ID: "user-1", Email: "jane@example.com", Name: "Jane"})
	require.NoError(t, err)

	// Every authenticated request re-fetches the user row
	mock.MatchExpectationsInOrder(false)

	env := &testEnv{
		router: router,
		mock:   mock,
		audit:  audit,
		token:  token,
		close: func() {
			audit.Close()
			db.Close()
		},
	}
	env.expectUserLookup(role)
	return env
}

func (e *testEnv) expectUserLookup(role string) {
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "google_id", "email", "name", "profile_picture", "role",
		"phone", "date_of_birth", "gender", "address", "emergency_contact",
		"created_at", "updated_at", "last_login",
	}).AddRow("user-1", "google-1", "jane@example.com", "Jane", "", role,
		"", nil, "", "", []byte("{}"), now, now, now)

	e.mock.ExpectQuery("FROM users WHERE id").WithArgs("user-1").WillReturnRows(rows)
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+e.token)
	req.Header.Set("Content-Type", "application/json")
	e.router.ServeHTTP(w, req)
	return w
}

func recordRows(id, userID, title string) *sqlmock.Rows {
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
		"mild", "active", "pending", nil,
		now, now)
}

func TestListRequiresAuthentication(t *testing.T) {
	env := newTestEnv(t, "patient")
	defer env.close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health-records", nil)
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListReturnsPaginatedRecords(t *testing.T) {
	env := newTestEnv(t, "patient")
	defer env.close()

	env.mock.ExpectQuery("FROM health_records").
		WithArgs("user-1", 10, 0).
		WillReturnRows(recordRows("rec-1", "user-1", "Checkup"))
	env.mock.ExpectQuery("SELECT COUNT").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	w := env.do(http.MethodGet, "/api/health-records", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp types.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Pagination)
	assert.Equal(t, 1, resp.Pagination.TotalRecords)
	assert.Equal(t, 1, resp.Pagination.CurrentPage)
	assert.False(t, resp.Pagination.HasNextPage)
}

func TestCreateRequiresTypeAndTitle(t *testing.T) {
	env := newTestEnv(t, "patient")
	defer env.close()

	w := env.do(http.MethodPost, "/api/health-records", `{"title":"no type"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp types.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, types.ErrCodeInvalidInput, resp.Error)
}

func TestCreateRecord(t *testing.T) {
	env := newTestEnv(t, "patient")
	defer env.close()

	env.mock.ExpectQuery("INSERT INTO health_records").
		WillReturnRows(recordRows("rec-1", "user-1", "Annual checkup"))
	env.mock.ExpectExec("INSERT INTO analytics").
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := env.do(http.MethodPost, "/api/health-records",
		`{"recordType":"diagnosis","title":"Annual checkup","symptoms":["fever"]}`)
	require.Equal(t, http.StatusCreated, w.Code)

	env.audit.Close()
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestGetMissingRecordIs404(t *testing.T) {
	env := newTestEnv(t, "patient")
	defer env.close()

	env.mock.ExpectQuery("SELECT user_id FROM health_records").
		WithArgs("rec-404").
		WillReturnError(sql.ErrNoRows)

	w := env.do(http.MethodGet, "/api/health-records/rec-404", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetForeignRecordIs403ForPatient(t *testing.T) {
	env := newTestEnv(t, "patient")
	defer env.close()

	env.mock.ExpectQuery("SELECT user_id FROM health_records").
		WithArgs("rec-2").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("someone-else"))

	w := env.do(http.MethodGet, "/api/health-records/rec-2", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateStripsProtectedFields(t *testing.T) {
	env := newTestEnv(t, "patient")
	defer env.close()

	// Only title passes the allowlist; the protected fields are dropped
	env.mock.ExpectQuery("SELECT user_id FROM health_records").
		WithArgs("rec-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("user-1"))
	env.mock.ExpectQuery("UPDATE health_records").
		WithArgs("New title", "rec-1", "user-1").
		WillReturnRows(recordRows("rec-1", "user-1", "New title"))
	env.mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := env.do(http.MethodPut, "/api/health-records/rec-1",
		`{"title":"New title","verificationStatus":"verified","userId":"attacker"}`)
	require.Equal(t, http.StatusOK, w.Code)

	env.audit.Close()
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestDeleteRecord(t *testing.T) {
	env := newTestEnv(t, "patient")
	defer env.close()

	env.mock.ExpectQuery("SELECT user_id FROM health_records").
		WithArgs("rec-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("user-1"))
	env.mock.ExpectQuery("DELETE FROM health_records").
		WithArgs("rec-1", "user-1").
		WillReturnRows(recordRows("rec-1", "user-1", "Checkup"))
	env.mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := env.do(http.MethodDelete, "/api/health-records/rec-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	env.audit.Close()
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestStatsOverview(t *testing.T) {
	env := newTestEnv(t, "patient")
	defer env.close()

	env.mock.ExpectQuery("SELECT COUNT").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"c1", "c2", "c3", "c4", "c5"}).AddRow(3, 1, 2, 1, 1))
	env.mock.ExpectQuery("ORDER BY created_at DESC").
		WithArgs("user-1", 5, 0).
		WillReturnRows(recordRows("rec-1", "user-1", "Checkup"))
	env.mock.ExpectQuery("GROUP BY record_type").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"record_type", "count"}).AddRow("diagnosis", 3))

	w := env.do(http.MethodGet, "/api/health-records/stats/overview", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
