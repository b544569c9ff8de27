package verification

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
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

func newTestEnv(t *testing.T, role string, provider Provider) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	log := logger.New("error")
	metrics := monitoring.NewMetricsCollector("test-verification")
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

	svc := NewService(st, provider, audit, log, metrics)
	handlers := NewHandlers(svc, rbacMW, authHandlers, log, true)

	router := gin.New()
	handlers.RegisterRoutes(router.Group("/api"))

	token, err := tokens.Issue(&types.User{ID: "user-1", Email: "jane@example.com", Name: "Jane"})
	require.NoError(t, err)

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
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+e.token)
	req.Header.Set("Content-Type", "application/json")
	e.router.ServeHTTP(w, req)
	return w
}

func TestVerifyRequiresAuthentication(t *testing.T) {
	env := newTestEnv(t, "patient", &fixedProvider{outcome: &Outcome{Verified: true}})
	defer env.close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/verification/verify/rec-1", nil)
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerifyAsVerifierRole(t *testing.T) {
	provider := &fixedProvider{outcome: &Outcome{Verified: true, Confidence: 91}}
	env := newTestEnv(t, "verifier", provider)
	defer env.close()

	env.mock.ExpectQuery("FROM health_records WHERE id").
		WithArgs("rec-1").
		WillReturnRows(recordRows("rec-1", "owner-9", "Checkup", "pending"))
	env.mock.ExpectQuery("SET verification_status").
		WillReturnRows(recordRows("rec-1", "owner-9", "Checkup", "verified"))
	env.mock.ExpectQuery("INSERT INTO verification_logs").
		WillReturnRows(logRows("rec-1"))
	env.mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := env.do(http.MethodPost, "/api/verification/verify/rec-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Verification successful")
	assert.Equal(t, 1, provider.calls)

	env.audit.Close()
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestVerifyAsPatientStaysOwnerScoped(t *testing.T) {
	provider := &fixedProvider{outcome: &Outcome{Verified: true}}
	env := newTestEnv(t, "patient", provider)
	defer env.close()

	// A patient's lookup carries their own id, so a foreign record is absent
	env.mock.ExpectQuery("FROM health_records WHERE id").
		WithArgs("rec-9", "user-1").
		WillReturnError(sql.ErrNoRows)

	w := env.do(http.MethodPost, "/api/verification/verify/rec-9", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, provider.calls)
}

func TestStatsAsVerifierRole(t *testing.T) {
	env := newTestEnv(t, "verifier", &fixedProvider{outcome: &Outcome{Verified: true}})
	defer env.close()

	env.mock.ExpectQuery("GROUP BY verification_status").
		WillReturnRows(sqlmock.NewRows([]string{"verification_status", "count"}).
			AddRow("verified", 3))
	env.mock.ExpectQuery("ORDER BY vl.verified_at DESC").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "record_id", "title", "status", "verified_at",
		}))
	env.mock.ExpectQuery("GROUP BY vl.verification_type").
		WillReturnRows(sqlmock.NewRows([]string{
			"verification_type", "total", "successful",
		}))

	w := env.do(http.MethodGet, "/api/verification/stats", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
