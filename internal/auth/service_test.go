package auth

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imspidey6989/MediBridge/internal/store"
	"github.com/imspidey6989/MediBridge/pkg/logger"
	"github.com/imspidey6989/MediBridge/pkg/types"
)

type fakeVerifier struct {
	identity *Identity
	err      error
}

func (f *fakeVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

func newTestService(t *testing.T, verifier IdentityVerifier) (*Service, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	st := store.New(db, logger.New("error"))
	svc := NewService(st, verifier, testTokenManager(3600), logger.New("error"))
	return svc, mock, func() { db.Close() }
}

func userRows(id, googleID, email, name string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "google_id", "email", "name", "profile_picture", "role",
		"phone", "date_of_birth", "gender", "address", "emergency_contact",
		"created_at", "updated_at", "last_login",
	}).AddRow(id, googleID, email, name, "", "patient",
		"", nil, "", "", []byte("{}"), now, now, now)
}

func TestLoginExistingGoogleUser(t *testing.T) {
	verifier := &fakeVerifier{identity: &Identity{
		GoogleID: "google-1", Email: "jane@example.com", Name: "Jane", EmailVerified: true,
	}}
	svc, mock, cleanup := newTestService(t, verifier)
	defer cleanup()

	mock.ExpectQuery("FROM users WHERE google_id").
		WithArgs("google-1").
		WillReturnRows(userRows("user-1", "google-1", "jane@example.com", "Jane"))
	mock.ExpectQuery("SET last_login").
		WithArgs("user-1").
		WillReturnRows(userRows("user-1", "google-1", "jane@example.com", "Jane"))

	user, token, err := svc.LoginOrRegister(context.Background(), "id-token")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.NotEmpty(t, token)

	claims, err := svc.tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginLinksExistingEmailAccount(t *testing.T) {
	verifier := &fakeVerifier{identity: &Identity{
		GoogleID: "google-2", Email: "existing@example.com", Name: "Existing", Picture: "pic.png", EmailVerified: true,
	}}
	svc, mock, cleanup := newTestService(t, verifier)
	defer cleanup()

	mock.ExpectQuery("FROM users WHERE google_id").
		WithArgs("google-2").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("FROM users WHERE email").
		WithArgs("existing@example.com").
		WillReturnRows(userRows("user-2", "", "existing@example.com", "Existing"))
	mock.ExpectQuery("UPDATE users").
		WithArgs("google-2", "pic.png", "user-2").
		WillReturnRows(userRows("user-2", "google-2", "existing@example.com", "Existing"))

	user, _, err := svc.LoginOrRegister(context.Background(), "id-token")
	require.NoError(t, err)
	assert.Equal(t, "google-2", user.GoogleID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginRegistersNewUser(t *testing.T) {
	verifier := &fakeVerifier{identity: &Identity{
		GoogleID: "google-3", Email: "new@example.com", Name: "New User", EmailVerified: true,
	}}
	svc, mock, cleanup := newTestService(t, verifier)
	defer cleanup()

	mock.ExpectQuery("FROM users WHERE google_id").
		WithArgs("google-3").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("FROM users WHERE email").
		WithArgs("new@example.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(userRows("user-3", "google-3", "new@example.com", "New User"))

	user, _, err := svc.LoginOrRegister(context.Background(), "id-token")
	require.NoError(t, err)
	assert.Equal(t, "user-3", user.ID)
	assert.Equal(t, types.RolePatient, user.Role)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginRejectsUnverifiedEmail(t *testing.T) {
	verifier := &fakeVerifier{identity: &Identity{
		GoogleID: "google-4", Email: "sketchy@example.com", EmailVerified: false,
	}}
	svc, mock, cleanup := newTestService(t, verifier)
	defer cleanup()

	user, token, err := svc.LoginOrRegister(context.Background(), "id-token")
	assert.Nil(t, user)
	assert.Empty(t, token)

	var typed *types.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, types.ErrCodeUnverifiedEmail, typed.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginRejectsInvalidGoogleToken(t *testing.T) {
	verifier := &fakeVerifier{err: types.NewAuthenticationError(types.ErrCodeInvalidToken, "Google token verification failed")}
	svc, mock, cleanup := newTestService(t, verifier)
	defer cleanup()

	_, _, err := svc.LoginOrRegister(context.Background(), "bad-token")

	var typed *types.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, types.ErrCodeInvalidToken, typed.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserFromTokenDeletedUser(t *testing.T) {
	svc, mock, cleanup := newTestService(t, &fakeVerifier{})
	defer cleanup()

	token, err := svc.tokens.Issue(&types.User{ID: "gone-user"})
	require.NoError(t, err)

	mock.ExpectQuery("FROM users WHERE id").
		WithArgs("gone-user").
		WillReturnError(sql.ErrNoRows)

	user, err := svc.UserFromToken(context.Background(), token)
	assert.Nil(t, user)

	var typed *types.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, types.ErrCodeUserNotFound, typed.Code)
	assert.Equal(t, types.ErrorTypeAuthentication, typed.Type)
}
