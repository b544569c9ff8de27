package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imspidey6989/MediBridge/pkg/logger"
	"github.com/imspidey6989/MediBridge/pkg/types"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	s := New(db, logger.New("error"))
	return s, mock, func() { db.Close() }
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

func TestUserByGoogleID(t *testing.T) {
	s, mock, cleanup := newTestStore(t)
	defer cleanup()

	mock.ExpectQuery("FROM users WHERE google_id").
		WithArgs("google-123").
		WillReturnRows(userRows("user-1", "google-123", "jane@example.com", "Jane Doe"))

	user, err := s.UserByGoogleID(context.Background(), "google-123")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.Equal(t, types.RolePatient, user.Role)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserByGoogleIDNotFound(t *testing.T) {
	s, mock, cleanup := newTestStore(t)
	defer cleanup()

	mock.ExpectQuery("FROM users WHERE google_id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	user, err := s.UserByGoogleID(context.Background(), "missing")
	assert.Nil(t, user)
	assert.True(t, types.IsNotFound(err))
}

func TestCreateUser(t *testing.T) {
	s, mock, cleanup := newTestStore(t)
	defer cleanup()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), "google-9", "new@example.com", "New User", "", "patient").
		WillReturnRows(userRows("user-9", "google-9", "new@example.com", "New User"))

	user, err := s.CreateUser(context.Background(), "google-9", "new@example.com", "New User", "")
	require.NoError(t, err)
	assert.Equal(t, "user-9", user.ID)
	assert.Equal(t, types.RolePatient, user.Role)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s, mock, cleanup := newTestStore(t)
	defer cleanup()

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505"})

	user, err := s.CreateUser(context.Background(), "google-9", "dupe@example.com", "Dupe", "")
	assert.Nil(t, user)
	assert.True(t, types.IsConflict(err))
}

func TestLinkGoogleAccount(t *testing.T) {
	s, mock, cleanup := newTestStore(t)
	defer cleanup()

	mock.ExpectQuery("UPDATE users").
		WithArgs("google-5", "pic.png", "user-5").
		WillReturnRows(userRows("user-5", "google-5", "linked@example.com", "Linked"))

	user, err := s.LinkGoogleAccount(context.Background(), "user-5", "google-5", "pic.png")
	require.NoError(t, err)
	assert.Equal(t, "google-5", user.GoogleID)

	assert.NoError(t, mock.ExpectationsWereMet())
}
