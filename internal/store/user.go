package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/imspidey6989/MediBridge/pkg/types"
)

const userColumns = `id, COALESCE(google_id, ''), email, name, COALESCE(profile_picture, ''),
	role, COALESCE(phone, ''), date_of_birth, COALESCE(gender, ''), COALESCE(address, ''),
	emergency_contact, created_at, updated_at, last_login`

func scanUser(row *sql.Row) (*types.User, error) {
	var user types.User
	var dob, lastLogin sql.NullTime

	err := row.Scan(
		&user.ID,
		&user.GoogleID,
		&user.Email,
		&user.Name,
		&user.ProfilePicture,
		&user.Role,
		&user.Phone,
		&dob,
		&user.Gender,
		&user.Address,
		&user.EmergencyContact,
		&user.CreatedAt,
		&user.UpdatedAt,
		&lastLogin,
	)
	if err != nil {
		return nil, err
	}

	if dob.Valid {
		user.DateOfBirth = &dob.Time
	}
	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}
	return &user, nil
}

// UserByGoogleID retrieves a user by their Google identity id
func (s *Store) UserByGoogleID(ctx context.Context, googleID string) (*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE google_id = $1`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, googleID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeUserNotFound, "User not found")
		}
		return nil, fmt.Errorf("failed to get user by google id: %w", err)
	}
	return user, nil
}

// UserByEmail retrieves a user by email
func (s *Store) UserByEmail(ctx context.Context, email string) (*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeUserNotFound, "User not found")
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// UserByID retrieves a user by id
func (s *Store) UserByID(ctx context.Context, id string) (*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeUserNotFound, "User not found")
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, nil
}

// CreateUser inserts a new user row and returns it with generated fields.
// Uniqueness of email and google_id is enforced by the database; a duplicate
// is surfaced as a conflict error, never a silent overwrite.
func (s *Store) CreateUser(ctx context.Context, googleID, email, name, profilePicture string) (*types.User, error) {
	query := `
		INSERT INTO users (id, google_id, email, name, profile_picture, role, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
		RETURNING ` + userColumns

	id := uuid.New().String()
	user, err := scanUser(s.db.QueryRowContext(ctx, query,
		id, googleID, email, name, profilePicture, types.RolePatient))
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, types.NewConflictError(types.ErrCodeConflict, "User already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.WithUserID(user.ID).Info("User created")
	return user, nil
}

// LinkGoogleAccount attaches a Google identity to an existing account
func (s *Store) LinkGoogleAccount(ctx context.Context, userID, googleID, profilePicture string) (*types.User, error) {
	query := `
		UPDATE users
		SET google_id = $1, profile_picture = $2, last_login = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
		RETURNING ` + userColumns

	user, err := scanUser(s.db.QueryRowContext(ctx, query, googleID, profilePicture, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeUserNotFound, "User not found")
		}
		return nil, fmt.Errorf("failed to link google account: %w", err)
	}
	return user, nil
}

// UpdateUserLogin stamps last_login and returns the updated row
func (s *Store) UpdateUserLogin(ctx context.Context, userID string) (*types.User, error) {
	query := `
		UPDATE users
		SET last_login = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(s.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeUserNotFound, "User not found")
		}
		return nil, fmt.Errorf("failed to update user login: %w", err)
	}
	return user, nil
}
