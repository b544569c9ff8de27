package types

import (
	"encoding/json"
	"time"
)

// UserRole represents the different user roles in the system
type UserRole string

const (
	RolePatient  UserRole = "patient"
	RoleDoctor   UserRole = "doctor"
	RoleAdmin    UserRole = "admin"
	RoleVerifier UserRole = "verifier"
)

// Permission represents a single action a role may perform
type Permission string

const (
	PermReadOwnRecords  Permission = "read_own_records"
	PermWriteOwnRecords Permission = "write_own_records"
	PermReadAllRecords  Permission = "read_all_records"
	PermWriteAllRecords Permission = "write_all_records"
	PermVerifyRecords   Permission = "verify_records"
	PermManageUsers     Permission = "manage_users"
	PermViewAnalytics   Permission = "view_analytics"
	PermExportData      Permission = "export_data"
)

// User represents a system user created on first Google login
type User struct {
	ID               string          `json:"id" db:"id"`
	GoogleID         string          `json:"googleId,omitempty" db:"google_id"`
	Email            string          `json:"email" db:"email"`
	Name             string          `json:"name" db:"name"`
	ProfilePicture   string          `json:"profilePicture,omitempty" db:"profile_picture"`
	Role             UserRole        `json:"role" db:"role"`
	Phone            string          `json:"phone,omitempty" db:"phone"`
	DateOfBirth      *time.Time      `json:"dateOfBirth,omitempty" db:"date_of_birth"`
	Gender           string          `json:"gender,omitempty" db:"gender"`
	Address          string          `json:"address,omitempty" db:"address"`
	EmergencyContact json.RawMessage `json:"emergencyContact,omitempty" db:"emergency_contact"`
	CreatedAt        time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time       `json:"updatedAt" db:"updated_at"`
	LastLogin        *time.Time      `json:"lastLogin,omitempty" db:"last_login"`
}

// PublicProfile returns the fields exposed to API clients
func (u *User) PublicProfile() map[string]interface{} {
	return map[string]interface{}{
		"id":             u.ID,
		"email":          u.Email,
		"name":           u.Name,
		"profilePicture": u.ProfilePicture,
		"role":           u.Role,
		"createdAt":      u.CreatedAt,
		"lastLogin":      u.LastLogin,
	}
}
