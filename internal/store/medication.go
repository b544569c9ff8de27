package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/imspidey6989/MediBridge/pkg/types"
)

const medicationColumns = `id, user_id, medication_name, COALESCE(dosage, ''),
	COALESCE(frequency, ''), COALESCE(prescribed_by, ''), start_date, end_date,
	status, COALESCE(notes, ''), created_at`

func scanMedication(row rowScanner) (*types.Medication, error) {
	var m types.Medication
	var start, end sql.NullTime

	err := row.Scan(
		&m.ID,
		&m.UserID,
		&m.MedicationName,
		&m.Dosage,
		&m.Frequency,
		&m.PrescribedBy,
		&start,
		&end,
		&m.Status,
		&m.Notes,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if start.Valid {
		m.StartDate = &start.Time
	}
	if end.Valid {
		m.EndDate = &end.Time
	}
	return &m, nil
}

// NewMedication carries the caller-supplied fields for a prescription
type NewMedication struct {
	UserID         string
	MedicationName string
	Dosage         string
	Frequency      string
	PrescribedBy   string
	StartDate      *time.Time
	EndDate        *time.Time
	Notes          string
}

// CreateMedication records a prescription for a user, active by default
func (s *Store) CreateMedication(ctx context.Context, med *NewMedication) (*types.Medication, error) {
	query := `
		INSERT INTO medications (id, user_id, medication_name, dosage, frequency, prescribed_by, start_date, end_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + medicationColumns

	m, err := scanMedication(s.db.QueryRowContext(ctx, query,
		uuid.New().String(), med.UserID, med.MedicationName, med.Dosage,
		med.Frequency, med.PrescribedBy, med.StartDate, med.EndDate, med.Notes))
	if err != nil {
		return nil, fmt.Errorf("failed to create medication: %w", err)
	}
	return m, nil
}

// MedicationsByUser lists a user's prescriptions, most recent start first
func (s *Store) MedicationsByUser(ctx context.Context, userID string) ([]types.Medication, error) {
	query := `
		SELECT ` + medicationColumns + `
		FROM medications
		WHERE user_id = $1
		ORDER BY start_date DESC NULLS LAST, created_at DESC`

	return s.queryMedications(ctx, query, userID)
}

// ActiveMedications lists only the user's prescriptions still marked active
func (s *Store) ActiveMedications(ctx context.Context, userID string) ([]types.Medication, error) {
	query := `
		SELECT ` + medicationColumns + `
		FROM medications
		WHERE user_id = $1 AND status = 'active'
		ORDER BY start_date DESC NULLS LAST`

	return s.queryMedications(ctx, query, userID)
}

func (s *Store) queryMedications(ctx context.Context, query string, args ...interface{}) ([]types.Medication, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	defer rows.Close()

	var out []types.Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan medication: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}
