package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/imspidey6989/MediBridge/pkg/types"
)

const historyColumns = `id, user_id, condition_name, COALESCE(icd11_code, ''),
	diagnosed_date, status, COALESCE(notes, ''), created_at`

func scanMedicalHistory(row rowScanner) (*types.MedicalHistory, error) {
	var h types.MedicalHistory
	var diagnosed sql.NullTime

	err := row.Scan(
		&h.ID,
		&h.UserID,
		&h.ConditionName,
		&h.ICD11Code,
		&diagnosed,
		&h.Status,
		&h.Notes,
		&h.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if diagnosed.Valid {
		h.DiagnosedDate = &diagnosed.Time
	}
	return &h, nil
}

// CreateMedicalHistory records a diagnosed condition for a user
func (s *Store) CreateMedicalHistory(ctx context.Context, userID, conditionName, icd11Code string, diagnosedDate *time.Time, status, notes string) (*types.MedicalHistory, error) {
	if status == "" {
		status = "active"
	}

	query := `
		INSERT INTO medical_history (id, user_id, condition_name, icd11_code, diagnosed_date, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + historyColumns

	h, err := scanMedicalHistory(s.db.QueryRowContext(ctx, query,
		uuid.New().String(), userID, conditionName, icd11Code, diagnosedDate, status, notes))
	if err != nil {
		return nil, fmt.Errorf("failed to create medical history entry: %w", err)
	}
	return h, nil
}

// MedicalHistoryByUser lists a user's conditions, newest diagnosis first
func (s *Store) MedicalHistoryByUser(ctx context.Context, userID string) ([]types.MedicalHistory, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM medical_history
		WHERE user_id = $1
		ORDER BY diagnosed_date DESC NULLS LAST, created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list medical history: %w", err)
	}
	defer rows.Close()

	var out []types.MedicalHistory
	for rows.Next() {
		h, err := scanMedicalHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan medical history entry: %w", err)
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

