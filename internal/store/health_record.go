package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/imspidey6989/MediBridge/pkg/types"
)

const recordColumns = `id, user_id, record_type, title, COALESCE(description, ''),
	COALESCE(icd11_code, ''), COALESCE(icd11_title, ''), COALESCE(diagnosis, ''),
	symptoms, medications, test_results, attachments,
	COALESCE(doctor_name, ''), COALESCE(hospital_name, ''), visit_date,
	severity, status, verification_status, verification_data, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanHealthRecord(row rowScanner) (*types.HealthRecord, error) {
	var rec types.HealthRecord
	var visitDate sql.NullTime
	var verificationData []byte

	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.RecordType,
		&rec.Title,
		&rec.Description,
		&rec.ICD11Code,
		&rec.ICD11Title,
		&rec.Diagnosis,
		pq.Array(&rec.Symptoms),
		&rec.Medications,
		&rec.TestResults,
		&rec.Attachments,
		&rec.DoctorName,
		&rec.HospitalName,
		&visitDate,
		&rec.Severity,
		&rec.Status,
		&rec.VerificationStatus,
		&verificationData,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if visitDate.Valid {
		rec.VisitDate = &visitDate.Time
	}
	if verificationData != nil {
		rec.VerificationData = json.RawMessage(verificationData)
	}
	return &rec, nil
}

// NewHealthRecord carries the caller-supplied fields for record creation
type NewHealthRecord struct {
	UserID       string
	RecordType   string
	Title        string
	Description  string
	ICD11Code    string
	ICD11Title   string
	Diagnosis    string
	Symptoms     []string
	Medications  json.RawMessage
	TestResults  json.RawMessage
	Attachments  json.RawMessage
	DoctorName   string
	HospitalName string
	VisitDate    *time.Time
	Severity     types.Severity
}

// CreateHealthRecord inserts a new record; verification status starts pending
func (s *Store) CreateHealthRecord(ctx context.Context, rec *NewHealthRecord) (*types.HealthRecord, error) {
	query := `
		INSERT INTO health_records (
			id, user_id, record_type, title, description, icd11_code, icd11_title,
			diagnosis, symptoms, medications, test_results, attachments,
			doctor_name, hospital_name, visit_date, severity
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING ` + recordColumns

	severity := rec.Severity
	if severity == "" {
		severity = types.SeverityMild
	}

	rawOrEmpty := func(raw json.RawMessage) []byte {
		if len(raw) == 0 {
			return []byte("[]")
		}
		return []byte(raw)
	}

	id := uuid.New().String()
	created, err := scanHealthRecord(s.db.QueryRowContext(ctx, query,
		id,
		rec.UserID,
		rec.RecordType,
		rec.Title,
		rec.Description,
		rec.ICD11Code,
		rec.ICD11Title,
		rec.Diagnosis,
		pq.Array(rec.Symptoms),
		rawOrEmpty(rec.Medications),
		rawOrEmpty(rec.TestResults),
		rawOrEmpty(rec.Attachments),
		rec.DoctorName,
		rec.HospitalName,
		rec.VisitDate,
		severity,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create health record: %w", err)
	}

	s.logger.WithUserID(rec.UserID).WithField("record_id", created.ID).Info("Health record created")
	return created, nil
}

// HealthRecordsByUser lists a user's records, newest first
func (s *Store) HealthRecordsByUser(ctx context.Context, userID string, limit, offset int) ([]types.HealthRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM health_records
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	return s.queryHealthRecords(ctx, query, userID, limit, offset)
}

// HealthRecordsFiltered lists a user's records with optional type/status filters
func (s *Store) HealthRecordsFiltered(ctx context.Context, userID, recordType, status string, limit, offset int) ([]types.HealthRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM health_records
		WHERE user_id = $1`
	args := []interface{}{userID}

	if recordType != "" {
		args = append(args, recordType)
		query += fmt.Sprintf(" AND record_type = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	return s.queryHealthRecords(ctx, query, args...)
}

// CountHealthRecords counts a user's records under the same filters
func (s *Store) CountHealthRecords(ctx context.Context, userID, recordType, status string) (int, error) {
	query := `SELECT COUNT(*) FROM health_records WHERE user_id = $1`
	args := []interface{}{userID}

	if recordType != "" {
		args = append(args, recordType)
		query += fmt.Sprintf(" AND record_type = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count health records: %w", err)
	}
	return count, nil
}

func (s *Store) queryHealthRecords(ctx context.Context, query string, args ...interface{}) ([]types.HealthRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list health records: %w", err)
	}
	defer rows.Close()

	var out []types.HealthRecord
	for rows.Next() {
		rec, err := scanHealthRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan health record: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// HealthRecordByID fetches one record scoped to its owner. A record owned by
// a different user is reported as not found, never returned.
func (s *Store) HealthRecordByID(ctx context.Context, id, userID string) (*types.HealthRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM health_records WHERE id = $1 AND user_id = $2`

	rec, err := scanHealthRecord(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "Health record not found")
		}
		return nil, fmt.Errorf("failed to get health record: %w", err)
	}
	return rec, nil
}

// HealthRecordAnyOwner fetches one record regardless of who owns it.
// Reserved for callers holding a cross-user read or verify permission.
func (s *Store) HealthRecordAnyOwner(ctx context.Context, id string) (*types.HealthRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM health_records WHERE id = $1`

	rec, err := scanHealthRecord(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "Health record not found")
		}
		return nil, fmt.Errorf("failed to get health record: %w", err)
	}
	return rec, nil
}

// RecordOwnerID resolves the owning user of a record without ownership scoping.
// Used by the authorization layer; absence is a typed not-found.
func (s *Store) RecordOwnerID(ctx context.Context, recordID string) (string, error) {
	var ownerID string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM health_records WHERE id = $1`, recordID,
	).Scan(&ownerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", types.NewNotFoundError(types.ErrCodeNotFound, "Health record not found")
		}
		return "", fmt.Errorf("failed to resolve record owner: %w", err)
	}
	return ownerID, nil
}

// updatableRecordColumns is the closed set of columns the general update path
// may touch. Ownership, verification state and timestamps are excluded so a
// forged request body can never reach them.
var updatableRecordColumns = map[string]bool{
	"record_type":   true,
	"title":         true,
	"description":   true,
	"icd11_code":    true,
	"icd11_title":   true,
	"diagnosis":     true,
	"symptoms":      true,
	"medications":   true,
	"test_results":  true,
	"attachments":   true,
	"doctor_name":   true,
	"hospital_name": true,
	"visit_date":    true,
	"severity":      true,
	"status":        true,
}

// UpdateHealthRecord updates only the supplied, allowlisted fields plus the
// updated_at stamp. Returns not-found when no row matches id+userID.
func (s *Store) UpdateHealthRecord(ctx context.Context, id, userID string, fields map[string]interface{}) (*types.HealthRecord, error) {
	columns := make([]string, 0, len(fields))
	for col := range fields {
		if updatableRecordColumns[col] {
			columns = append(columns, col)
		}
	}
	if len(columns) == 0 {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "No updatable fields supplied", nil)
	}
	sort.Strings(columns)

	setClauses := ""
	args := make([]interface{}, 0, len(columns)+2)
	for i, col := range columns {
		val := fields[col]
		if ss, ok := val.([]string); ok {
			val = pq.Array(ss)
		}
		args = append(args, val)
		if i > 0 {
			setClauses += ", "
		}
		setClauses += fmt.Sprintf("%s = $%d", col, len(args))
	}
	setClauses += ", updated_at = CURRENT_TIMESTAMP"

	args = append(args, id)
	idPos := len(args)
	args = append(args, userID)

	query := fmt.Sprintf(`
		UPDATE health_records
		SET %s
		WHERE id = $%d AND user_id = $%d
		RETURNING `+recordColumns, setClauses, idPos, idPos+1)

	rec, err := scanHealthRecord(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "Health record not found")
		}
		return nil, fmt.Errorf("failed to update health record: %w", err)
	}
	return rec, nil
}

// SetVerificationOutcome is the only write path for verification fields
func (s *Store) SetVerificationOutcome(ctx context.Context, id, userID string, status types.VerificationStatus, data json.RawMessage) (*types.HealthRecord, error) {
	query := `
		UPDATE health_records
		SET verification_status = $1, verification_data = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3 AND user_id = $4
		RETURNING ` + recordColumns

	rec, err := scanHealthRecord(s.db.QueryRowContext(ctx, query, status, []byte(data), id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "Health record not found")
		}
		return nil, fmt.Errorf("failed to set verification outcome: %w", err)
	}
	return rec, nil
}

// DeleteHealthRecord removes a record scoped to its owner and returns it
func (s *Store) DeleteHealthRecord(ctx context.Context, id, userID string) (*types.HealthRecord, error) {
	query := `DELETE FROM health_records WHERE id = $1 AND user_id = $2 RETURNING ` + recordColumns

	rec, err := scanHealthRecord(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "Health record not found")
		}
		return nil, fmt.Errorf("failed to delete health record: %w", err)
	}

	s.logger.WithUserID(userID).WithField("record_id", id).Info("Health record deleted")
	return rec, nil
}
