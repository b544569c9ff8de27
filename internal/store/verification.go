package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/imspidey6989/MediBridge/pkg/types"
)

const verificationLogColumns = `id, record_id, verification_type, status,
	verification_data, COALESCE(verified_by, ''), verified_at, COALESCE(notes, '')`

func scanVerificationLog(row rowScanner) (*types.VerificationLog, error) {
	var l types.VerificationLog
	err := row.Scan(
		&l.ID,
		&l.RecordID,
		&l.VerificationType,
		&l.Status,
		&l.VerificationData,
		&l.VerifiedBy,
		&l.VerifiedAt,
		&l.Notes,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// InsertVerificationLog appends one verification attempt for a record
func (s *Store) InsertVerificationLog(ctx context.Context, recordID, verificationType, status string, data json.RawMessage, verifiedBy, notes string) (*types.VerificationLog, error) {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}

	query := `
		INSERT INTO verification_logs (id, record_id, verification_type, status, verification_data, verified_by, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + verificationLogColumns

	l, err := scanVerificationLog(s.db.QueryRowContext(ctx, query,
		uuid.New().String(), recordID, verificationType, status, []byte(data), verifiedBy, notes))
	if err != nil {
		return nil, fmt.Errorf("failed to insert verification log: %w", err)
	}
	return l, nil
}

// VerificationLogsByRecord lists a record's verification attempts, newest first
func (s *Store) VerificationLogsByRecord(ctx context.Context, recordID string) ([]types.VerificationLog, error) {
	query := `
		SELECT ` + verificationLogColumns + `
		FROM verification_logs
		WHERE record_id = $1
		ORDER BY verified_at DESC`

	rows, err := s.db.QueryContext(ctx, query, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to list verification logs: %w", err)
	}
	defer rows.Close()

	var out []types.VerificationLog
	for rows.Next() {
		l, err := scanVerificationLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan verification log: %w", err)
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// VerificationCounts aggregates a user's records by verification status
func (s *Store) VerificationCounts(ctx context.Context, userID string) (map[string]int, error) {
	query := `
		SELECT verification_status, COUNT(*)
		FROM health_records
		WHERE user_id = $1
		GROUP BY verification_status`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate verification counts: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan verification count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// VerificationActivity is one verification attempt joined to its record title
type VerificationActivity struct {
	LogID       string    `json:"logId"`
	RecordID    string    `json:"recordId"`
	RecordTitle string    `json:"recordTitle"`
	Status      string    `json:"status"`
	VerifiedAt  time.Time `json:"verifiedAt"`
}

// VerificationSuccessRate aggregates verification attempts per type
type VerificationSuccessRate struct {
	Type        string  `json:"type"`
	Total       int     `json:"total"`
	Successful  int     `json:"successful"`
	SuccessRate float64 `json:"successRate"`
}

// VerificationSuccessRates computes per-type success rates across the
// verification attempts against a user's records
func (s *Store) VerificationSuccessRates(ctx context.Context, userID string) ([]VerificationSuccessRate, error) {
	query := `
		SELECT vl.verification_type, COUNT(*) AS total,
			COUNT(CASE WHEN vl.status = 'verified' THEN 1 END) AS successful
		FROM verification_logs vl
		JOIN health_records hr ON hr.id = vl.record_id
		WHERE hr.user_id = $1
		GROUP BY vl.verification_type`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate verification success rates: %w", err)
	}
	defer rows.Close()

	var out []VerificationSuccessRate
	for rows.Next() {
		var r VerificationSuccessRate
		if err := rows.Scan(&r.Type, &r.Total, &r.Successful); err != nil {
			return nil, fmt.Errorf("failed to scan verification success rate: %w", err)
		}
		if r.Total > 0 {
			r.SuccessRate = float64(r.Successful) / float64(r.Total) * 100
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecentVerificationActivity lists the latest verification attempts against a
// user's records, joined back to record titles for display
func (s *Store) RecentVerificationActivity(ctx context.Context, userID string, limit int) ([]VerificationActivity, error) {
	query := `
		SELECT vl.id, vl.record_id, hr.title, vl.status, vl.verified_at
		FROM verification_logs vl
		JOIN health_records hr ON hr.id = vl.record_id
		WHERE hr.user_id = $1
		ORDER BY vl.verified_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list verification activity: %w", err)
	}
	defer rows.Close()

	var out []VerificationActivity
	for rows.Next() {
		var a VerificationActivity
		if err := rows.Scan(&a.LogID, &a.RecordID, &a.RecordTitle, &a.Status, &a.VerifiedAt); err != nil {
			return nil, fmt.Errorf("failed to scan verification activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
