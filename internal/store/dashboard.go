package store

import (
	"context"
	"fmt"
	"time"

	"github.com/imspidey6989/MediBridge/pkg/types"
)

// periodIntervals maps the supported analytics periods to SQL intervals.
// The lookup doubles as validation so query strings never carry user input.
var periodIntervals = map[string]string{
	"7d":  "7 days",
	"30d": "30 days",
	"90d": "90 days",
	"1y":  "1 year",
}

// ValidPeriod reports whether p is a supported analytics period
func ValidPeriod(p string) bool {
	_, ok := periodIntervals[p]
	return ok
}

// DashboardStats computes the five headline counts for a user
func (s *Store) DashboardStats(ctx context.Context, userID string) (*types.DashboardStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM health_records WHERE user_id = $1),
			(SELECT COUNT(*) FROM health_records WHERE user_id = $1 AND created_at >= NOW() - INTERVAL '30 days'),
			(SELECT COUNT(*) FROM health_records WHERE user_id = $1 AND verification_status = 'verified'),
			(SELECT COUNT(*) FROM medical_history WHERE user_id = $1 AND status = 'active'),
			(SELECT COUNT(*) FROM medications WHERE user_id = $1 AND status = 'active')`

	var stats types.DashboardStats
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&stats.TotalRecords,
		&stats.RecentRecords,
		&stats.VerifiedRecords,
		&stats.ActiveConditions,
		&stats.ActiveMedications,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute dashboard stats: %w", err)
	}
	return &stats, nil
}

// MonthlyRecordCount is one month/type bucket of record creation volume
type MonthlyRecordCount struct {
	Month       time.Time `json:"month"`
	RecordCount int       `json:"recordCount"`
	RecordType  string    `json:"recordType"`
}

// MonthlyRecordCounts buckets the last six months of records by month and type
func (s *Store) MonthlyRecordCounts(ctx context.Context, userID string) ([]MonthlyRecordCount, error) {
	query := `
		SELECT DATE_TRUNC('month', created_at) AS month, COUNT(*) AS record_count, record_type
		FROM health_records
		WHERE user_id = $1 AND created_at >= NOW() - INTERVAL '6 months'
		GROUP BY DATE_TRUNC('month', created_at), record_type
		ORDER BY month DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate monthly records: %w", err)
	}
	defer rows.Close()

	var out []MonthlyRecordCount
	for rows.Next() {
		var m MonthlyRecordCount
		if err := rows.Scan(&m.Month, &m.RecordCount, &m.RecordType); err != nil {
			return nil, fmt.Errorf("failed to scan monthly record count: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SeverityCount is one severity bucket
type SeverityCount struct {
	Severity string `json:"severity"`
	Count    int    `json:"count"`
}

// SeverityDistribution buckets a user's records by severity
func (s *Store) SeverityDistribution(ctx context.Context, userID string) ([]SeverityCount, error) {
	query := `
		SELECT severity, COUNT(*)
		FROM health_records
		WHERE user_id = $1
		GROUP BY severity`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate severity distribution: %w", err)
	}
	defer rows.Close()

	var out []SeverityCount
	for rows.Next() {
		var c SeverityCount
		if err := rows.Scan(&c.Severity, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan severity count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RecordTypeCount is one record-type bucket
type RecordTypeCount struct {
	RecordType string `json:"recordType"`
	Count      int    `json:"count"`
}

// RecordCountsByType buckets a user's records by record type
func (s *Store) RecordCountsByType(ctx context.Context, userID string) ([]RecordTypeCount, error) {
	query := `
		SELECT record_type, COUNT(*)
		FROM health_records
		WHERE user_id = $1
		GROUP BY record_type`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate records by type: %w", err)
	}
	defer rows.Close()

	var out []RecordTypeCount
	for rows.Next() {
		var c RecordTypeCount
		if err := rows.Scan(&c.RecordType, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan record type count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// TimeSeriesPoint is one day/type bucket of record creation volume
type TimeSeriesPoint struct {
	Date       time.Time `json:"date"`
	Count      int       `json:"count"`
	RecordType string    `json:"recordType"`
}

// RecordTimeSeries buckets records created within the period by day and type
func (s *Store) RecordTimeSeries(ctx context.Context, userID, period string) ([]TimeSeriesPoint, error) {
	interval, ok := periodIntervals[period]
	if !ok {
		interval = periodIntervals["30d"]
	}

	query := fmt.Sprintf(`
		SELECT DATE_TRUNC('day', created_at) AS date, COUNT(*) AS count, record_type
		FROM health_records
		WHERE user_id = $1 AND created_at >= NOW() - INTERVAL '%s'
		GROUP BY DATE_TRUNC('day', created_at), record_type
		ORDER BY date ASC`, interval)

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate record time series: %w", err)
	}
	defer rows.Close()

	var out []TimeSeriesPoint
	for rows.Next() {
		var p TimeSeriesPoint
		if err := rows.Scan(&p.Date, &p.Count, &p.RecordType); err != nil {
			return nil, fmt.Errorf("failed to scan time series point: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ConditionFrequency is one ICD-11 condition and how often it appears
type ConditionFrequency struct {
	ICD11Code  string `json:"icd11Code"`
	ICD11Title string `json:"icd11Title"`
	Frequency  int    `json:"frequency"`
}

// TopConditions lists the ten most frequent coded conditions in the period
func (s *Store) TopConditions(ctx context.Context, userID, period string) ([]ConditionFrequency, error) {
	interval, ok := periodIntervals[period]
	if !ok {
		interval = periodIntervals["30d"]
	}

	query := fmt.Sprintf(`
		SELECT icd11_code, COALESCE(icd11_title, ''), COUNT(*) AS frequency
		FROM health_records
		WHERE user_id = $1 AND icd11_code IS NOT NULL AND created_at >= NOW() - INTERVAL '%s'
		GROUP BY icd11_code, icd11_title
		ORDER BY frequency DESC
		LIMIT 10`, interval)

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate top conditions: %w", err)
	}
	defer rows.Close()

	var out []ConditionFrequency
	for rows.Next() {
		var c ConditionFrequency
		if err := rows.Scan(&c.ICD11Code, &c.ICD11Title, &c.Frequency); err != nil {
			return nil, fmt.Errorf("failed to scan condition frequency: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ProviderVisits is one hospital and its visit count
type ProviderVisits struct {
	Provider   string `json:"provider"`
	VisitCount int    `json:"visitCount"`
}

// ProviderStats lists the five most visited providers in the period
func (s *Store) ProviderStats(ctx context.Context, userID, period string) ([]ProviderVisits, error) {
	interval, ok := periodIntervals[period]
	if !ok {
		interval = periodIntervals["30d"]
	}

	query := fmt.Sprintf(`
		SELECT COALESCE(hospital_name, 'Unknown Hospital') AS provider, COUNT(*) AS visit_count
		FROM health_records
		WHERE user_id = $1 AND created_at >= NOW() - INTERVAL '%s'
		GROUP BY hospital_name
		ORDER BY visit_count DESC
		LIMIT 5`, interval)

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate provider stats: %w", err)
	}
	defer rows.Close()

	var out []ProviderVisits
	for rows.Next() {
		var p ProviderVisits
		if err := rows.Scan(&p.Provider, &p.VisitCount); err != nil {
			return nil, fmt.Errorf("failed to scan provider visits: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// HealthScorePoint is one week of derived health score
type HealthScorePoint struct {
	Week        time.Time `json:"week"`
	HealthScore float64   `json:"healthScore"`
}

// HealthScoreTrend derives a weekly score from severity and verification
// state over the last twelve weeks. Mild verified records score highest.
func (s *Store) HealthScoreTrend(ctx context.Context, userID string) ([]HealthScorePoint, error) {
	query := `
		SELECT DATE_TRUNC('week', created_at) AS week,
			AVG(
				CASE
					WHEN severity = 'mild' AND verification_status = 'verified' THEN 4
					WHEN severity = 'mild' AND verification_status = 'pending' THEN 3
					WHEN severity = 'moderate' AND verification_status = 'verified' THEN 2
					WHEN severity = 'severe' THEN 1
					ELSE 2
				END
			) AS health_score
		FROM health_records
		WHERE user_id = $1 AND created_at >= NOW() - INTERVAL '12 weeks'
		GROUP BY DATE_TRUNC('week', created_at)
		ORDER BY week ASC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute health score trend: %w", err)
	}
	defer rows.Close()

	var out []HealthScorePoint
	for rows.Next() {
		var p HealthScorePoint
		if err := rows.Scan(&p.Week, &p.HealthScore); err != nil {
			return nil, fmt.Errorf("failed to scan health score point: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MedicationTrendPoint is one month of prescription volume
type MedicationTrendPoint struct {
	Month             time.Time `json:"month"`
	TotalMedications  int       `json:"totalMedications"`
	ActiveMedications int       `json:"activeMedications"`
}

// MedicationTrend buckets the last six months of prescriptions by month
func (s *Store) MedicationTrend(ctx context.Context, userID string) ([]MedicationTrendPoint, error) {
	query := `
		SELECT DATE_TRUNC('month', created_at) AS month,
			COUNT(*) AS total_medications,
			COUNT(CASE WHEN status = 'active' THEN 1 END) AS active_medications
		FROM medications
		WHERE user_id = $1 AND created_at >= NOW() - INTERVAL '6 months'
		GROUP BY DATE_TRUNC('month', created_at)
		ORDER BY month ASC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute medication trend: %w", err)
	}
	defer rows.Close()

	var out []MedicationTrendPoint
	for rows.Next() {
		var p MedicationTrendPoint
		if err := rows.Scan(&p.Month, &p.TotalMedications, &p.ActiveMedications); err != nil {
			return nil, fmt.Errorf("failed to scan medication trend point: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MedicationReminder is an active prescription ending within the next week
type MedicationReminder struct {
	ID             string     `json:"id"`
	MedicationName string     `json:"medicationName"`
	EndDate        *time.Time `json:"endDate"`
	Dosage         string     `json:"dosage"`
	Frequency      string     `json:"frequency"`
	DaysRemaining  int        `json:"daysRemaining"`
}

// MedicationReminders lists active prescriptions ending within seven days
func (s *Store) MedicationReminders(ctx context.Context, userID string) ([]MedicationReminder, error) {
	query := `
		SELECT id, medication_name, end_date, COALESCE(dosage, ''), COALESCE(frequency, ''),
			(end_date - CURRENT_DATE) AS days_remaining
		FROM medications
		WHERE user_id = $1
			AND status = 'active'
			AND end_date IS NOT NULL
			AND end_date BETWEEN CURRENT_DATE AND CURRENT_DATE + INTERVAL '7 days'
		ORDER BY end_date ASC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list medication reminders: %w", err)
	}
	defer rows.Close()

	var out []MedicationReminder
	for rows.Next() {
		var r MedicationReminder
		var end time.Time
		if err := rows.Scan(&r.ID, &r.MedicationName, &end, &r.Dosage, &r.Frequency, &r.DaysRemaining); err != nil {
			return nil, fmt.Errorf("failed to scan medication reminder: %w", err)
		}
		r.EndDate = &end
		out = append(out, r)
	}
	return out, rows.Err()
}

// FollowUpReminder is a record still pending verification after a week
type FollowUpReminder struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	RecordType         string    `json:"recordType"`
	CreatedAt          time.Time `json:"createdAt"`
	VerificationStatus string    `json:"verificationStatus"`
}

// FollowUpReminders lists up to five records pending verification for over a week
func (s *Store) FollowUpReminders(ctx context.Context, userID string) ([]FollowUpReminder, error) {
	query := `
		SELECT id, title, record_type, created_at, verification_status
		FROM health_records
		WHERE user_id = $1
			AND verification_status = 'pending'
			AND created_at <= NOW() - INTERVAL '7 days'
		ORDER BY created_at ASC
		LIMIT 5`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list follow-up reminders: %w", err)
	}
	defer rows.Close()

	var out []FollowUpReminder
	for rows.Next() {
		var r FollowUpReminder
		if err := rows.Scan(&r.ID, &r.Title, &r.RecordType, &r.CreatedAt, &r.VerificationStatus); err != nil {
			return nil, fmt.Errorf("failed to scan follow-up reminder: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
