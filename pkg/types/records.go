package types

import (
	"encoding/json"
	"time"
)

// Severity is the clinical severity of a health record
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// VerificationStatus tracks the authenticity check state of a record
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationFailed   VerificationStatus = "failed"
)

// HealthRecord represents one medical event owned by a user
type HealthRecord struct {
	ID                 string             `json:"id" db:"id"`
	UserID             string             `json:"userId" db:"user_id"`
	RecordType         string             `json:"recordType" db:"record_type"`
	Title              string             `json:"title" db:"title"`
	Description        string             `json:"description,omitempty" db:"description"`
	ICD11Code          string             `json:"icd11Code,omitempty" db:"icd11_code"`
	ICD11Title         string             `json:"icd11Title,omitempty" db:"icd11_title"`
	Diagnosis          string             `json:"diagnosis,omitempty" db:"diagnosis"`
	Symptoms           []string           `json:"symptoms,omitempty" db:"symptoms"`
	Medications        json.RawMessage    `json:"medications,omitempty" db:"medications"`
	TestResults        json.RawMessage    `json:"testResults,omitempty" db:"test_results"`
	Attachments        json.RawMessage    `json:"attachments,omitempty" db:"attachments"`
	DoctorName         string             `json:"doctorName,omitempty" db:"doctor_name"`
	HospitalName       string             `json:"hospitalName,omitempty" db:"hospital_name"`
	VisitDate          *time.Time         `json:"visitDate,omitempty" db:"visit_date"`
	Severity           Severity           `json:"severity" db:"severity"`
	Status             string             `json:"status" db:"status"`
	VerificationStatus VerificationStatus `json:"verificationStatus" db:"verification_status"`
	VerificationData   json.RawMessage    `json:"verificationData,omitempty" db:"verification_data"`
	CreatedAt          time.Time          `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time          `json:"updatedAt" db:"updated_at"`
}

// MedicalHistory represents a diagnosed condition owned by a user
type MedicalHistory struct {
	ID            string     `json:"id" db:"id"`
	UserID        string     `json:"userId" db:"user_id"`
	ConditionName string     `json:"conditionName" db:"condition_name"`
	ICD11Code     string     `json:"icd11Code,omitempty" db:"icd11_code"`
	DiagnosedDate *time.Time `json:"diagnosedDate,omitempty" db:"diagnosed_date"`
	Status        string     `json:"status" db:"status"`
	Notes         string     `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
}

// Medication represents a prescription owned by a user
type Medication struct {
	ID             string     `json:"id" db:"id"`
	UserID         string     `json:"userId" db:"user_id"`
	MedicationName string     `json:"medicationName" db:"medication_name"`
	Dosage         string     `json:"dosage,omitempty" db:"dosage"`
	Frequency      string     `json:"frequency,omitempty" db:"frequency"`
	PrescribedBy   string     `json:"prescribedBy,omitempty" db:"prescribed_by"`
	StartDate      *time.Time `json:"startDate,omitempty" db:"start_date"`
	EndDate        *time.Time `json:"endDate,omitempty" db:"end_date"`
	Status         string     `json:"status" db:"status"`
	Notes          string     `json:"notes,omitempty" db:"notes"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
}

// VerificationLog is an append-only record of one verification attempt
type VerificationLog struct {
	ID               string          `json:"id" db:"id"`
	RecordID         string          `json:"recordId" db:"record_id"`
	VerificationType string          `json:"verificationType" db:"verification_type"`
	Status           string          `json:"status" db:"status"`
	VerificationData json.RawMessage `json:"verificationData,omitempty" db:"verification_data"`
	VerifiedBy       string          `json:"verifiedBy,omitempty" db:"verified_by"`
	VerifiedAt       time.Time       `json:"verifiedAt" db:"verified_at"`
	Notes            string          `json:"notes,omitempty" db:"notes"`
}

// AnalyticsEntry is an append-only metric used for dashboard aggregation
type AnalyticsEntry struct {
	ID           string          `json:"id" db:"id"`
	UserID       string          `json:"userId" db:"user_id"`
	MetricType   string          `json:"metricType" db:"metric_type"`
	MetricValue  json.RawMessage `json:"metricValue" db:"metric_value"`
	DateRecorded time.Time       `json:"dateRecorded" db:"date_recorded"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
}

// AuditEntry records one sensitive operation, best-effort
type AuditEntry struct {
	ID           string          `json:"id" db:"id"`
	Action       string          `json:"action" db:"action"`
	UserID       string          `json:"userId" db:"user_id"`
	ResourceType string          `json:"resourceType" db:"resource_type"`
	ResourceID   string          `json:"resourceId,omitempty" db:"resource_id"`
	Details      json.RawMessage `json:"details,omitempty" db:"details"`
	Timestamp    time.Time       `json:"timestamp" db:"timestamp"`
}

// DashboardStats holds the five aggregate counts for the dashboard overview
type DashboardStats struct {
	TotalRecords      int `json:"totalRecords"`
	RecentRecords     int `json:"recentRecords"`
	VerifiedRecords   int `json:"verifiedRecords"`
	ActiveConditions  int `json:"activeConditions"`
	ActiveMedications int `json:"activeMedications"`
}

// Pagination is the metadata attached to list responses
type Pagination struct {
	CurrentPage     int  `json:"currentPage"`
	TotalPages      int  `json:"totalPages"`
	TotalRecords    int  `json:"totalRecords"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// NewPagination computes pagination metadata for a page/limit/total triple
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		CurrentPage:     page,
		TotalPages:      totalPages,
		TotalRecords:    total,
		HasNextPage:     page*limit < total,
		HasPreviousPage: page > 1,
	}
}
