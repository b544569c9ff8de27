package verification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/imspidey6989/MediBridge/internal/rbac"
	"github.com/imspidey6989/MediBridge/internal/store"
	"github.com/imspidey6989/MediBridge/pkg/logger"
	"github.com/imspidey6989/MediBridge/pkg/monitoring"
	"github.com/imspidey6989/MediBridge/pkg/types"
)

const maxBatchSize = 10

// Service orchestrates record verification: provider call, status update,
// append-only attempt log.
type Service struct {
	store    *store.Store
	provider Provider
	audit    *rbac.AuditLogger
	logger   *logger.Logger
	metrics  *monitoring.MetricsCollector
}

// NewService creates the verification service
func NewService(st *store.Store, provider Provider, audit *rbac.AuditLogger, log *logger.Logger, metrics *monitoring.MetricsCollector) *Service {
	return &Service{
		store:    st,
		provider: provider,
		audit:    audit,
		logger:   log,
		metrics:  metrics,
	}
}

// Result is the outcome of verifying one record
type Result struct {
	RecordID           string                   `json:"recordId"`
	VerificationStatus types.VerificationStatus `json:"verificationStatus"`
	Outcome            *Outcome                 `json:"verificationResult"`
}

// recordFor loads the record a verification call targets. Holders of the
// verify permission reach any record; everyone else only their own.
func (s *Service) recordFor(ctx context.Context, user *types.User, recordID string) (*types.HealthRecord, error) {
	if rbac.HasPermission(user.Role, types.PermVerifyRecords) {
		return s.store.HealthRecordAnyOwner(ctx, recordID)
	}
	return s.store.HealthRecordByID(ctx, recordID, user.ID)
}

// VerifyRecord runs one verification attempt against a record the caller owns
// or is permitted to verify. An already-verified record is rejected before
// the provider is called.
func (s *Service) VerifyRecord(ctx context.Context, user *types.User, recordID, verificationType string) (*Result, error) {
	record, err := s.recordFor(ctx, user, recordID)
	if err != nil {
		return nil, err
	}

	if record.VerificationStatus == types.VerificationVerified {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Record is already verified", nil)
	}

	return s.verify(ctx, user.ID, record, verificationType, false)
}

// BatchResult is the outcome of one record within a batch
type BatchResult struct {
	RecordID   string  `json:"recordId"`
	Success    bool    `json:"success"`
	Status     string  `json:"status,omitempty"`
	Verified   bool    `json:"verified"`
	Confidence float64 `json:"confidence,omitempty"`
	Message    string  `json:"message,omitempty"`
}

// BatchSummary aggregates a batch verification run
type BatchSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// VerifyBatch verifies up to ten records. Size limits are enforced before
// any record is touched; within the batch, individual failures are reported
// per record and do not stop the rest.
func (s *Service) VerifyBatch(ctx context.Context, user *types.User, recordIDs []string, verificationType string) ([]BatchResult, *BatchSummary, error) {
	if len(recordIDs) == 0 {
		return nil, nil, types.NewValidationError(types.ErrCodeInvalidInput, "Record IDs array is required", nil)
	}
	if len(recordIDs) > maxBatchSize {
		return nil, nil, types.NewValidationError(types.ErrCodeInvalidInput,
			fmt.Sprintf("Cannot verify more than %d records at once", maxBatchSize), nil)
	}

	results := make([]BatchResult, 0, len(recordIDs))
	for _, recordID := range recordIDs {
		results = append(results, s.verifyBatchOne(ctx, user, recordID, verificationType))
	}

	summary := &BatchSummary{Total: len(recordIDs)}
	for _, r := range results {
		if r.Success && r.Verified {
			summary.Successful++
		}
	}
	summary.Failed = summary.Total - summary.Successful

	return results, summary, nil
}

func (s *Service) verifyBatchOne(ctx context.Context, user *types.User, recordID, verificationType string) BatchResult {
	record, err := s.recordFor(ctx, user, recordID)
	if err != nil {
		if types.IsNotFound(err) {
			return BatchResult{RecordID: recordID, Success: false, Message: "Record not found"}
		}
		s.logger.WithError(err).Error("Batch verification record lookup failed")
		return BatchResult{RecordID: recordID, Success: false, Message: "Verification failed"}
	}

	if record.VerificationStatus == types.VerificationVerified {
		return BatchResult{RecordID: recordID, Success: true, Verified: true,
			Status: string(types.VerificationVerified), Message: "Already verified"}
	}

	result, err := s.verify(ctx, user.ID, record, verificationType, true)
	if err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"record_id": recordID,
		}).Error("Batch verification failed")
		return BatchResult{RecordID: recordID, Success: false, Message: "Verification failed"}
	}

	return BatchResult{
		RecordID:   recordID,
		Success:    true,
		Status:     string(result.VerificationStatus),
		Verified:   result.Outcome.Verified,
		Confidence: result.Outcome.Confidence,
	}
}

func (s *Service) verify(ctx context.Context, userID string, record *types.HealthRecord, verificationType string, batch bool) (*Result, error) {
	if verificationType == "" {
		verificationType = "full"
	}

	outcome, err := s.provider.Verify(ctx, record, verificationType)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "Verification service unavailable", err)
	}

	status := types.VerificationFailed
	if outcome.Verified {
		status = types.VerificationVerified
	}

	data, err := json.Marshal(outcome)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "Failed to encode verification outcome", err)
	}

	if _, err := s.store.SetVerificationOutcome(ctx, record.ID, record.UserID, status, data); err != nil {
		return nil, err
	}

	verifiedBy := s.provider.DisplayName()
	notes := fmt.Sprintf("Automatic verification with confidence: %.2f%%", outcome.Confidence)
	if batch {
		verifiedBy += " (Batch)"
		notes = fmt.Sprintf("Batch verification with confidence: %.2f%%", outcome.Confidence)
	}

	logType := fmt.Sprintf("%s_%s", s.provider.Name(), verificationType)
	if _, err := s.store.InsertVerificationLog(ctx, record.ID, logType, string(status), data, verifiedBy, notes); err != nil {
		return nil, err
	}

	s.metrics.RecordVerification(string(status))
	s.audit.Record("record_verification", userID, "health_record", record.ID, map[string]interface{}{
		"status":     string(status),
		"confidence": outcome.Confidence,
		"batch":      batch,
	})

	return &Result{
		RecordID:           record.ID,
		VerificationStatus: status,
		Outcome:            outcome,
	}, nil
}

// Stats aggregates verification state for a user's records
type Stats struct {
	OverallStats   map[string]int                  `json:"overallStats"`
	RecentActivity []store.VerificationActivity    `json:"recentActivity"`
	SuccessRates   []store.VerificationSuccessRate `json:"successRates"`
	LastUpdated    time.Time                       `json:"lastUpdated"`
}

// VerificationStats returns counts, recent activity and success rates
func (s *Service) VerificationStats(ctx context.Context, userID string) (*Stats, error) {
	counts, err := s.store.VerificationCounts(ctx, userID)
	if err != nil {
		return nil, err
	}

	activity, err := s.store.RecentVerificationActivity(ctx, userID, 10)
	if err != nil {
		return nil, err
	}

	rates, err := s.store.VerificationSuccessRates(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Stats{
		OverallStats:   counts,
		RecentActivity: activity,
		SuccessRates:   rates,
		LastUpdated:    time.Now().UTC(),
	}, nil
}

// History returns a record's verification attempts, newest first. Ownership
// is enforced the same way as verification calls.
func (s *Service) History(ctx context.Context, user *types.User, recordID string) (*types.HealthRecord, []types.VerificationLog, error) {
	record, err := s.recordFor(ctx, user, recordID)
	if err != nil {
		return nil, nil, err
	}

	logs, err := s.store.VerificationLogsByRecord(ctx, recordID)
	if err != nil {
		return nil, nil, err
	}
	return record, logs, nil
}
