package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// InsertAnalyticsEntry appends one metric event for dashboard aggregation.
// Failures are returned to the caller, which treats them as best-effort.
func (s *Store) InsertAnalyticsEntry(ctx context.Context, userID, metricType string, metricValue json.RawMessage) error {
	if len(metricValue) == 0 {
		metricValue = json.RawMessage("{}")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analytics (id, user_id, metric_type, metric_value) VALUES ($1, $2, $3, $4)`,
		uuid.New().String(), userID, metricType, []byte(metricValue))
	if err != nil {
		return fmt.Errorf("failed to insert analytics entry: %w", err)
	}
	return nil
}
