package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// InsertAuditEntry persists one audit row. Callers never block user-facing
// work on this; the audit pipeline treats failures as droppable.
func (s *Store) InsertAuditEntry(ctx context.Context, action, userID, resourceType, resourceID string, details json.RawMessage) error {
	if len(details) == 0 {
		details = json.RawMessage("{}")
	}

	var resource interface{}
	if resourceID != "" {
		resource = resourceID
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, action, user_id, resource_type, resource_id, details)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), action, userID, resourceType, resource, []byte(details))
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}
