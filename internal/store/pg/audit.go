package pg

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"orgcms.dev/cms/internal/auth"
)

func (s *Store) AppendAudit(ctx context.Context, entry auth.AuditEntry) error {
	if s.db == nil {
		return errNoDB
	}
	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	occurred := entry.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encode audit details: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		insert into audit_logs (id, actor_user_id, action, resource_type, resource_id, details, created_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, nullIfEmpty(entry.ActorUserID), entry.Action, entry.ResourceType, entry.ResourceID, string(raw), occurred)
	return err
}
