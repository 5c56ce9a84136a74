package audit

import (
	"context"
	"errors"

	"orgcms.dev/cms/internal/auth"
)

// Recorder mirrors audit entries to the structured log before persisting them.
type Recorder struct {
	store auth.AuditStore
}

var _ auth.AuditStore = (*Recorder)(nil)

// NewRecorder wraps store. A nil store yields a log-only recorder.
func NewRecorder(store auth.AuditStore) *Recorder {
	return &Recorder{store: store}
}

// AppendAudit logs entry and appends it to the underlying store.
func (r *Recorder) AppendAudit(ctx context.Context, entry auth.AuditEntry) error {
	if entry.Action == "" {
		return errors.New("audit action is required")
	}
	fields := map[string]any{
		"actor":         entry.ActorUserID,
		"resource_type": entry.ResourceType,
		"resource_id":   entry.ResourceID,
	}
	for k, v := range entry.Details {
		fields[k] = v
	}
	if err := LogEvent(ctx, entry.Action, fields); err != nil {
		return err
	}
	if r.store == nil {
		return nil
	}
	return r.store.AppendAudit(ctx, entry)
}
