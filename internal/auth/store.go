package auth

import (
	"context"

	"orgcms.dev/cms/pkg/access"
)

// UserStore persists accounts. Lookups of missing users return ErrNotFound.
type UserStore interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	FindUserByLogin(ctx context.Context, login string) (User, error)
	UpdateUserStatus(ctx context.Context, id string, status access.Status) (User, error)
}

// PermissionStore persists per-user override rows.
type PermissionStore interface {
	// ListOverrides returns rows ordered by section, whole-section row first.
	ListOverrides(ctx context.Context, userID string) ([]access.Override, error)
	// ReplaceOverrides swaps the full row set for userID atomically.
	// On any error the previous set must remain intact.
	ReplaceOverrides(ctx context.Context, userID string, rows []access.Override) error
}

// AuditStore appends audit entries.
type AuditStore interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
}
