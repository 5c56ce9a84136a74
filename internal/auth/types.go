package auth

import (
	"time"

	"orgcms.dev/cms/pkg/access"
)

// User is a CMS account. Role and Status drive every authorization decision.
type User struct {
	ID           string        `json:"id"`
	Username     string        `json:"username"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	Role         access.Role   `json:"role"`
	Status       access.Status `json:"status"`
	CreatedBy    *string       `json:"created_by,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Identity returns the request-scoped subset of the user.
func (u User) Identity() access.Identity {
	return access.Identity{ID: u.ID, Username: u.Username, Role: u.Role, Status: u.Status}
}

// AuditEntry is an append-only record of an administrative action.
type AuditEntry struct {
	ID           string
	OccurredAt   time.Time
	ActorUserID  string
	Action       string
	ResourceType string
	ResourceID   string
	Details      map[string]any
}

// Audit actions recorded by the permission service.
const (
	AuditPermissionsReplace = "permissions.replace"
	AuditPermissionsReset   = "permissions.reset"
	AuditUserCreate         = "user.create"
	AuditUserStatus         = "user.status"
)
