package access

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Role is the coarse identity classification of a user.
type Role string

const (
	RoleViewer     Role = "viewer"
	RoleEditor     Role = "editor"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Roles lists every known role from least to most privileged.
var Roles = []Role{RoleViewer, RoleEditor, RoleAdmin, RoleSuperAdmin}

// Status is the account approval state of a user.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusSuspended Status = "suspended"
)

// Action is one of the five capabilities tracked per section.
type Action string

const (
	ActionView    Action = "view"
	ActionCreate  Action = "create"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionPublish Action = "publish"
)

// Actions lists the actions in column order.
var Actions = []Action{ActionView, ActionCreate, ActionEdit, ActionDelete, ActionPublish}

var (
	ErrUnknownRole        = errors.New("access: unknown role")
	ErrUnknownStatus      = errors.New("access: unknown status")
	ErrUnknownAction      = errors.New("access: unknown action")
	ErrIncompleteOverride = errors.New("access: override row is incomplete")
)

// ParseRole normalizes s and returns the matching role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// ParseStatus normalizes s and returns the matching status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusApproved, StatusRejected, StatusSuspended:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// ParseAction normalizes s and returns the matching action.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Actions {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Identity is what the auth gate attaches to an authenticated request.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Status   Status `json:"status"`
}

// Capabilities is a full set of the five action flags.
type Capabilities struct {
	CanView    bool `json:"can_view"`
	CanCreate  bool `json:"can_create"`
	CanEdit    bool `json:"can_edit"`
	CanDelete  bool `json:"can_delete"`
	CanPublish bool `json:"can_publish"`
}

// Allows reports the flag for action. Unknown actions are denied.
func (c Capabilities) Allows(action Action) bool {
	switch action {
	case ActionView:
		return c.CanView
	case ActionCreate:
		return c.CanCreate
	case ActionEdit:
		return c.CanEdit
	case ActionDelete:
		return c.CanDelete
	case ActionPublish:
		return c.CanPublish
	default:
		return false
	}
}

// Override is a persisted per-user capability row for a section or one of its
// sub-sections. A nil SubSection covers the whole section.
type Override struct {
	UserID     string  `json:"user_id,omitempty"`
	Section    string  `json:"section"`
	SubSection *string `json:"sub_section"`
	Capabilities
}

// SubSectionKey returns the sub-section or "" for a section-level row.
func (o Override) SubSectionKey() string {
	if o.SubSection == nil {
		return ""
	}
	return *o.SubSection
}

// UnmarshalJSON rejects rows that do not carry all five flags.
func (o *Override) UnmarshalJSON(data []byte) error {
	var raw struct {
		UserID     string  `json:"user_id"`
		Section    string  `json:"section"`
		SubSection *string `json:"sub_section"`
		CanView    *bool   `json:"can_view"`
		CanCreate  *bool   `json:"can_create"`
		CanEdit    *bool   `json:"can_edit"`
		CanDelete  *bool   `json:"can_delete"`
		CanPublish *bool   `json:"can_publish"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var missing []string
	flags := []struct {
		name string
		v    *bool
	}{
		{"can_view", raw.CanView},
		{"can_create", raw.CanCreate},
		{"can_edit", raw.CanEdit},
		{"can_delete", raw.CanDelete},
		{"can_publish", raw.CanPublish},
	}
	for _, f := range flags {
		if f.v == nil {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteOverride, strings.Join(missing, ", "))
	}
	*o = Override{
		UserID:     raw.UserID,
		Section:    raw.Section,
		SubSection: raw.SubSection,
		Capabilities: Capabilities{
			CanView:    *raw.CanView,
			CanCreate:  *raw.CanCreate,
			CanEdit:    *raw.CanEdit,
			CanDelete:  *raw.CanDelete,
			CanPublish: *raw.CanPublish,
		},
	}
	return nil
}

// StringPtr is a small helper for building sub-section keys.
func StringPtr(s string) *string { return &s }
