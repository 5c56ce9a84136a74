package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"orgcms.dev/cms/internal/ids"
	"orgcms.dev/cms/internal/obs"
	"orgcms.dev/cms/pkg/access"
)

// PermissionService manages per-user override rows and answers access checks.
type PermissionService struct {
	users       UserStore
	perms       PermissionStore
	audit       AuditStore
	strictAudit bool
	now         func() time.Time
}

// PermissionOption configures a PermissionService.
type PermissionOption func(*PermissionService)

// WithStrictAudit makes audit append failures fail the calling operation.
// The permission change itself is already committed when that happens.
func WithStrictAudit() PermissionOption {
	return func(s *PermissionService) { s.strictAudit = true }
}

// WithPermissionClock overrides time source (useful for tests).
func WithPermissionClock(fn func() time.Time) PermissionOption {
	return func(s *PermissionService) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewPermissionService wires the service. audit may be nil.
func NewPermissionService(users UserStore, perms PermissionStore, audit AuditStore, opts ...PermissionOption) (*PermissionService, error) {
	if users == nil {
		return nil, errors.New("user store is required")
	}
	if perms == nil {
		return nil, errors.New("permission store is required")
	}
	s := &PermissionService{users: users, perms: perms, audit: audit, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Fetch returns the override rows of userID, whole-section rows first.
func (s *PermissionService) Fetch(ctx context.Context, userID string) ([]access.Override, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	rows, err := s.perms.ListOverrides(ctx, userID)
	if err != nil {
		return nil, persistenceError(err)
	}
	sortOverrides(rows)
	return rows, nil
}

// Replace swaps the override set of userID for rows and records one audit entry.
func (s *PermissionService) Replace(ctx context.Context, actor access.Identity, userID string, rows []access.Override) (int, error) {
	return s.replace(ctx, actor, userID, rows, AuditPermissionsReplace)
}

// ResetToRoleDefault rewrites every catalog row of userID to the user's role defaults.
func (s *PermissionService) ResetToRoleDefault(ctx context.Context, actor access.Identity, userID string) (int, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return s.replace(ctx, actor, user.ID, access.DefaultOverrides(user.ID, user.Role), AuditPermissionsReset)
}

// DefaultsForRole returns the catalog defaults for a role name.
func (s *PermissionService) DefaultsForRole(role string) (access.Capabilities, error) {
	r, err := access.ParseRole(role)
	if err != nil {
		return access.Capabilities{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return access.DefaultsFor(r), nil
}

// Snapshot builds the payload the dashboard caches at login.
func (s *PermissionService) Snapshot(ctx context.Context, id access.Identity) (access.Snapshot, error) {
	if id.Role == access.RoleSuperAdmin {
		return access.Snapshot{RoleBased: true, Defaults: access.DefaultsFor(id.Role)}, nil
	}
	rows, err := s.perms.ListOverrides(ctx, id.ID)
	if err != nil {
		return access.Snapshot{}, persistenceError(err)
	}
	if len(rows) == 0 {
		return access.Snapshot{RoleBased: true, Defaults: access.DefaultsFor(id.Role)}, nil
	}
	sortOverrides(rows)
	return access.Snapshot{Overrides: rows}, nil
}

// Check runs the resolver for id against its stored overrides.
func (s *PermissionService) Check(ctx context.Context, id access.Identity, section, subSection string, action access.Action) (access.Decision, error) {
	var set access.OverrideSet
	if id.Role != access.RoleSuperAdmin && id.Status == access.StatusApproved {
		rows, err := s.perms.ListOverrides(ctx, id.ID)
		if err != nil {
			return access.Decision{}, persistenceError(err)
		}
		set = access.NewOverrideSet(rows)
	}
	decision := access.Authorize(id, set, strings.TrimSpace(section), subSection, action)
	obs.ObserveDecision(string(decision.Source), decision.Allowed)
	return decision, nil
}

func (s *PermissionService) replace(ctx context.Context, actor access.Identity, userID string, rows []access.Override, action string) (int, error) {
	ctx, span := obs.Tracer().Start(ctx, action)
	defer span.End()

	userID = strings.TrimSpace(userID)
	span.SetAttributes(attribute.String("cms.user_id", userID), attribute.Int("cms.rows", len(rows)))
	if userID == "" {
		return 0, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	normalized, err := normalizeOverrides(userID, rows)
	if err != nil {
		obs.ObserveReplacement("invalid")
		return 0, err
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return 0, err
	}
	if err := s.perms.ReplaceOverrides(ctx, userID, normalized); err != nil {
		obs.ObserveReplacement("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "replace failed")
		return 0, persistenceError(err)
	}
	obs.ObserveReplacement("ok")

	sections := make([]string, 0, len(normalized))
	seen := make(map[string]struct{}, len(normalized))
	for _, r := range normalized {
		if _, ok := seen[r.Section]; ok {
			continue
		}
		seen[r.Section] = struct{}{}
		sections = append(sections, r.Section)
	}
	if err := s.record(ctx, AuditEntry{
		ActorUserID:  actor.ID,
		Action:       action,
		ResourceType: "user",
		ResourceID:   userID,
		Details:      map[string]any{"count": len(normalized), "sections": sections},
	}); err != nil {
		return len(normalized), err
	}
	return len(normalized), nil
}

func (s *PermissionService) record(ctx context.Context, entry AuditEntry) error {
	if s.audit == nil {
		return nil
	}
	entry.ID = ids.New()
	entry.OccurredAt = s.now().UTC()
	if err := s.audit.AppendAudit(ctx, entry); err != nil {
		obs.Logger().WithError(err).WithField("action", entry.Action).Warn("audit append failed")
		if s.strictAudit {
			return fmt.Errorf("%w: audit append: %v", ErrPersistence, err)
		}
	}
	return nil
}

func normalizeOverrides(userID string, rows []access.Override) ([]access.Override, error) {
	out := make([]access.Override, 0, len(rows))
	seen := make(map[access.CatalogKey]struct{}, len(rows))
	for i, r := range rows {
		r.Section = strings.TrimSpace(strings.ToLower(r.Section))
		if !access.IsKnownSection(r.Section) {
			return nil, fmt.Errorf("%w: permissions[%d]: unknown section %q", ErrInvalidInput, i, r.Section)
		}
		if owner := strings.TrimSpace(r.UserID); owner != "" && owner != userID {
			return nil, fmt.Errorf("%w: permissions[%d]: user_id does not match target", ErrInvalidInput, i)
		}
		r.UserID = userID
		if r.SubSection != nil {
			sub := strings.TrimSpace(*r.SubSection)
			if sub == "" {
				r.SubSection = nil
			} else {
				r.SubSection = &sub
			}
		}
		key := access.CatalogKey{Section: r.Section, SubSection: r.SubSectionKey()}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: permissions[%d]: duplicate row for %s/%s", ErrInvalidInput, i, key.Section, key.SubSection)
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}

func sortOverrides(rows []access.Override) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Section != rows[j].Section {
			return rows[i].Section < rows[j].Section
		}
		return rows[i].SubSectionKey() < rows[j].SubSectionKey()
	})
}

func persistenceError(err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}
