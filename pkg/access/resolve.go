package access

import "strings"

// Source names the level that produced a decision.
type Source string

const (
	SourceSuperAdmin  Source = "super_admin"
	SourceStatus      Source = "status"
	SourceSubSection  Source = "sub_section"
	SourceSection     Source = "section"
	SourceRoleDefault Source = "role_default"
)

// Decision is the outcome of an authorization check. Kind is empty when Allowed.
type Decision struct {
	Allowed bool
	Kind    ErrorKind
	Source  Source
}

func allow(src Source) Decision { return Decision{Allowed: true, Source: src} }

func deny(kind ErrorKind, src Source) Decision {
	return Decision{Kind: kind, Source: src}
}

// OverrideSet indexes a single user's override rows by (section, sub-section).
type OverrideSet struct {
	rows map[CatalogKey]Capabilities
}

// NewOverrideSet builds an index. Later rows replace earlier ones with the same key.
func NewOverrideSet(rows []Override) OverrideSet {
	set := OverrideSet{rows: make(map[CatalogKey]Capabilities, len(rows))}
	for _, r := range rows {
		set.rows[CatalogKey{Section: r.Section, SubSection: r.SubSectionKey()}] = r.Capabilities
	}
	return set
}

// Len returns the number of indexed rows.
func (s OverrideSet) Len() int { return len(s.rows) }

// Lookup returns the row stored for exactly (section, subSection).
func (s OverrideSet) Lookup(section, subSection string) (Capabilities, bool) {
	if s.rows == nil {
		return Capabilities{}, false
	}
	c, ok := s.rows[CatalogKey{Section: section, SubSection: subSection}]
	return c, ok
}

// Authorize evaluates action on (section, subSection) for id. The first matching
// level wins and a matching row is used as a whole:
//
//  1. super_admin is always allowed
//  2. any status other than approved is denied
//  3. an exact (section, subSection) row
//  4. a (section, whole) row
//  5. the role default
//
// An empty subSection means the whole section.
func Authorize(id Identity, set OverrideSet, section, subSection string, action Action) Decision {
	if id.Role == RoleSuperAdmin {
		return allow(SourceSuperAdmin)
	}
	if id.Status != StatusApproved {
		return deny(KindNotApproved, SourceStatus)
	}
	subSection = strings.TrimSpace(subSection)
	if subSection != "" {
		if caps, ok := set.Lookup(section, subSection); ok {
			return decide(caps, action, SourceSubSection)
		}
	}
	if caps, ok := set.Lookup(section, ""); ok {
		return decide(caps, action, SourceSection)
	}
	return decide(DefaultsFor(id.Role), action, SourceRoleDefault)
}

// Resolve is Authorize reduced to a boolean.
func Resolve(id Identity, set OverrideSet, section, subSection string, action Action) bool {
	return Authorize(id, set, section, subSection, action).Allowed
}

func decide(caps Capabilities, action Action, src Source) Decision {
	if caps.Allows(action) {
		return allow(src)
	}
	return deny(KindInsufficientPermission, src)
}
