package access

var roleDefaults = map[Role]Capabilities{
	RoleSuperAdmin: {CanView: true, CanCreate: true, CanEdit: true, CanDelete: true, CanPublish: true},
	RoleAdmin:      {CanView: true, CanCreate: true, CanEdit: true, CanDelete: true, CanPublish: true},
	RoleEditor:     {CanView: true, CanCreate: true, CanEdit: true},
	RoleViewer:     {CanView: true},
}

// DefaultsFor returns the fixed capability set of role. Unknown roles get nothing.
func DefaultsFor(role Role) Capabilities {
	return roleDefaults[role]
}

// DefaultOverrides materializes the role defaults as one row per catalog pair.
func DefaultOverrides(userID string, role Role) []Override {
	caps := DefaultsFor(role)
	pairs := CatalogPairs()
	rows := make([]Override, 0, len(pairs))
	for _, p := range pairs {
		row := Override{UserID: userID, Section: p.Section, Capabilities: caps}
		if p.SubSection != "" {
			row.SubSection = StringPtr(p.SubSection)
		}
		rows = append(rows, row)
	}
	return rows
}
