package access

import (
	"encoding/json"
	"fmt"
)

// Snapshot is a user's effective permission payload as served to clients.
// A role-based snapshot carries only the role defaults; otherwise it carries
// the user's override rows and falls back to role defaults per the resolver.
type Snapshot struct {
	RoleBased bool
	Defaults  Capabilities
	Overrides []Override
}

type snapshotWire struct {
	RoleBased   bool            `json:"roleBased"`
	Permissions json.RawMessage `json:"permissions"`
}

// MarshalJSON encodes {"roleBased": true, "permissions": {...}} or
// {"roleBased": false, "permissions": [...]}.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var (
		payload []byte
		err     error
	)
	if s.RoleBased {
		payload, err = json.Marshal(s.Defaults)
	} else {
		rows := s.Overrides
		if rows == nil {
			rows = []Override{}
		}
		payload, err = json.Marshal(rows)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(snapshotWire{RoleBased: s.RoleBased, Permissions: payload})
}

// UnmarshalJSON decodes either snapshot shape.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var wire snapshotWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	out := Snapshot{RoleBased: wire.RoleBased}
	if len(wire.Permissions) == 0 {
		return fmt.Errorf("snapshot: permissions missing")
	}
	if wire.RoleBased {
		if err := json.Unmarshal(wire.Permissions, &out.Defaults); err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
	} else if err := json.Unmarshal(wire.Permissions, &out.Overrides); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	*s = out
	return nil
}

// Authorize evaluates the snapshot for id with the same precedence as the
// server resolver. Role-based snapshots answer from the embedded defaults.
func (s Snapshot) Authorize(id Identity, section, subSection string, action Action) Decision {
	if !s.RoleBased {
		return Authorize(id, NewOverrideSet(s.Overrides), section, subSection, action)
	}
	if id.Role == RoleSuperAdmin {
		return allow(SourceSuperAdmin)
	}
	if id.Status != StatusApproved {
		return deny(KindNotApproved, SourceStatus)
	}
	return decide(s.Defaults, action, SourceRoleDefault)
}
