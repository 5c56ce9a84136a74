package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgcms.dev/cms/internal/auth"
	"orgcms.dev/cms/pkg/access"
)

func TestMyPermissionsSnapshot(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/permissions/my-permissions", f.token("editor"), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var snap access.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.True(t, snap.RoleBased)
	assert.Equal(t, access.DefaultsFor(access.RoleEditor), snap.Defaults)

	f.store.overrides["editor"] = []access.Override{
		{UserID: "editor", Section: "media", SubSection: access.StringPtr("blogs"), Capabilities: access.Capabilities{CanView: true}},
	}
	rr = f.do(http.MethodGet, "/permissions/my-permissions", f.token("editor"), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.False(t, snap.RoleBased)
	require.Len(t, snap.Overrides, 1)
	assert.Equal(t, "blogs", snap.Overrides[0].SubSectionKey())
}

func TestReplaceUserPermissions(t *testing.T) {
	f := newFixture(t)
	body := `{"permissions":[
		{"section":"media","sub_section":"blogs","can_view":true,"can_create":false,"can_edit":false,"can_delete":false,"can_publish":false},
		{"section":"media","sub_section":null,"can_view":true,"can_create":true,"can_edit":true,"can_delete":false,"can_publish":false}
	]}`
	rr := f.do(http.MethodPut, "/permissions/user/editor", f.token("admin"), body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decodeBody(t, rr)
	assert.Equal(t, "Permissions updated successfully", resp["message"])
	assert.Equal(t, float64(2), resp["updatedCount"])

	require.Len(t, f.store.audit, 1)
	assert.Equal(t, auth.AuditPermissionsReplace, f.store.audit[0].Action)
	assert.Equal(t, "admin", f.store.audit[0].ActorUserID)

	rr = f.do(http.MethodGet, "/permissions/user/editor", f.token("admin"), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var rows []access.Override
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Nil(t, rows[0].SubSection)
	assert.Equal(t, "blogs", rows[1].SubSectionKey())
}

func TestReplaceRejectsIncompleteRow(t *testing.T) {
	f := newFixture(t)
	prior := []access.Override{{UserID: "editor", Section: "team", Capabilities: access.Capabilities{CanView: true}}}
	f.store.overrides["editor"] = prior

	rr := f.do(http.MethodPut, "/permissions/user/editor", f.token("admin"),
		`{"permissions":[{"section":"media","sub_section":null,"can_view":true}]}`)
	body := expectError(t, rr, http.StatusBadRequest, "ValidationError")
	assert.Contains(t, body["error"], "can_create")
	assert.Equal(t, prior, f.store.overrides["editor"])

	expectError(t, f.do(http.MethodPut, "/permissions/user/editor", f.token("admin"), `{}`), http.StatusBadRequest, "ValidationError")
	expectError(t, f.do(http.MethodPut, "/permissions/user/editor", f.token("admin"), `{"permissions":[{"section":"payments","sub_section":null,"can_view":true,"can_create":true,"can_edit":true,"can_delete":true,"can_publish":true}]}`), http.StatusBadRequest, "ValidationError")
	assert.Empty(t, f.store.audit)
}

func TestReplaceUnknownUserAndStoreFailure(t *testing.T) {
	f := newFixture(t)
	expectError(t, f.do(http.MethodPut, "/permissions/user/ghost", f.token("admin"), `{"permissions":[]}`), http.StatusNotFound, "NotFound")

	f.store.replaceErr = errors.New("deadlock detected")
	body := expectError(t, f.do(http.MethodPut, "/permissions/user/editor", f.token("admin"), `{"permissions":[]}`), http.StatusInternalServerError, "PersistenceError")
	assert.Equal(t, "Internal server error", body["error"])
}

func TestResetUserPermissions(t *testing.T) {
	f := newFixture(t)
	rr := f.do(http.MethodPost, "/permissions/user/viewer/reset", f.token("root"), nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decodeBody(t, rr)
	assert.Equal(t, float64(len(access.CatalogPairs())), resp["updatedCount"])
	for _, row := range f.store.overrides["viewer"] {
		assert.Equal(t, access.DefaultsFor(access.RoleViewer), row.Capabilities)
	}
	require.Len(t, f.store.audit, 1)
	assert.Equal(t, auth.AuditPermissionsReset, f.store.audit[0].Action)

	expectError(t, f.do(http.MethodPost, "/permissions/user/viewer/reset", f.token("editor"), nil), http.StatusForbidden, "InsufficientPermission")
}

func TestRoleDefaultsEndpoint(t *testing.T) {
	f := newFixture(t)
	rr := f.do(http.MethodGet, "/permissions/role/editor", f.token("viewer"), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"can_view":true,"can_create":true,"can_edit":true,"can_delete":false,"can_publish":false}`, rr.Body.String())

	expectError(t, f.do(http.MethodGet, "/permissions/role/owner", f.token("viewer"), nil), http.StatusBadRequest, "ValidationError")
}

func TestCheckEndpoint(t *testing.T) {
	f := newFixture(t)
	rr := f.do(http.MethodGet, "/permissions/check?section=reports&action=view", f.token("viewer"), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeBody(t, rr)
	assert.Equal(t, true, resp["allowed"])
	assert.Equal(t, "role_default", resp["source"])

	rr = f.do(http.MethodGet, "/permissions/check?section=reports&action=edit", f.token("viewer"), nil)
	resp = decodeBody(t, rr)
	assert.Equal(t, false, resp["allowed"])
	assert.Equal(t, "InsufficientPermission", resp["reason"])

	expectError(t, f.do(http.MethodGet, "/permissions/check?section=reports&action=approve", f.token("viewer"), nil), http.StatusBadRequest, "ValidationError")
	expectError(t, f.do(http.MethodGet, "/permissions/check?action=view", f.token("viewer"), nil), http.StatusBadRequest, "ValidationError")
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	for _, id := range []string{"editor", "pending"} {
		u := f.store.users[id]
		u.PasswordHash = hash
		f.store.users[id] = u
	}

	rr := f.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"username": "editor", "password": "correct horse"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decodeBody(t, rr)
	token, _ := resp["token"].(string)
	require.NotEmpty(t, token)
	user, _ := resp["user"].(map[string]any)
	assert.Equal(t, "editor", user["id"])
	assert.NotContains(t, rr.Body.String(), "password")

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/permissions/my-permissions", token, nil).Code)

	body := expectError(t, f.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "editor@example.org", "password": "nope"}), http.StatusUnauthorized, "AuthenticationRequired")
	assert.Equal(t, "Invalid credentials", body["error"])
	expectError(t, f.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"username": "pending", "password": "correct horse"}), http.StatusForbidden, "NotApproved")
	expectError(t, f.do(http.MethodPost, "/v1/auth/login", "", `{"username":"editor"}`), http.StatusBadRequest, "ValidationError")
	expectError(t, f.do(http.MethodPost, "/v1/auth/login", "", `{"user":"editor","password":"x"}`), http.StatusBadRequest, "ValidationError")
}

func TestHealthAndRouting(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/readyz", "", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/v1/info", "", nil).Code)
	expectError(t, f.do(http.MethodGet, "/nowhere", "", nil), http.StatusNotFound, "NotFound")
	expectError(t, f.do(http.MethodDelete, "/v1/auth/login", "", nil), http.StatusMethodNotAllowed, "MethodNotAllowed")
}
