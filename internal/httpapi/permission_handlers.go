package httpapi

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"orgcms.dev/cms/internal/auth"
	"orgcms.dev/cms/pkg/access"
)

type replacePermissionsRequest struct {
	Permissions *[]access.Override `json:"permissions"`
}

type updateResponse struct {
	Message      string `json:"message"`
	UpdatedCount int    `json:"updatedCount"`
}

type checkResponse struct {
	Allowed bool             `json:"allowed"`
	Reason  access.ErrorKind `json:"reason,omitempty"`
	Source  access.Source    `json:"source"`
}

func (a *API) handleMyPermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeKindError(w, r, access.KindAuthenticationRequired)
		return
	}
	snap, err := a.perms.Snapshot(r.Context(), id)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) handleGetUserPermissions(w http.ResponseWriter, r *http.Request) {
	rows, err := a.perms.Fetch(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	if rows == nil {
		rows = []access.Override{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (a *API) handleReplaceUserPermissions(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())
	var req replacePermissionsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	if req.Permissions == nil {
		writeError(w, r, http.StatusBadRequest, string(access.KindValidation), "permissions is required")
		return
	}
	n, err := a.perms.Replace(r.Context(), actor, mux.Vars(r)["userId"], *req.Permissions)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updateResponse{Message: "Permissions updated successfully", UpdatedCount: n})
}

func (a *API) handleResetUserPermissions(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())
	n, err := a.perms.ResetToRoleDefault(r.Context(), actor, mux.Vars(r)["userId"])
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updateResponse{Message: "Permissions reset to role defaults", UpdatedCount: n})
}

func (a *API) handleRoleDefaults(w http.ResponseWriter, r *http.Request) {
	caps, err := a.perms.DefaultsForRole(mux.Vars(r)["role"])
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, caps)
}

func (a *API) handleCheck(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeKindError(w, r, access.KindAuthenticationRequired)
		return
	}
	q := r.URL.Query()
	section := strings.TrimSpace(q.Get("section"))
	if section == "" {
		writeError(w, r, http.StatusBadRequest, string(access.KindValidation), "section is required")
		return
	}
	action, err := access.ParseAction(q.Get("action"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, string(access.KindValidation), err.Error())
		return
	}
	decision, err := a.perms.Check(r.Context(), id, section, q.Get("sub_section"), action)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checkResponse{Allowed: decision.Allowed, Reason: decision.Kind, Source: decision.Source})
}
