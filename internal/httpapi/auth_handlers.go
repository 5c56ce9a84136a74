package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"orgcms.dev/cms/internal/audit"
	"orgcms.dev/cms/internal/auth"
	"orgcms.dev/cms/pkg/access"
)

type loginRequest struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      auth.User `json:"user"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	login := strings.TrimSpace(req.Username)
	if login == "" {
		login = strings.TrimSpace(req.Email)
	}
	if login == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, string(access.KindValidation), "username or email and password are required")
		return
	}

	res, err := a.users.Login(r.Context(), login, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			_ = audit.LogEvent(r.Context(), "auth.login.failed", map[string]any{"login": login})
			writeError(w, r, http.StatusUnauthorized, string(access.KindAuthenticationRequired), "Invalid credentials")
			return
		}
		handleAuthError(w, r, err)
		return
	}

	ctx := auth.ContextWithIdentity(r.Context(), res.User.Identity())
	_ = audit.LogEvent(ctx, "auth.login", map[string]any{
		"expires_at": res.ExpiresAt.Format(time.RFC3339),
	})
	writeJSON(w, http.StatusOK, loginResponse{Token: res.Token, ExpiresAt: res.ExpiresAt, User: res.User})
}
