package httpapi

import (
	"net/http"
	"strings"

	"orgcms.dev/cms/internal/auth"
	"orgcms.dev/cms/pkg/access"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// withAuth authenticates the bearer token and attaches the identity.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		token := extractBearerToken(r.Header.Get(authHeader))
		id, err := a.gate.Authenticate(r.Context(), token)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		ctx := auth.ContextWithIdentity(r.Context(), id)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole admits only identities holding one of roles.
func RequireRole(roles ...access.Role) func(http.Handler) http.Handler {
	allowed := make(map[access.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				writeKindError(w, r, access.KindAuthenticationRequired)
				return
			}
			if _, ok := allowed[id.Role]; !ok {
				writeKindError(w, r, access.KindInsufficientPermission)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authorize is the enforcement point for section-scoped resources: it
// resolves the caller's stored overrides and rejects denied actions before
// next runs. Client-side snapshots never replace this check.
func (a *API) Authorize(section, subSection string, action access.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				writeKindError(w, r, access.KindAuthenticationRequired)
				return
			}
			decision, err := a.perms.Check(r.Context(), id, section, subSection, action)
			if err != nil {
				handleAuthError(w, r, err)
				return
			}
			if !decision.Allowed {
				writeKindError(w, r, decision.Kind)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Protect wraps h with authentication and an Authorize check.
func (a *API) Protect(section, subSection string, action access.Action, h http.Handler) http.Handler {
	return a.withAuth(a.Authorize(section, subSection, action)(h))
}

// extractBearerToken returns "" when the header is absent or not a bearer token.
func extractBearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return ""
	}
	return strings.TrimSpace(header[len(bearer):])
}
