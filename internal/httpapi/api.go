package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"orgcms.dev/cms/internal/auth"
	"orgcms.dev/cms/internal/obs"
	"orgcms.dev/cms/pkg/access"
)

const serviceName = "cms-api"

// ReadinessChecker reports whether dependencies are reachable.
type ReadinessChecker interface {
	Check(ctx context.Context) error
}

// ReadyFunc adapts a function to ReadinessChecker.
type ReadyFunc func(ctx context.Context) error

func (f ReadyFunc) Check(ctx context.Context) error {
	if f == nil {
		return nil
	}
	return f(ctx)
}

// Deps are the services the HTTP layer dispatches to.
type Deps struct {
	Gate        *auth.Gate
	Users       *auth.UserService
	Permissions *auth.PermissionService
	Ready       ReadinessChecker
	Version     string
}

// Options tune the outer middleware chain.
type Options struct {
	CORSOrigins  []string
	MaxBodyBytes int64
	RateBurst    int
	RatePerSec   float64
	// Limiter replaces the in-process limiter, e.g. RedisLimiter.Middleware.
	Limiter func(http.Handler) http.Handler
}

// API is the HTTP layer.
type API struct {
	router *mux.Router
	gate   *auth.Gate
	users  *auth.UserService
	perms  *auth.PermissionService
	ready  ReadinessChecker
	opts   Options

	version string
}

// New wires routes for deps.
func New(deps Deps, opts Options) (*API, error) {
	if deps.Gate == nil || deps.Users == nil || deps.Permissions == nil {
		return nil, errors.New("httpapi: gate, users and permissions are required")
	}
	if deps.Ready == nil {
		deps.Ready = ReadyFunc(nil)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	a := &API{
		router:  mux.NewRouter(),
		gate:    deps.Gate,
		users:   deps.Users,
		perms:   deps.Permissions,
		ready:   deps.Ready,
		opts:    opts,
		version: deps.Version,
	}
	a.routes()
	return a, nil
}

func (a *API) routes() {
	r := a.router
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeKindError(w, r, access.KindNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
	})

	r.HandleFunc("/healthz", a.Healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.Ready).Methods(http.MethodGet)
	r.HandleFunc("/v1/info", a.Info).Methods(http.MethodGet)
	r.Handle("/metrics", obs.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/v1/auth/login", a.handleLogin).Methods(http.MethodPost)

	perms := r.PathPrefix("/permissions").Subrouter()
	perms.Use(a.withAuth)
	perms.HandleFunc("/my-permissions", a.handleMyPermissions).Methods(http.MethodGet)
	perms.HandleFunc("/role/{role}", a.handleRoleDefaults).Methods(http.MethodGet)
	perms.HandleFunc("/check", a.handleCheck).Methods(http.MethodGet)

	admin := perms.PathPrefix("/user").Subrouter()
	admin.Use(RequireRole(access.RoleAdmin, access.RoleSuperAdmin))
	admin.HandleFunc("/{userId}", a.handleGetUserPermissions).Methods(http.MethodGet)
	admin.HandleFunc("/{userId}", a.handleReplaceUserPermissions).Methods(http.MethodPut)
	admin.HandleFunc("/{userId}/reset", a.handleResetUserPermissions).Methods(http.MethodPost)
}

// Router exposes the mux so resource handlers can be mounted with Protect.
func (a *API) Router() *mux.Router { return a.router }

// Handler returns the router wrapped in the full middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.router
	h = MaxBodyBytes(h, a.opts.MaxBodyBytes)
	if a.opts.Limiter != nil {
		h = a.opts.Limiter(h)
	} else if a.opts.RateBurst > 0 && a.opts.RatePerSec > 0 {
		h = RateLimit(h, a.opts.RateBurst, a.opts.RatePerSec)
	}
	h = CORS(h, a.opts.CORSOrigins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	h = obs.Instrument(h)
	return otelhttp.NewHandler(h, serviceName)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.ready.Check(ctx); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
