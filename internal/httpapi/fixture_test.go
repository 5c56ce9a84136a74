package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"orgcms.dev/cms/internal/auth"
	"orgcms.dev/cms/pkg/access"
)

type memStore struct {
	mu         sync.Mutex
	users      map[string]auth.User
	overrides  map[string][]access.Override
	audit      []auth.AuditEntry
	replaceErr error
}

func newMemStore() *memStore {
	return &memStore{users: map[string]auth.User{}, overrides: map[string][]access.Override{}}
}

func (s *memStore) CreateUser(_ context.Context, u auth.User) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return u, nil
}

func (s *memStore) GetUser(_ context.Context, id string) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return auth.User{}, auth.ErrNotFound
	}
	return u, nil
}

func (s *memStore) FindUserByLogin(_ context.Context, login string) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == login || u.Email == strings.ToLower(login) {
			return u, nil
		}
	}
	return auth.User{}, auth.ErrNotFound
}

func (s *memStore) UpdateUserStatus(_ context.Context, id string, status access.Status) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return auth.User{}, auth.ErrNotFound
	}
	u.Status = status
	s.users[id] = u
	return u, nil
}

func (s *memStore) ListOverrides(_ context.Context, userID string) ([]access.Override, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]access.Override(nil), s.overrides[userID]...), nil
}

func (s *memStore) ReplaceOverrides(_ context.Context, userID string, rows []access.Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.overrides[userID] = append([]access.Override(nil), rows...)
	return nil
}

func (s *memStore) AppendAudit(_ context.Context, e auth.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, e)
	return nil
}

type fixture struct {
	t      *testing.T
	store  *memStore
	tokens *auth.TokenIssuer
	api    *API
	h      http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	for _, u := range []auth.User{
		{ID: "root", Username: "root", Email: "root@example.org", Role: access.RoleSuperAdmin, Status: access.StatusApproved},
		{ID: "admin", Username: "admin", Email: "admin@example.org", Role: access.RoleAdmin, Status: access.StatusApproved},
		{ID: "editor", Username: "editor", Email: "editor@example.org", Role: access.RoleEditor, Status: access.StatusApproved},
		{ID: "viewer", Username: "viewer", Email: "viewer@example.org", Role: access.RoleViewer, Status: access.StatusApproved},
		{ID: "pending", Username: "pending", Email: "pending@example.org", Role: access.RoleEditor, Status: access.StatusPending},
	} {
		store.users[u.ID] = u
	}
	tokens, err := auth.NewTokenIssuer("test-secret")
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	gate, err := auth.NewGate(tokens, store)
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	users, err := auth.NewUserService(store, tokens, store)
	if err != nil {
		t.Fatalf("NewUserService: %v", err)
	}
	perms, err := auth.NewPermissionService(store, store, store)
	if err != nil {
		t.Fatalf("NewPermissionService: %v", err)
	}
	api, err := New(Deps{Gate: gate, Users: users, Permissions: perms, Version: "test"}, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &fixture{t: t, store: store, tokens: tokens, api: api, h: api.Handler()}
}

func (f *fixture) token(userID string) string {
	f.t.Helper()
	u, ok := f.store.users[userID]
	if !ok {
		u = auth.User{ID: userID}
	}
	tok, _, err := f.tokens.Issue(u)
	if err != nil {
		f.t.Fatalf("Issue: %v", err)
	}
	return tok
}

func (f *fixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			f.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return body
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) map[string]any {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["code"] != code {
		t.Fatalf("expected code %s, got %v", code, body["code"])
	}
	if rid, _ := body["request_id"].(string); rid == "" {
		t.Fatalf("expected request_id in error body")
	}
	return body
}
