package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"orgcms.dev/cms/pkg/access"
)

// memStore is an in-memory UserStore, PermissionStore and AuditStore for tests.
type memStore struct {
	mu         sync.Mutex
	users      map[string]User
	overrides  map[string][]access.Override
	audit      []AuditEntry
	replaceErr error
	auditErr   error
	listErr    error
}

func newMemStore(users ...User) *memStore {
	s := &memStore{users: map[string]User{}, overrides: map[string][]access.Override{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *memStore) CreateUser(_ context.Context, u User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return User{}, ErrAlreadyExists
		}
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *memStore) GetUser(_ context.Context, id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *memStore) FindUserByLogin(_ context.Context, login string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == login || u.Email == strings.ToLower(login) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *memStore) UpdateUserStatus(_ context.Context, id string, status access.Status) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	u.Status = status
	s.users[id] = u
	return u, nil
}

func (s *memStore) ListOverrides(_ context.Context, userID string) ([]access.Override, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
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

func (s *memStore) AppendAudit(_ context.Context, e AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditErr != nil {
		return s.auditErr
	}
	s.audit = append(s.audit, e)
	return nil
}

var errStoreDown = errors.New("connection reset")

func approvedUser(id string, role access.Role) User {
	return User{ID: id, Username: id, Email: id + "@example.org", Role: role, Status: access.StatusApproved}
}
