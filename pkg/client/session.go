package client

import (
	"context"
	"errors"
	"sync"

	"orgcms.dev/cms/pkg/access"
)

// ErrNotLoggedIn is returned by Load before Login succeeds.
var ErrNotLoggedIn = errors.New("client: not logged in")

// Session owns one login and its cached permission snapshot.
type Session struct {
	client *Client

	mu       sync.RWMutex
	identity access.Identity
	snap     *access.Snapshot
	// seq is bumped by every Load, Invalidate and Logout. A load only applies
	// its response if no newer call has started since it began.
	seq uint64
}

// NewSession wraps c. The client's token, if any, is reused until Logout.
func NewSession(c *Client) *Session {
	return &Session{client: c}
}

// Client returns the underlying API client.
func (s *Session) Client() *Client { return s.client }

// Login authenticates, then loads the snapshot for the new identity.
func (s *Session) Login(ctx context.Context, login, password string) (LoginResult, error) {
	res, err := s.client.Login(ctx, login, password)
	if err != nil {
		return LoginResult{}, err
	}
	s.mu.Lock()
	s.identity = res.User.Identity()
	s.snap = nil
	s.seq++
	s.mu.Unlock()

	if err := s.Load(ctx); err != nil {
		return res, err
	}
	return res, nil
}

// Identity returns the logged-in identity.
func (s *Session) Identity() access.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// Load fetches the snapshot and replaces the cached one wholesale. When
// loads overlap, the most recently started one wins.
func (s *Session) Load(ctx context.Context) error {
	if s.client.Token() == "" {
		return ErrNotLoggedIn
	}
	s.mu.Lock()
	s.seq++
	mine := s.seq
	s.mu.Unlock()

	snap, err := s.client.MyPermissions(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if mine != s.seq {
		return nil
	}
	s.snap = &snap
	return nil
}

// Snapshot returns a copy of the cached snapshot.
func (s *Session) Snapshot() (access.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return access.Snapshot{}, false
	}
	out := *s.snap
	out.Overrides = append([]access.Override(nil), s.snap.Overrides...)
	return out, true
}

// IsAllowed answers from the cached snapshot with the server's precedence
// rules. It returns false when nothing is loaded. The answer is for display
// only; the server decides.
func (s *Session) IsAllowed(section, subSection string, action access.Action) bool {
	s.mu.RLock()
	snap, id := s.snap, s.identity
	s.mu.RUnlock()
	if snap == nil {
		return false
	}
	return snap.Authorize(id, section, subSection, action).Allowed
}

// Invalidate drops the cached snapshot. Loads already in flight are discarded.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.snap = nil
	s.seq++
	s.mu.Unlock()
}

// Logout clears the token, identity and snapshot.
func (s *Session) Logout() {
	s.client.SetToken("")
	s.mu.Lock()
	s.snap = nil
	s.identity = access.Identity{}
	s.seq++
	s.mu.Unlock()
}
