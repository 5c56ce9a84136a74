package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"orgcms.dev/cms/internal/ids"
	"orgcms.dev/cms/pkg/access"
)

// NewUser is the input for account creation.
type NewUser struct {
	Username string
	Email    string
	Password string
	Role     string
	Status   string
}

// LoginResult is returned on successful credential verification.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      User
}

// UserService handles account lifecycle and login.
type UserService struct {
	users  UserStore
	tokens *TokenIssuer
	audit  AuditStore
	now    func() time.Time
}

// NewUserService returns a service over users. tokens may be nil when the
// caller never logs in (e.g. the admin CLI); audit may be nil.
func NewUserService(users UserStore, tokens *TokenIssuer, audit AuditStore) (*UserService, error) {
	if users == nil {
		return nil, errors.New("user store is required")
	}
	return &UserService{users: users, tokens: tokens, audit: audit, now: time.Now}, nil
}

// CreateUser validates input, hashes the password and stores the account.
// New accounts default to viewer/pending.
func (s *UserService) CreateUser(ctx context.Context, actor access.Identity, in NewUser) (User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return User{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	role := access.RoleViewer
	if strings.TrimSpace(in.Role) != "" {
		r, err := access.ParseRole(in.Role)
		if err != nil {
			return User{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		role = r
	}
	status := access.StatusPending
	if strings.TrimSpace(in.Status) != "" {
		st, err := access.ParseStatus(in.Status)
		if err != nil {
			return User{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		status = st
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}
	now := s.now().UTC()
	user := User{
		ID:           ids.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if actor.ID != "" {
		createdBy := actor.ID
		user.CreatedBy = &createdBy
	}
	created, err := s.users.CreateUser(ctx, user)
	if err != nil {
		return User{}, err
	}
	s.record(ctx, actor, AuditUserCreate, created.ID, map[string]any{"role": string(created.Role), "status": string(created.Status)})
	return created, nil
}

// SetStatus moves a user through the approval lifecycle.
func (s *UserService) SetStatus(ctx context.Context, actor access.Identity, userID, status string) (User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	st, err := access.ParseStatus(status)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	user, err := s.users.UpdateUserStatus(ctx, userID, st)
	if err != nil {
		return User{}, err
	}
	s.record(ctx, actor, AuditUserStatus, user.ID, map[string]any{"status": string(st)})
	return user, nil
}

// GetUser loads a single account.
func (s *UserService) GetUser(ctx context.Context, userID string) (User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	return s.users.GetUser(ctx, userID)
}

// Login verifies credentials and issues an access token. Only approved
// accounts receive a token; status is checked after the password so it is
// not disclosed to unauthenticated callers.
func (s *UserService) Login(ctx context.Context, login, password string) (LoginResult, error) {
	if s.tokens == nil {
		return LoginResult{}, errors.New("token issuer is not configured")
	}
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	user, err := s.users.FindUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	if user.Status != access.StatusApproved {
		return LoginResult{}, ErrNotApproved
	}
	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, ExpiresAt: expires, User: user}, nil
}

func (s *UserService) record(ctx context.Context, actor access.Identity, action, userID string, details map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.AppendAudit(ctx, AuditEntry{
		ID:           ids.New(),
		OccurredAt:   s.now().UTC(),
		ActorUserID:  actor.ID,
		Action:       action,
		ResourceType: "user",
		ResourceID:   userID,
		Details:      details,
	})
}
