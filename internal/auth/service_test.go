package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgcms.dev/cms/pkg/access"
)

func TestCreateUserDefaultsAndValidation(t *testing.T) {
	store := newMemStore()
	svc, err := NewUserService(store, nil, store)
	require.NoError(t, err)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, admin, NewUser{Username: " alice ", Email: "Alice@Example.org", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "alice@example.org", u.Email)
	assert.Equal(t, access.RoleViewer, u.Role)
	assert.Equal(t, access.StatusPending, u.Status)
	require.NotNil(t, u.CreatedBy)
	assert.Equal(t, "admin", *u.CreatedBy)
	assert.NoError(t, VerifyPassword(u.PasswordHash, "correct horse"))
	require.Len(t, store.audit, 1)
	assert.Equal(t, AuditUserCreate, store.audit[0].Action)

	_, err = svc.CreateUser(ctx, admin, NewUser{Username: "alice", Email: "other@example.org", Password: "correct horse"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	bad := []NewUser{
		{Email: "x@example.org", Password: "longenough"},
		{Username: "bob", Email: "nope", Password: "longenough"},
		{Username: "bob", Email: "bob@example.org", Password: "short"},
		{Username: "bob", Email: "bob@example.org", Password: "longenough", Role: "owner"},
		{Username: "bob", Email: "bob@example.org", Password: "longenough", Status: "active"},
	}
	for _, in := range bad {
		_, err := svc.CreateUser(ctx, admin, in)
		assert.ErrorIs(t, err, ErrInvalidInput, "%+v", in)
	}
}

func TestSetStatus(t *testing.T) {
	store := newMemStore(approvedUser("u1", access.RoleEditor))
	svc, _ := NewUserService(store, nil, nil)

	u, err := svc.SetStatus(context.Background(), admin, "u1", "SUSPENDED")
	require.NoError(t, err)
	assert.Equal(t, access.StatusSuspended, u.Status)

	_, err = svc.SetStatus(context.Background(), admin, "u1", "archived")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.SetStatus(context.Background(), admin, "ghost", "approved")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLogin(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	approved := approvedUser("u1", access.RoleEditor)
	approved.PasswordHash = hash
	pending := approvedUser("u2", access.RoleEditor)
	pending.PasswordHash = hash
	pending.Status = access.StatusPending

	store := newMemStore(approved, pending)
	tokens, _ := NewTokenIssuer("s3cret")
	svc, _ := NewUserService(store, tokens, nil)
	ctx := context.Background()

	res, err := svc.Login(ctx, "u1@example.org", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "u1", res.User.ID)
	claims, err := tokens.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)

	_, err = svc.Login(ctx, "u1", "wrong password")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
	_, err = svc.Login(ctx, "nobody", "correct horse")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
	_, err = svc.Login(ctx, "u2", "correct horse")
	assert.True(t, errors.Is(err, ErrNotApproved))
}

func TestHashPasswordRejectsShort(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Error(t, VerifyPassword("", "anything"))
}
