package auth

import (
	"context"
	"errors"
	"strings"

	"orgcms.dev/cms/pkg/access"
)

// Gate authenticates bearer tokens against the live user record.
type Gate struct {
	tokens *TokenIssuer
	users  UserStore
}

// NewGate returns a gate backed by tokens and users.
func NewGate(tokens *TokenIssuer, users UserStore) (*Gate, error) {
	if tokens == nil {
		return nil, errors.New("auth: token issuer is required")
	}
	if users == nil {
		return nil, errors.New("auth: user store is required")
	}
	return &Gate{tokens: tokens, users: users}, nil
}

// Authenticate resolves rawToken to an approved identity. The user is re-read
// on every call so role or status changes apply to live tokens.
func (g *Gate) Authenticate(ctx context.Context, rawToken string) (access.Identity, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return access.Identity{}, ErrAuthenticationRequired
	}
	claims, err := g.tokens.Parse(rawToken)
	if err != nil {
		return access.Identity{}, ErrInvalidToken
	}
	user, err := g.users.GetUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return access.Identity{}, ErrInvalidToken
		}
		return access.Identity{}, err
	}
	if user.Status != access.StatusApproved {
		return access.Identity{}, ErrNotApproved
	}
	return user.Identity(), nil
}
