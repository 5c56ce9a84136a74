package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"orgcms.dev/cms/internal/auth"
	"orgcms.dev/cms/pkg/access"
)

const userColumns = `id, username, email, password_hash, role, status, created_by, created_at, updated_at`

func (s *Store) CreateUser(ctx context.Context, user auth.User) (auth.User, error) {
	if s.db == nil {
		return auth.User{}, errNoDB
	}
	var createdBy string
	if user.CreatedBy != nil {
		createdBy = *user.CreatedBy
	}
	row := s.db.QueryRowContext(ctx, `
		insert into users (id, username, email, password_hash, role, status, created_by, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, now(), now())
		returning `+userColumns,
		user.ID, user.Username, user.Email, user.PasswordHash, string(user.Role), string(user.Status), nullIfEmpty(createdBy))
	created, err := scanUser(row)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return auth.User{}, auth.ErrAlreadyExists
			case pgErrForeignKeyViolation:
				return auth.User{}, auth.ErrNotFound
			}
		}
		return auth.User{}, err
	}
	return created, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (auth.User, error) {
	if s.db == nil {
		return auth.User{}, errNoDB
	}
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users where id = $1`, id)
	return scanUser(row)
}

// FindUserByLogin matches either the username or the lower-cased email.
func (s *Store) FindUserByLogin(ctx context.Context, login string) (auth.User, error) {
	if s.db == nil {
		return auth.User{}, errNoDB
	}
	login = strings.TrimSpace(login)
	row := s.db.QueryRowContext(ctx, `
		select `+userColumns+`
		from users
		where username = $1 or email = lower($1)
		limit 1
	`, login)
	return scanUser(row)
}

func (s *Store) UpdateUserStatus(ctx context.Context, id string, status access.Status) (auth.User, error) {
	if s.db == nil {
		return auth.User{}, errNoDB
	}
	row := s.db.QueryRowContext(ctx, `
		update users set status = $2, updated_at = now()
		where id = $1
		returning `+userColumns, id, string(status))
	return scanUser(row)
}

func scanUser(row *sql.Row) (auth.User, error) {
	var (
		u         auth.User
		role      string
		status    string
		createdBy sql.NullString
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &status, &createdBy, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.User{}, err
	}
	u.Role = access.Role(role)
	u.Status = access.Status(status)
	if createdBy.Valid {
		v := createdBy.String
		u.CreatedBy = &v
	}
	return u, nil
}
