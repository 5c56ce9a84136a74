package pg

import (
	"context"
	"database/sql"
	"fmt"

	"orgcms.dev/cms/internal/auth"
	"orgcms.dev/cms/pkg/access"
)

func (s *Store) ListOverrides(ctx context.Context, userID string) ([]access.Override, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select user_id, section, sub_section, can_view, can_create, can_edit, can_delete, can_publish
		from user_permissions
		where user_id = $1
		order by section, sub_section nulls first
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []access.Override
	for rows.Next() {
		var (
			o   access.Override
			sub sql.NullString
		)
		if err := rows.Scan(&o.UserID, &o.Section, &sub, &o.CanView, &o.CanCreate, &o.CanEdit, &o.CanDelete, &o.CanPublish); err != nil {
			return nil, err
		}
		if sub.Valid {
			o.SubSection = access.StringPtr(sub.String)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReplaceOverrides deletes every row of userID and inserts rows in a single
// transaction. Any failure rolls the whole call back.
func (s *Store) ReplaceOverrides(ctx context.Context, userID string, rows []access.Override) error {
	if s.db == nil {
		return errNoDB
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `delete from user_permissions where user_id = $1`, userID); err != nil {
		return err
	}
	for i, r := range rows {
		var sub sql.NullString
		if r.SubSection != nil {
			sub = sql.NullString{String: *r.SubSection, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			insert into user_permissions (user_id, section, sub_section, can_view, can_create, can_edit, can_delete, can_publish)
			values ($1, $2, $3, $4, $5, $6, $7, $8)
		`, userID, r.Section, sub, r.CanView, r.CanCreate, r.CanEdit, r.CanDelete, r.CanPublish); err != nil {
			if pgErr, ok := maybePgError(err); ok {
				switch pgErr.Code {
				case pgErrForeignKeyViolation:
					return auth.ErrNotFound
				case pgErrUniqueViolation:
					return fmt.Errorf("%w: duplicate row %d", auth.ErrInvalidInput, i)
				}
			}
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	return tx.Commit()
}
