package pg

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"orgcms.dev/cms/internal/auth"
	"orgcms.dev/cms/pkg/access"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

var testRows = []access.Override{
	{Section: "media", Capabilities: access.Capabilities{CanView: true, CanEdit: true}},
	{Section: "media", SubSection: access.StringPtr("blogs"), Capabilities: access.Capabilities{CanView: true}},
}

func TestReplaceOverridesCommits(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("delete from user_permissions where user_id").WithArgs("user-1").WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("insert into user_permissions").
		WithArgs("user-1", "media", nil, true, false, true, false, false).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into user_permissions").
		WithArgs("user-1", "media", "blogs", true, false, false, false, false).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	if err := store.ReplaceOverrides(context.Background(), "user-1", testRows); err != nil {
		t.Fatalf("ReplaceOverrides: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReplaceOverridesRollsBackMidway(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("delete from user_permissions").WithArgs("user-1").WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("insert into user_permissions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into user_permissions").WillReturnError(errors.New("connection reset by peer"))
	mock.ExpectRollback()

	err := store.ReplaceOverrides(context.Background(), "user-1", testRows)
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected rollback without commit: %v", err)
	}
}

func TestReplaceOverridesEmptySetOnlyDeletes(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("delete from user_permissions").WithArgs("user-1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	if err := store.ReplaceOverrides(context.Background(), "user-1", nil); err != nil {
		t.Fatalf("ReplaceOverrides: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReplaceOverridesMapsForeignKeyViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("delete from user_permissions").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("insert into user_permissions").WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation})
	mock.ExpectRollback()

	err := store.ReplaceOverrides(context.Background(), "ghost", testRows[:1])
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListOverrides(t *testing.T) {
	store, mock := newMockStore(t)

	cols := []string{"user_id", "section", "sub_section", "can_view", "can_create", "can_edit", "can_delete", "can_publish"}
	mock.ExpectQuery(regexp.QuoteMeta("order by section, sub_section nulls first")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("user-1", "media", nil, true, false, true, false, false).
			AddRow("user-1", "media", "blogs", true, false, false, false, false))

	rows, err := store.ListOverrides(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListOverrides: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].SubSection != nil || !rows[0].CanEdit {
		t.Fatalf("unexpected section row: %+v", rows[0])
	}
	if rows[1].SubSectionKey() != "blogs" || rows[1].CanEdit {
		t.Fatalf("unexpected sub-section row: %+v", rows[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserQueries(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	cols := []string{"id", "username", "email", "password_hash", "role", "status", "created_by", "created_at", "updated_at"}

	mock.ExpectQuery("select .* from users where id").WithArgs("missing").WillReturnRows(sqlmock.NewRows(cols))
	if _, err := store.GetUser(context.Background(), "missing"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	mock.ExpectQuery("where username = \\$1 or email = lower\\(\\$1\\)").WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("u1", "alice", "alice@example.org", "hash", "editor", "approved", "root", now, now))
	u, err := store.FindUserByLogin(context.Background(), " alice ")
	if err != nil {
		t.Fatalf("FindUserByLogin: %v", err)
	}
	if u.Role != access.RoleEditor || u.Status != access.StatusApproved || u.CreatedBy == nil || *u.CreatedBy != "root" {
		t.Fatalf("unexpected user: %+v", u)
	}

	mock.ExpectQuery("insert into users").WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})
	if _, err := store.CreateUser(context.Background(), auth.User{ID: "u2", Username: "alice"}); !errors.Is(err, auth.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	mock.ExpectQuery("update users set status").WithArgs("u1", "suspended").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("u1", "alice", "alice@example.org", "hash", "editor", "suspended", nil, now, now))
	u, err = store.UpdateUserStatus(context.Background(), "u1", access.StatusSuspended)
	if err != nil {
		t.Fatalf("UpdateUserStatus: %v", err)
	}
	if u.Status != access.StatusSuspended || u.CreatedBy != nil {
		t.Fatalf("unexpected user: %+v", u)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAppendAudit(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectExec("insert into audit_logs").
		WithArgs("01J0", "admin", auth.AuditPermissionsReplace, "user", "user-1", `{"count":2}`, at).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.AppendAudit(context.Background(), auth.AuditEntry{
		ID:           "01J0",
		OccurredAt:   at,
		ActorUserID:  "admin",
		Action:       auth.AuditPermissionsReplace,
		ResourceType: "user",
		ResourceID:   "user-1",
		Details:      map[string]any{"count": 2},
	})
	if err != nil {
		t.Fatalf("AppendAudit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestNilDB(t *testing.T) {
	s := &Store{}
	if err := s.ReplaceOverrides(context.Background(), "u", nil); err == nil {
		t.Fatal("expected error without db")
	}
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error without db")
	}
}
