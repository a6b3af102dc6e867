package pg

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"osmadmin.org/internal/audit"
	"osmadmin.org/internal/directory"
	"osmadmin.org/internal/refdata"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func TestFindUserByEmailNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("select id, coalesce\\(external_id,''\\), email").
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.FindUserByEmail(context.Background(), "ghost@example.com")
	if !errors.Is(err, directory.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreatePermissionMapsUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("insert into permissions").
		WithArgs("p-1", "models:list", sqlmock.AnyArg(), true).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	_, err := store.CreatePermission(context.Background(), directory.Permission{
		ID: "p-1", Code: "models:list", IsActive: true,
	})
	if !errors.Is(err, directory.ErrConflict) {
		t.Fatalf("duplicate code must map to ErrConflict, got %v", err)
	}
}

func TestCreateInvitationMapsPendingEmailConflict(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("insert into invitations").
		WithArgs("i-1", "a@b.c", "tok", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})
	mock.ExpectRollback()

	_, err := store.CreateInvitation(context.Background(), directory.NewInvitation{
		ID: "i-1", Email: "a@b.c", Token: "tok", ExpiresAt: time.Now().Add(time.Hour),
	})
	if !errors.Is(err, directory.ErrConflict) {
		t.Fatalf("partial unique index hit must map to ErrConflict, got %v", err)
	}
}

func TestSetInvitationStatusUnknownRow(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("update invitations set status").
		WithArgs("ghost", directory.StatusCancelled, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.SetInvitationStatus(context.Background(), "ghost", directory.StatusCancelled, nil)
	if !errors.Is(err, directory.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReplaceUserRolesUnknownRoleMapsNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("select 1 from users where id").
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectExec("delete from user_roles").
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into user_roles").
		WithArgs("u-1", "ghost-role").
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation})
	mock.ExpectRollback()

	_, err := store.ReplaceUserRoles(context.Background(), "u-1", []string{"ghost-role"})
	if !errors.Is(err, directory.ErrNotFound) {
		t.Fatalf("unknown role must map to ErrNotFound, got %v", err)
	}
}

func TestAuditAppend(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("insert into audit_entries").
		WithArgs("a-1", "u-1", "u1@example.com", "role.create", "role",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Append(context.Background(), &audit.Entry{
		ID: "a-1", ActorID: "u-1", ActorName: "u1@example.com",
		Action: "role.create", EntityType: "role", EntityID: "r-1",
		Changes:   json.RawMessage(`{"name":"Analyst"}`),
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRefdataUnknownKindSkipsDatabase(t *testing.T) {
	store, _ := newMockStore(t)
	_, err := store.Refdata().List(context.Background(), refdata.Kind("bogus"), false)
	if !errors.Is(err, refdata.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestAuditAndRefdataFindDispatchSeparately(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("select id, actor_id, actor_name").
		WithArgs("a-404").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("select id, description, is_active, color from ref_bureaus").
		WithArgs("b-404").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := store.Find(context.Background(), "a-404"); !errors.Is(err, audit.ErrNotFound) {
		t.Fatalf("audit find: expected ErrNotFound, got %v", err)
	}
	if _, err := store.Refdata().Find(context.Background(), refdata.KindBureau, "b-404"); !errors.Is(err, refdata.ErrNotFound) {
		t.Fatalf("refdata find: expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRefdataEveryKindHasTable(t *testing.T) {
	for _, kind := range refdata.Kinds() {
		if _, err := refTable(kind); err != nil {
			t.Fatalf("kind %q has no table mapping", kind)
		}
	}
	if len(refTables) != len(refdata.Kinds()) {
		t.Fatalf("table registry size %d does not match kind count %d", len(refTables), len(refdata.Kinds()))
	}
}

func TestCountExact(t *testing.T) {
	store, mock := newMockStore(t)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	mock.ExpectQuery("select count\\(\\*\\) from query_events").
		WithArgs("Credit Score", start, end).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := store.CountExact(context.Background(), "Credit Score", start, end)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4, got %d", count)
	}
}
