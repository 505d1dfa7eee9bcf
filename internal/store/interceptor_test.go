package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/agrocore/agrocore/internal/actor"
	"github.com/agrocore/agrocore/internal/audit"
)

func newTestInterceptor(t *testing.T) (*Interceptor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	registry := NewRegistry(DefaultTables()...)
	recorder := audit.NewRecorder(audit.NewWriter(sqlxDB))
	return NewInterceptor(sqlxDB, registry, recorder), mock
}

var companyCols = []string{"id", "name", "is_active"}

func companyRow(id, name string, active bool) *sqlmock.Rows {
	return sqlmock.NewRows(companyCols).AddRow(id, name, active)
}

func expectAuditInsert(mock sqlmock.Sqlmock) {
	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(0, 1))
}

// ---------------------------------------------------------------------------
// Insert
// ---------------------------------------------------------------------------

func TestInsert_RecordsPostCommitSnapshot(t *testing.T) {
	it, mock := newTestInterceptor(t)
	ctx := actor.WithActor(context.Background(), "user-1")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO companies").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Attribution stamp inside the same transaction.
	mock.ExpectExec("UPDATE companies SET created_by = \\$1, updated_by = \\$1").
		WithArgs("user-1", "c-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	// Post-commit re-read by primary key.
	mock.ExpectQuery("SELECT \\* FROM companies WHERE id = \\$1").
		WithArgs("c-1").
		WillReturnRows(companyRow("c-1", "Acme", true))
	expectAuditInsert(mock)

	id, err := it.Insert(ctx, "companies", func(tx *sqlx.Tx) (string, error) {
		_, err := tx.Exec("INSERT INTO companies (id, name) VALUES ($1, $2)", "c-1", "Acme")
		return "c-1", err
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id != "c-1" {
		t.Errorf("id = %q, want c-1", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestInsert_NoActorSkipsAttributionStamp(t *testing.T) {
	it, mock := newTestInterceptor(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO companies").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// No UPDATE ... SET created_by expectation: stamping is a no-op.
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT \\* FROM companies").
		WillReturnRows(companyRow("c-2", "Globex", true))
	expectAuditInsert(mock)

	_, err := it.Insert(context.Background(), "companies", func(tx *sqlx.Tx) (string, error) {
		_, err := tx.Exec("INSERT INTO companies (id, name) VALUES ($1, $2)", "c-2", "Globex")
		return "c-2", err
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestInsert_BusinessErrorRollsBack(t *testing.T) {
	it, mock := newTestInterceptor(t)

	mock.ExpectBegin()
	mock.ExpectRollback()
	// No snapshot, no audit write.

	_, err := it.Insert(context.Background(), "companies", func(tx *sqlx.Tx) (string, error) {
		return "", errors.New("unique violation")
	})
	if err == nil {
		t.Fatal("expected business error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestInsert_UnregisteredTable(t *testing.T) {
	it, _ := newTestInterceptor(t)

	_, err := it.Insert(context.Background(), "invoices", func(tx *sqlx.Tx) (string, error) {
		t.Fatal("fn must not run for unregistered table")
		return "", nil
	})
	if !errors.Is(err, ErrUnregisteredTable) {
		t.Fatalf("err = %v, want ErrUnregisteredTable", err)
	}
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestUpdate_CapturesPreAndPostImages(t *testing.T) {
	it, mock := newTestInterceptor(t)
	ctx := actor.WithActor(context.Background(), "user-2")

	// Committed pre-image before the transaction opens.
	mock.ExpectQuery("SELECT \\* FROM companies WHERE id = \\$1").
		WithArgs("c-1").
		WillReturnRows(companyRow("c-1", "Old Name", true))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE companies SET name").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE companies SET updated_by = \\$1").
		WithArgs("user-2", "c-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	// Committed post-state, never the in-memory entity.
	mock.ExpectQuery("SELECT \\* FROM companies WHERE id = \\$1").
		WithArgs("c-1").
		WillReturnRows(companyRow("c-1", "New Name", true))
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(
			sqlmock.AnyArg(), "companies", "c-1", audit.ActionUpdate,
			[]byte(`{"id":"c-1","is_active":true,"name":"Old Name"}`),
			[]byte(`{"id":"c-1","is_active":true,"name":"New Name"}`),
			[]byte(`["name"]`),
			"user-2", nil, nil,
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := it.Update(ctx, "companies", "c-1", func(tx *sqlx.Tx) error {
		_, err := tx.Exec("UPDATE companies SET name = $1 WHERE id = $2", "New Name", "c-1")
		return err
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// lib/pq delivers text and uuid columns as []byte; the stored payload must
// carry the decoded text, never base64.
func TestUpdate_ByteColumnSnapshotsStoredAsText(t *testing.T) {
	it, mock := newTestInterceptor(t)
	ctx := actor.WithActor(context.Background(), "user-2")

	byteRow := func(name string) *sqlmock.Rows {
		return sqlmock.NewRows(companyCols).
			AddRow([]byte("c-1"), []byte(name), true)
	}

	mock.ExpectQuery("SELECT \\* FROM companies WHERE id = \\$1").
		WithArgs("c-1").
		WillReturnRows(byteRow("Old Name"))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE companies SET name").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE companies SET updated_by = \\$1").
		WithArgs("user-2", "c-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT \\* FROM companies WHERE id = \\$1").
		WithArgs("c-1").
		WillReturnRows(byteRow("New Name"))
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(
			sqlmock.AnyArg(), "companies", "c-1", audit.ActionUpdate,
			[]byte(`{"id":"c-1","is_active":true,"name":"Old Name"}`),
			[]byte(`{"id":"c-1","is_active":true,"name":"New Name"}`),
			[]byte(`["name"]`),
			"user-2", nil, nil,
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := it.Update(ctx, "companies", "c-1", func(tx *sqlx.Tx) error {
		_, err := tx.Exec("UPDATE companies SET name = $1 WHERE id = $2", "New Name", "c-1")
		return err
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUpdate_AuditFailureDoesNotFailMutation(t *testing.T) {
	it, mock := newTestInterceptor(t)

	mock.ExpectQuery("SELECT \\* FROM companies").
		WillReturnRows(companyRow("c-1", "Old", true))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE companies SET name").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT \\* FROM companies").
		WillReturnRows(companyRow("c-1", "New", true))
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnError(errors.New("audit store down"))

	err := it.Update(context.Background(), "companies", "c-1", func(tx *sqlx.Tx) error {
		_, err := tx.Exec("UPDATE companies SET name = $1 WHERE id = $2", "New", "c-1")
		return err
	})
	if err != nil {
		t.Fatalf("audit failure leaked into business result: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUpdate_PreImageReadFailureDoesNotFailMutation(t *testing.T) {
	it, mock := newTestInterceptor(t)

	// Snapshot read errors are logged and reported as absent.
	mock.ExpectQuery("SELECT \\* FROM companies").
		WillReturnError(errors.New("read timeout"))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE companies SET name").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT \\* FROM companies").
		WillReturnRows(companyRow("c-1", "New", true))
	expectAuditInsert(mock)

	err := it.Update(context.Background(), "companies", "c-1", func(tx *sqlx.Tx) error {
		_, err := tx.Exec("UPDATE companies SET name = $1 WHERE id = $2", "New", "c-1")
		return err
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUpdate_RereadMissRecordsDelete(t *testing.T) {
	it, mock := newTestInterceptor(t)

	mock.ExpectQuery("SELECT \\* FROM companies").
		WillReturnRows(companyRow("c-1", "Doomed", true))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE companies SET name").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	// A concurrent hard delete won the race: the re-read finds nothing.
	mock.ExpectQuery("SELECT \\* FROM companies").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(
			sqlmock.AnyArg(), "companies", "c-1", audit.ActionDelete,
			[]byte(`{"id":"c-1","is_active":true,"name":"Doomed"}`),
			nil, // no new values
			sqlmock.AnyArg(),
			nil, nil, nil,
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := it.Update(context.Background(), "companies", "c-1", func(tx *sqlx.Tx) error {
		_, err := tx.Exec("UPDATE companies SET name = $1 WHERE id = $2", "New", "c-1")
		return err
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Deactivate / Reactivate
// ---------------------------------------------------------------------------

func TestDeactivate_StampsAndRecordsDelete(t *testing.T) {
	it, mock := newTestInterceptor(t)
	ctx := actor.WithActor(context.Background(), "admin-1")

	mock.ExpectQuery("SELECT \\* FROM companies").
		WillReturnRows(companyRow("c-1", "Acme", true))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE companies SET is_active").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE companies SET deactivated_by = \\$1, updated_by = \\$1").
		WithArgs("admin-1", "c-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT \\* FROM companies").
		WillReturnRows(companyRow("c-1", "Acme", false))
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(
			sqlmock.AnyArg(), "companies", "c-1", audit.ActionDelete,
			sqlmock.AnyArg(),
			[]byte(`{"id":"c-1","is_active":false,"name":"Acme"}`),
			[]byte(`["is_active"]`),
			"admin-1", nil, nil,
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := it.Deactivate(ctx, "companies", "c-1", func(tx *sqlx.Tx) error {
		_, err := tx.Exec("UPDATE companies SET is_active = FALSE, deactivated_at = NOW() WHERE id = $1", "c-1")
		return err
	})
	if err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestReactivate_WithoutActorClearsDeactivatedBy(t *testing.T) {
	it, mock := newTestInterceptor(t)

	mock.ExpectQuery("SELECT \\* FROM companies").
		WillReturnRows(companyRow("c-1", "Acme", false))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE companies SET is_active").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// No actor bound: deactivated_by is still cleared, updated_by untouched.
	mock.ExpectExec("UPDATE companies SET deactivated_by = NULL WHERE id = \\$1").
		WithArgs("c-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT \\* FROM companies").
		WillReturnRows(companyRow("c-1", "Acme", true))
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(
			sqlmock.AnyArg(), "companies", "c-1", audit.ActionUpdate,
			sqlmock.AnyArg(), sqlmock.AnyArg(),
			[]byte(`["is_active"]`),
			nil, nil, nil,
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := it.Reactivate(context.Background(), "companies", "c-1", func(tx *sqlx.Tx) error {
		_, err := tx.Exec("UPDATE companies SET is_active = TRUE, deactivated_at = NULL WHERE id = $1", "c-1")
		return err
	})
	if err != nil {
		t.Fatalf("Reactivate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Hard delete
// ---------------------------------------------------------------------------

func TestDelete_RecordsPreImageOnly(t *testing.T) {
	it, mock := newTestInterceptor(t)
	ctx := actor.WithActor(context.Background(), "admin-1")

	mock.ExpectQuery("SELECT \\* FROM companies").
		WillReturnRows(companyRow("c-1", "Acme", true))
	mock.ExpectBegin()
	// Attribution is stamped while the row still exists.
	mock.ExpectExec("UPDATE companies SET deactivated_by = \\$1, updated_by = \\$1").
		WithArgs("admin-1", "c-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM companies").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(
			sqlmock.AnyArg(), "companies", "c-1", audit.ActionDelete,
			[]byte(`{"id":"c-1","is_active":true,"name":"Acme"}`),
			nil,
			sqlmock.AnyArg(),
			"admin-1", nil, nil,
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := it.Delete(ctx, "companies", "c-1", func(tx *sqlx.Tx) error {
		_, err := tx.Exec("DELETE FROM companies WHERE id = $1", "c-1")
		return err
	})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

func TestRegistry_RefusesAuditTable(t *testing.T) {
	r := NewRegistry(TableSpec{Name: audit.Table, PrimaryKey: "id"})
	if _, ok := r.Lookup(audit.Table); ok {
		t.Fatal("audit table must not be registrable")
	}
}

func TestRegistry_DefaultTablesCoverBusinessEntities(t *testing.T) {
	r := NewRegistry(DefaultTables()...)
	for _, table := range []string{"companies", "plants", "partners", "leads", "users"} {
		spec, ok := r.Lookup(table)
		if !ok {
			t.Errorf("table %s not registered", table)
			continue
		}
		if spec.PrimaryKey != "id" || !spec.Attributed || !spec.SoftDelete {
			t.Errorf("table %s spec = %+v", table, spec)
		}
	}
}
