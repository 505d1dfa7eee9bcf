package audit

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/agrocore/agrocore/internal/actor"
)

// ---------------------------------------------------------------------------
// build: diff + sanitize + actor assembly
// ---------------------------------------------------------------------------

func TestBuild_AssemblesSanitizedRecord(t *testing.T) {
	r := NewRecorder(nil)

	ctx := actor.WithActor(context.Background(), "user-7")
	ctx = actor.WithRequestInfo(ctx, actor.RequestInfo{IPAddress: "10.1.2.3", UserAgent: "go-test"})

	old := map[string]any{"email": "a@b.com", "password": "old-hash"}
	new := map[string]any{"email": "a@b.com", "password": "new-hash"}

	rec := r.build(ctx, "users", "u-1", ActionUpdate, old, new)

	if rec.TableName != "users" || rec.RecordID != "u-1" || rec.Action != ActionUpdate {
		t.Errorf("identity fields wrong: %+v", rec)
	}
	if rec.OldValues["password"] != Redacted || rec.NewValues["password"] != Redacted {
		t.Error("password hash stored in plaintext")
	}
	// The password changed, and the changed list says so without leaking it.
	if len(rec.ChangedFields) != 1 || rec.ChangedFields[0] != "password" {
		t.Errorf("ChangedFields = %v, want [password]", rec.ChangedFields)
	}
	if rec.ActorID == nil || *rec.ActorID != "user-7" {
		t.Errorf("ActorID = %v, want user-7", rec.ActorID)
	}
	if rec.IPAddress == nil || *rec.IPAddress != "10.1.2.3" {
		t.Errorf("IPAddress = %v", rec.IPAddress)
	}
	if rec.UserAgent == nil || *rec.UserAgent != "go-test" {
		t.Errorf("UserAgent = %v", rec.UserAgent)
	}
}

func TestBuild_NoActorMeansNilAttribution(t *testing.T) {
	r := NewRecorder(nil)

	rec := r.build(context.Background(), "companies", "c-1", ActionInsert, nil, map[string]any{"name": "Acme"})

	if rec.ActorID != nil {
		t.Errorf("ActorID = %v, want nil", rec.ActorID)
	}
	if rec.IPAddress != nil || rec.UserAgent != nil {
		t.Errorf("request info = %v / %v, want nil", rec.IPAddress, rec.UserAgent)
	}
	if rec.OldValues != nil {
		t.Errorf("OldValues = %v, want nil", rec.OldValues)
	}
}

func TestBuild_ChangedFieldsExcludeDroppedRelations(t *testing.T) {
	r := NewRecorder(nil)

	old := map[string]any{
		"name":    "North",
		"company": map[string]any{"id": "c-1", "name": "Acme"},
	}
	new := map[string]any{
		"name":    "North",
		"company": map[string]any{"id": "c-2", "name": "Globex"},
	}

	rec := r.build(context.Background(), "plants", "p-1", ActionUpdate, old, new)

	// The relation changed but was stripped from storage, so it must not be
	// listed as a changed field either.
	if len(rec.ChangedFields) != 0 {
		t.Errorf("ChangedFields = %v, want empty", rec.ChangedFields)
	}
	if _, present := rec.NewValues["company"]; present {
		t.Error("relation object survived sanitization")
	}
}

// ---------------------------------------------------------------------------
// Record: failure policy
// ---------------------------------------------------------------------------

func TestRecord_PersistsViaWriter(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewRecorder(NewWriter(db))

	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	r.Record(context.Background(), "companies", "c-1", ActionInsert, nil, map[string]any{"name": "Acme"})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRecord_SwallowsWriteFailure(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewRecorder(NewWriter(db))

	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnError(errors.New("disk full"))

	// Must not panic, must not propagate.
	r.Record(context.Background(), "companies", "c-1", ActionUpdate,
		map[string]any{"name": "Old"}, map[string]any{"name": "New"})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRecord_RecoversFromPanic(t *testing.T) {
	// A nil writer makes Persist panic; Record must contain it.
	r := NewRecorder(nil)

	defer func() {
		if p := recover(); p != nil {
			t.Fatalf("panic escaped Record: %v", p)
		}
	}()
	r.Record(context.Background(), "companies", "c-1", ActionInsert, nil, map[string]any{"name": "Acme"})
}

func TestRecord_NeverAuditsAuditTable(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewRecorder(NewWriter(db))

	// No expectations registered: any write would fail the test.
	r.Record(context.Background(), Table, "a-1", ActionInsert, nil, map[string]any{"id": "a-1"})
	r.RecordManual(context.Background(), Table, "a-2", ActionDelete, map[string]any{"id": "a-2"}, nil)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("audit table mutation was audited: %v", err)
	}
}

func TestRecordManual_DelegatesToRecord(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewRecorder(NewWriter(db))

	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	r.RecordManual(context.Background(), "leads", "l-1", ActionUpdate,
		map[string]any{"status": "new"}, map[string]any{"status": "lost"})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
