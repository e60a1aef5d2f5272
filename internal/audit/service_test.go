package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
)

var errAudit = errors.New("audit error")

func TestAppendAndList(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs(pgxmock.AnyArg(), "spot-1", "edit", "user-1", "Anna", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService(mock)
	entry, err := svc.Append(context.Background(), mock, Entry{
		SpotID:   "spot-1",
		Action:   ActionEdit,
		UserID:   "user-1",
		UserName: "Anna",
		Changes:  map[string]Change{"name": {From: "a", To: "b"}},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if entry.ID == "" {
		t.Fatalf("expected assigned id")
	}

	mock.ExpectQuery(`SELECT id, spot_id, action, user_id, user_name, changes, metadata, created_at`).
		WithArgs("spot-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "spot_id", "action", "user_id", "user_name", "changes", "metadata", "created_at"}).
			AddRow(entry.ID, "spot-1", "edit", "user-1", "Anna", []byte(`{"name":{"from":"a","to":"b"}}`), []byte(`null`), time.Now()))

	entries, err := svc.EntriesForSpot(context.Background(), "spot-1")
	if err != nil || len(entries) != 1 {
		t.Fatalf("entries: %v %v", entries, err)
	}
	if entries[0].Action != ActionEdit {
		t.Fatalf("expected edit action, got %v", entries[0].Action)
	}
	if entries[0].Changes["name"].To != "b" {
		t.Fatalf("changes payload not decoded: %+v", entries[0].Changes)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAppendInsertError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs(pgxmock.AnyArg(), "spot-1", "delete", "", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errAudit)

	svc := NewService(mock)
	if _, err := svc.Append(context.Background(), mock, Entry{SpotID: "spot-1", Action: ActionDelete}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestEntriesUnknownAction(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, spot_id, action, user_id, user_name, changes, metadata, created_at`).
		WithArgs("spot-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "spot_id", "action", "user_id", "user_name", "changes", "metadata", "created_at"}).
			AddRow("e-1", "spot-1", "bogus", "", "", []byte(`{}`), []byte(`{}`), time.Now()))

	svc := NewService(mock)
	if _, err := svc.EntriesForSpot(context.Background(), "spot-1"); err == nil {
		t.Fatalf("expected error for unknown stored action")
	}
}

func TestResolveActor(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT username FROM users`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"username"}).AddRow("Anna"))

	svc := NewService(mock)
	actor := svc.ResolveActor(context.Background(), Actor{UserID: "user-1"})
	if actor.UserName != "Anna" {
		t.Fatalf("expected resolved name, got %+v", actor)
	}

	// Known name short-circuits the lookup; missing user keeps empty name.
	actor = svc.ResolveActor(context.Background(), Actor{UserID: "user-1", UserName: "Bert"})
	if actor.UserName != "Bert" {
		t.Fatalf("existing name must win")
	}

	mock.ExpectQuery(`SELECT username FROM users`).
		WithArgs("ghost").
		WillReturnError(errAudit)
	actor = svc.ResolveActor(context.Background(), Actor{UserID: "ghost"})
	if actor.UserName != "" {
		t.Fatalf("lookup failure must keep empty name")
	}
}

func TestAppendResolvesMissingActorName(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT username FROM users`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"username"}).AddRow("Anna"))
	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs(pgxmock.AnyArg(), "spot-1", "edit", "user-1", "Anna", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService(mock)
	entry, err := svc.Append(context.Background(), mock, Entry{
		SpotID: "spot-1",
		Action: ActionEdit,
		UserID: "user-1",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if entry.UserName != "Anna" {
		t.Fatalf("expected resolved user name, got %q", entry.UserName)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
