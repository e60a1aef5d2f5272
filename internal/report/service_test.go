package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"backend-spotfinder/internal/audit"

	"github.com/pashagolub/pgxmock/v3"
)

var reportColumnNames = []string{
	"id", "spot_id", "reporter_id", "reporter_name", "reason", "message", "status", "created_at", "updated_at",
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	return mock
}

func TestCreateReport(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO spot_reports`).
		WithArgs(pgxmock.AnyArg(), "spot-1", "user-1", "Anna", "spam", "looks fake", StatusOpen).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	svc := NewService(mock, audit.NewService(mock))
	r, err := svc.Create(context.Background(), Report{
		SpotID: "spot-1", ReporterID: "user-1", ReporterName: "Anna",
		Reason: "spam", Message: "looks fake",
	})
	if err != nil {
		t.Fatalf("create report: %v", err)
	}
	if r.ID == "" || r.Status != StatusOpen {
		t.Fatalf("unexpected report: %+v", r)
	}
}

func TestCreateReportValidation(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	svc := NewService(mock, audit.NewService(mock))
	if _, err := svc.Create(context.Background(), Report{Reason: "spam"}); err == nil {
		t.Fatalf("expected error for missing spot id")
	}
	if _, err := svc.Create(context.Background(), Report{SpotID: "spot-1"}); err == nil {
		t.Fatalf("expected error for missing reason")
	}
}

func TestListByStatus(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT id, spot_id(.|\n)*WHERE status`).
		WithArgs(StatusOpen).
		WillReturnRows(pgxmock.NewRows(reportColumnNames).
			AddRow("rep-1", "spot-1", "user-1", "", "spam", "", StatusOpen, now, now))

	svc := NewService(mock, audit.NewService(mock))
	reports, err := svc.ListByStatus(context.Background(), StatusOpen)
	if err != nil || len(reports) != 1 || reports[0].ID != "rep-1" {
		t.Fatalf("list: %v %v", reports, err)
	}

	if _, err := svc.ListByStatus(context.Background(), "bogus"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestUpdateStatusAuditsTransition(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT id, spot_id`).
		WithArgs("rep-1").
		WillReturnRows(pgxmock.NewRows(reportColumnNames).
			AddRow("rep-1", "spot-1", "user-1", "", "spam", "", StatusOpen, now, now))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE spot_reports SET status`).
		WithArgs("rep-1", StatusReviewed).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs(pgxmock.AnyArg(), "spot-1", "reportStatusChange", "mod-1", "Mod", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	svc := NewService(mock, audit.NewService(mock))
	updated, err := svc.UpdateStatus(context.Background(), "rep-1", StatusReviewed, audit.Actor{UserID: "mod-1", UserName: "Mod"})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != StatusReviewed {
		t.Fatalf("unexpected status: %s", updated.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateStatusNoChange(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT id, spot_id`).
		WithArgs("rep-1").
		WillReturnRows(pgxmock.NewRows(reportColumnNames).
			AddRow("rep-1", "spot-1", "user-1", "", "spam", "", StatusOpen, now, now))

	svc := NewService(mock, audit.NewService(mock))
	// Re-submitting the current status writes nothing.
	if _, err := svc.UpdateStatus(context.Background(), "rep-1", StatusOpen, audit.Actor{}); err != nil {
		t.Fatalf("update status: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected writes: %v", err)
	}
}

func TestUpdateStatusNotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, spot_id`).
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows(reportColumnNames))

	svc := NewService(mock, audit.NewService(mock))
	if _, err := svc.UpdateStatus(context.Background(), "ghost", StatusReviewed, audit.Actor{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
