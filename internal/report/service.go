package report

import (
	"context"
	"errors"
	"fmt"

	"backend-spotfinder/internal/audit"
	"backend-spotfinder/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("report not found")

const reportColumns = `id, spot_id, reporter_id, COALESCE(reporter_name,''), reason, COALESCE(message,''), status, created_at, updated_at`

type Service struct {
	db    db.Querier
	audit *audit.Service
}

func NewService(q db.Querier, auditSvc *audit.Service) *Service {
	return &Service{db: q, audit: auditSvc}
}

func (s *Service) Create(ctx context.Context, r Report) (Report, error) {
	if r.SpotID == "" {
		return Report{}, errors.New("spot id required")
	}
	if r.Reason == "" {
		return Report{}, errors.New("reason required")
	}

	r.ID = uuid.NewString()
	r.Status = StatusOpen

	row := s.db.QueryRow(ctx, `
		INSERT INTO spot_reports (id, spot_id, reporter_id, reporter_name, reason, message, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at
	`, r.ID, r.SpotID, r.ReporterID, r.ReporterName, r.Reason, r.Message, r.Status)
	if err := row.Scan(&r.CreatedAt, &r.UpdatedAt); err != nil {
		return Report{}, err
	}
	return r, nil
}

func (s *Service) Get(ctx context.Context, id string) (Report, error) {
	row := s.db.QueryRow(ctx, `SELECT `+reportColumns+` FROM spot_reports WHERE id=$1`, id)
	r, err := scanReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Report{}, ErrNotFound
	}
	return r, err
}

// ListByStatus returns reports with the given status, oldest first so the
// moderation queue is worked in arrival order. An empty status lists all.
func (s *Service) ListByStatus(ctx context.Context, status string) ([]Report, error) {
	if status != "" && !ValidStatus(status) {
		return nil, fmt.Errorf("unknown report status %q", status)
	}

	query := `SELECT ` + reportColumns + ` FROM spot_reports`
	args := []any{}
	if status != "" {
		query += ` WHERE status=$1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// UpdateStatus moves a report through its lifecycle and records the
// transition on the spot's audit trail in the same transaction.
func (s *Service) UpdateStatus(ctx context.Context, id, status string, actor audit.Actor) (Report, error) {
	if !ValidStatus(status) {
		return Report{}, fmt.Errorf("unknown report status %q", status)
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return Report{}, err
	}
	if current.Status == status {
		return current, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Report{}, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE spot_reports SET status=$2, updated_at=NOW() WHERE id=$1
	`, id, status); err != nil {
		return Report{}, err
	}

	if _, err := s.audit.Append(ctx, tx, audit.Entry{
		SpotID:   current.SpotID,
		Action:   audit.ActionReportStatusChange,
		UserID:   actor.UserID,
		UserName: actor.UserName,
		Metadata: map[string]any{
			"report_id": id,
			"from":      current.Status,
			"to":        status,
		},
	}); err != nil {
		return Report{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Report{}, err
	}

	current.Status = status
	return current, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (Report, error) {
	var r Report
	err := row.Scan(&r.ID, &r.SpotID, &r.ReporterID, &r.ReporterName, &r.Reason, &r.Message, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return Report{}, err
	}
	return r, nil
}
