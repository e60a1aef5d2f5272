// Package backfill implements the batch maintenance jobs for the spots
// table. Every job has the same shape: page through all spots by id, test a
// predicate per row, stage an update when it matches, and flush the staged
// writes in bounded chunks. Jobs are idempotent; rows already in the target
// state are counted as skipped, so re-running a job after a partial failure
// converges.
package backfill

import (
	"context"
	"time"

	"backend-spotfinder/internal/db"
	"backend-spotfinder/internal/metrics"

	"github.com/rs/zerolog/log"
)

// Report carries the counters a job accumulates over one run.
type Report struct {
	Total   int `json:"total"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type Runner struct {
	db        db.Querier
	pageSize  int
	batchSize int
}

func NewRunner(q db.Querier, pageSize, batchSize int) *Runner {
	if pageSize <= 0 {
		pageSize = 1000
	}
	if batchSize <= 0 {
		batchSize = 400
	}
	return &Runner{db: q, pageSize: pageSize, batchSize: batchSize}
}

// spotRow is the column superset the jobs inspect. Nullable columns keep
// their pointer form so a missing value is distinguishable from a zero one.
type spotRow struct {
	ID            string
	Latitude      float64
	Longitude     float64
	Geohash       *string
	Ranking       *float64
	DuplicateOf   *string
	AverageRating float64
	RatingCount   int
	Wilson        float64
}

const pageQuery = `
	SELECT id, latitude, longitude, geohash, ranking, duplicate_of,
	       average_rating, rating_count, wilson_lower_bound
	FROM spots
	WHERE id > $1
	ORDER BY id
	LIMIT $2`

type stagedWrite struct {
	query string
	args  []any
}

// visitFunc inspects one row and either returns a staged write, or nil to
// count the row as skipped. A returned error counts the row as failed
// without stopping the run.
type visitFunc func(ctx context.Context, row spotRow) (*stagedWrite, error)

func (r *Runner) run(ctx context.Context, name string, visit visitFunc) (Report, error) {
	started := time.Now()
	metrics.BackfillRuns.WithLabelValues(name).Inc()
	defer func() {
		metrics.BackfillDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())
	}()

	var report Report
	var staged []stagedWrite
	cursor := ""

	for {
		page, err := r.fetchPage(ctx, cursor)
		if err != nil {
			return report, err
		}

		for _, row := range page {
			cursor = row.ID
			report.Total++

			write, err := visit(ctx, row)
			if err != nil {
				log.Error().Err(err).Str("job", name).Str("spot_id", row.ID).Msg("backfill row failed")
				report.Failed++
				continue
			}
			if write == nil {
				report.Skipped++
				continue
			}

			staged = append(staged, *write)
			if len(staged) >= r.batchSize {
				applied, failed := r.flush(ctx, staged)
				report.Updated += applied
				report.Failed += failed
				staged = staged[:0]
			}
		}

		if len(page) < r.pageSize {
			break
		}
	}

	if len(staged) > 0 {
		applied, failed := r.flush(ctx, staged)
		report.Updated += applied
		report.Failed += failed
	}

	log.Info().Str("job", name).
		Int("total", report.Total).Int("updated", report.Updated).
		Int("skipped", report.Skipped).Int("failed", report.Failed).
		Dur("took", time.Since(started)).Msg("backfill finished")
	return report, nil
}

func (r *Runner) fetchPage(ctx context.Context, cursor string) ([]spotRow, error) {
	rows, err := r.db.Query(ctx, pageQuery, cursor, r.pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var page []spotRow
	for rows.Next() {
		var row spotRow
		if err := rows.Scan(&row.ID, &row.Latitude, &row.Longitude, &row.Geohash, &row.Ranking,
			&row.DuplicateOf, &row.AverageRating, &row.RatingCount, &row.Wilson); err != nil {
			return nil, err
		}
		page = append(page, row)
	}
	return page, rows.Err()
}

// flush commits one chunk of staged writes in its own transaction. A failed
// chunk counts every write in it as failed; the run carries on with the next
// chunk.
func (r *Runner) flush(ctx context.Context, staged []stagedWrite) (applied, failed int) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		log.Error().Err(err).Msg("backfill flush begin failed")
		return 0, len(staged)
	}
	defer tx.Rollback(ctx)

	for _, w := range staged {
		if _, err := tx.Exec(ctx, w.query, w.args...); err != nil {
			log.Error().Err(err).Msg("backfill write failed")
			return 0, len(staged)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Error().Err(err).Msg("backfill flush commit failed")
		return 0, len(staged)
	}
	return len(staged), 0
}
