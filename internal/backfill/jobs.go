package backfill

import (
	"context"
	"errors"
	"math"

	"backend-spotfinder/internal/ranking"
	"backend-spotfinder/internal/shared/geo"

	"github.com/jackc/pgx/v5"
)

// Geohash fills in the geohash for spots that have coordinates but no hash.
func (r *Runner) Geohash(ctx context.Context) (Report, error) {
	return r.run(ctx, "geohash", func(_ context.Context, row spotRow) (*stagedWrite, error) {
		if row.Geohash != nil && *row.Geohash != "" {
			return nil, nil
		}
		if row.Latitude == 0 && row.Longitude == 0 {
			return nil, nil
		}
		hash := geo.EncodeGeohash(row.Latitude, row.Longitude, geo.DefaultGeohashPrecision)
		return &stagedWrite{
			query: `UPDATE spots SET geohash=$2, updated_at=NOW() WHERE id=$1`,
			args:  []any{row.ID, hash},
		}, nil
	})
}

// Coordinates recovers missing lat/lng pairs from the stored geohash. A
// decoded position lands at the geohash cell center, which is within the
// cell's precision of the original point.
func (r *Runner) Coordinates(ctx context.Context) (Report, error) {
	return r.run(ctx, "coordinates", func(_ context.Context, row spotRow) (*stagedWrite, error) {
		if row.Latitude != 0 || row.Longitude != 0 {
			return nil, nil
		}
		if row.Geohash == nil || *row.Geohash == "" {
			return nil, nil
		}
		lat, lng := geo.DecodeGeohash(*row.Geohash)
		return &stagedWrite{
			query: `UPDATE spots SET latitude=$2, longitude=$3, updated_at=NOW() WHERE id=$1`,
			args:  []any{row.ID, lat, lng},
		}, nil
	})
}

// Ranking assigns a tiebreaker seed to spots that never got one. Existing
// seeds are never reassigned.
func (r *Runner) Ranking(ctx context.Context) (Report, error) {
	return r.run(ctx, "ranking", func(_ context.Context, row spotRow) (*stagedWrite, error) {
		if row.Ranking != nil {
			return nil, nil
		}
		return &stagedWrite{
			query: `UPDATE spots SET ranking=$2 WHERE id=$1`,
			args:  []any{row.ID, ranking.NewRankingSeed()},
		}, nil
	})
}

// Ratings recomputes the cached rating aggregate of every rated spot from
// the ratings table. Spots whose aggregate already matches are skipped.
func (r *Runner) Ratings(ctx context.Context) (Report, error) {
	return r.run(ctx, "ratings", func(ctx context.Context, row spotRow) (*stagedWrite, error) {
		if row.RatingCount == 0 {
			return nil, nil
		}

		var count int
		var avg float64
		err := r.db.QueryRow(ctx, `
			SELECT COUNT(*), COALESCE(AVG(value),0) FROM ratings WHERE spot_id=$1
		`, row.ID).Scan(&count, &avg)
		if err != nil {
			return nil, err
		}

		wilson := ranking.WilsonLowerBound(count, avg, ranking.DefaultConfidence)
		if count == row.RatingCount && floatEq(avg, row.AverageRating) && floatEq(wilson, row.Wilson) {
			return nil, nil
		}
		return &stagedWrite{
			query: `UPDATE spots SET average_rating=$2, rating_count=$3, wilson_lower_bound=$4, updated_at=NOW() WHERE id=$1`,
			args:  []any{row.ID, avg, count, wilson},
		}, nil
	})
}

// DuplicateLinks clears duplicate_of pointers that no longer hold: the
// target is gone, points at the spot itself, or is itself a duplicate. This
// restores the single-level merge invariant on legacy rows.
func (r *Runner) DuplicateLinks(ctx context.Context) (Report, error) {
	clearLink := func(id string) *stagedWrite {
		return &stagedWrite{
			query: `UPDATE spots SET duplicate_of=NULL, updated_at=NOW() WHERE id=$1`,
			args:  []any{id},
		}
	}

	return r.run(ctx, "duplicate_links", func(ctx context.Context, row spotRow) (*stagedWrite, error) {
		if row.DuplicateOf == nil || *row.DuplicateOf == "" {
			return nil, nil
		}
		if *row.DuplicateOf == row.ID {
			return clearLink(row.ID), nil
		}

		var targetDup *string
		err := r.db.QueryRow(ctx, `
			SELECT duplicate_of FROM spots WHERE id=$1
		`, *row.DuplicateOf).Scan(&targetDup)
		if errors.Is(err, pgx.ErrNoRows) {
			return clearLink(row.ID), nil
		}
		if err != nil {
			return nil, err
		}
		if targetDup != nil && *targetDup != "" {
			return clearLink(row.ID), nil
		}
		return nil, nil
	})
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
