package spot

import (
	"context"
	"errors"

	"backend-spotfinder/internal/audit"
	"backend-spotfinder/internal/cache"
	"backend-spotfinder/internal/db"
	"backend-spotfinder/internal/metrics"
	"backend-spotfinder/internal/ranking"
	"backend-spotfinder/internal/shared/geo"
	"backend-spotfinder/internal/stream"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("spot not found")

// spotColumns is the shared select list; keep in sync with scanSpot.
const spotColumns = `id, name, description, COALESCE(address,''), COALESCE(city,''), COALESCE(country_code,''),
	       latitude, longitude, COALESCE(geohash,''), image_urls, video_ids,
	       access, features, facilities, good_for,
	       COALESCE(created_by,''), COALESCE(created_by_name,''), COALESCE(spot_source,''),
	       is_public, hidden, average_rating, rating_count, wilson_lower_bound, COALESCE(ranking,0),
	       COALESCE(duplicate_of,''), created_at, updated_at`

type Service struct {
	db    db.Querier
	audit *audit.Service
	cache *cache.Cache
	hub   *stream.Hub
}

// NewService wires the spot service. Cache and hub may be nil.
func NewService(q db.Querier, auditSvc *audit.Service, c *cache.Cache, hub *stream.Hub) *Service {
	return &Service{db: q, audit: auditSvc, cache: c, hub: hub}
}

func (s *Service) CreateSpot(ctx context.Context, input Spot) (Spot, error) {
	if input.Name == "" {
		return Spot{}, errors.New("name required")
	}

	input.ID = uuid.NewString()
	input.Geohash = geo.EncodeGeohash(input.Latitude, input.Longitude, geo.DefaultGeohashPrecision)
	// The ranking seed is assigned exactly once, here, and never touched on
	// update. It keeps unrated spots in a stable order.
	input.Ranking = ranking.NewRankingSeed()
	input.AverageRating = 0
	input.RatingCount = 0
	input.WilsonLowerBound = 0
	input.DuplicateOf = ""

	row := s.db.QueryRow(ctx, `
		INSERT INTO spots (id, name, description, address, city, country_code,
			latitude, longitude, geohash, image_urls, video_ids,
			access, features, facilities, good_for,
			created_by, created_by_name, spot_source, is_public, hidden, ranking)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,NULLIF($18,''),$19,$20,$21)
		RETURNING created_at, updated_at
	`, input.ID, input.Name, input.Description, input.Address, input.City, input.CountryCode,
		input.Latitude, input.Longitude, input.Geohash, input.ImageURLs, input.VideoIDs,
		input.Access, input.Features, input.Facilities, input.GoodFor,
		input.CreatedBy, input.CreatedByName, input.SpotSource, input.IsPublic, input.Hidden, input.Ranking)
	if err := row.Scan(&input.CreatedAt, &input.UpdatedAt); err != nil {
		return Spot{}, err
	}

	s.hub.Publish(input.ID, stream.EventCreated)
	return input, nil
}

func (s *Service) GetSpot(ctx context.Context, id string) (Spot, error) {
	row := s.db.QueryRow(ctx, `SELECT `+spotColumns+` FROM spots WHERE id=$1`, id)
	sp, err := scanSpot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Spot{}, ErrNotFound
	}
	return sp, err
}

// CachedSpot serves a spot lookup through the cache-aside layer. The raw
// JSON is returned on a hit so handlers can pass it through untouched.
func (s *Service) CachedSpot(ctx context.Context, id string) (Spot, []byte, error) {
	if data, err := s.cache.GetSpot(ctx, id); err == nil && data != nil {
		return Spot{}, data, nil
	}

	sp, err := s.GetSpot(ctx, id)
	if err != nil {
		return Spot{}, nil, err
	}
	_ = s.cache.SetSpot(ctx, id, sp)
	return sp, nil, nil
}

// UpdateSpot applies a patch to a spot and records the resulting field diff
// as an audit entry, committed in the same transaction as the update.
func (s *Service) UpdateSpot(ctx context.Context, id string, patch Spot, actor audit.Actor) (Spot, error) {
	current, err := s.GetSpot(ctx, id)
	if err != nil {
		return Spot{}, err
	}

	updated := applyPatch(current, patch)
	changes := audit.Diff(current.Snapshot(), updated.Snapshot())
	if len(changes) == 0 {
		return current, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Spot{}, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE spots
		SET name=$2, description=$3, address=$4, city=$5, country_code=$6,
		    latitude=$7, longitude=$8, geohash=$9, image_urls=$10, video_ids=$11,
		    access=$12, features=$13, facilities=$14, good_for=$15,
		    is_public=$16, hidden=$17, updated_at=NOW()
		WHERE id=$1
	`, updated.ID, updated.Name, updated.Description, updated.Address, updated.City, updated.CountryCode,
		updated.Latitude, updated.Longitude, updated.Geohash, updated.ImageURLs, updated.VideoIDs,
		updated.Access, updated.Features, updated.Facilities, updated.GoodFor,
		updated.IsPublic, updated.Hidden)
	if err != nil {
		return Spot{}, err
	}

	if _, err := s.audit.Append(ctx, tx, audit.Entry{
		SpotID:   id,
		Action:   audit.ActionEdit,
		UserID:   actor.UserID,
		UserName: actor.UserName,
		Changes:  changes,
	}); err != nil {
		return Spot{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Spot{}, err
	}

	_ = s.cache.Invalidate(ctx, id)
	s.hub.Publish(id, stream.EventUpdated)
	return updated, nil
}

func (s *Service) DeleteSpot(ctx context.Context, id string, actor audit.Actor) error {
	current, err := s.GetSpot(ctx, id)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM spots WHERE id=$1`, id); err != nil {
		return err
	}

	if _, err := s.audit.Append(ctx, tx, audit.Entry{
		SpotID:   id,
		Action:   audit.ActionDelete,
		UserID:   actor.UserID,
		UserName: actor.UserName,
		Metadata: map[string]any{"name": current.Name},
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	_ = s.cache.Invalidate(ctx, id)
	s.hub.Publish(id, stream.EventDeleted)
	return nil
}

// SetHidden hides or unhides a spot from public query results.
func (s *Service) SetHidden(ctx context.Context, id string, hidden bool, actor audit.Actor) error {
	if _, err := s.GetSpot(ctx, id); err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE spots SET hidden=$2, updated_at=NOW() WHERE id=$1`, id, hidden); err != nil {
		return err
	}

	action := audit.ActionHidden
	event := stream.EventHidden
	if !hidden {
		action = audit.ActionUnhidden
		event = stream.EventUnhidden
	}
	if _, err := s.audit.Append(ctx, tx, audit.Entry{
		SpotID:   id,
		Action:   action,
		UserID:   actor.UserID,
		UserName: actor.UserName,
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	_ = s.cache.Invalidate(ctx, id)
	s.hub.Publish(id, event)
	return nil
}

// SpotsInBounds queries public spots inside a lat/lng rectangle. A box that
// wraps the antimeridian is split into two disjoint range queries and the
// results concatenated; order between the halves is unspecified.
func (s *Service) SpotsInBounds(ctx context.Context, box geo.BoundingBox) ([]Spot, error) {
	if box.CrossesAntimeridian() {
		metrics.AntimeridianSplits.Inc()
		west, east := box.Split()
		spots, err := s.queryBounds(ctx, west)
		if err != nil {
			return nil, err
		}
		eastSpots, err := s.queryBounds(ctx, east)
		if err != nil {
			return nil, err
		}
		return append(spots, eastSpots...), nil
	}
	return s.queryBounds(ctx, box)
}

func (s *Service) queryBounds(ctx context.Context, box geo.BoundingBox) ([]Spot, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+spotColumns+`
		FROM spots
		WHERE is_public AND NOT hidden AND duplicate_of IS NULL
		  AND latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4
	`, box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var spots []Spot
	for rows.Next() {
		sp, err := scanSpot(rows)
		if err != nil {
			return nil, err
		}
		spots = append(spots, sp)
	}
	return spots, rows.Err()
}

// Nearby returns public spots within radiusKm of a center point. The
// bounding box is only a pre-filter; candidates are checked against the
// true great-circle distance.
func (s *Service) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]Spot, error) {
	metrics.NearbyQueries.Inc()

	box := geo.NewBoundingBox(lat, lng, radiusKm)
	candidates, err := s.SpotsInBounds(ctx, box)
	if err != nil {
		return nil, err
	}

	var spots []Spot
	for _, sp := range candidates {
		if geo.HaversineKm(lat, lng, sp.Latitude, sp.Longitude) <= radiusKm {
			spots = append(spots, sp)
		}
	}
	return spots, nil
}

// TopRanked lists public spots by their Wilson lower bound with the
// creation-time ranking seed as tie-breaker.
func (s *Service) TopRanked(ctx context.Context, limit int) ([]Spot, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+spotColumns+`
		FROM spots
		WHERE is_public AND NOT hidden AND duplicate_of IS NULL
		ORDER BY wilson_lower_bound DESC, ranking DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var spots []Spot
	for rows.Next() {
		sp, err := scanSpot(rows)
		if err != nil {
			return nil, err
		}
		spots = append(spots, sp)
	}
	return spots, rows.Err()
}

// Rate upserts one user's rating and recomputes the spot's cached aggregate
// in the same transaction.
func (s *Service) Rate(ctx context.Context, spotID, userID string, value int) (RatingSummary, error) {
	if value < 1 || value > 5 {
		return RatingSummary{}, errors.New("rating must be between 1 and 5")
	}
	if userID == "" {
		return RatingSummary{}, errors.New("user id required")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return RatingSummary{}, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO ratings (spot_id, user_id, value)
		VALUES ($1,$2,$3)
		ON CONFLICT (spot_id, user_id) DO UPDATE
		SET value=EXCLUDED.value, updated_at=NOW()
	`, spotID, userID, value)
	if err != nil {
		return RatingSummary{}, err
	}

	var count int
	var avg float64
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(AVG(value),0) FROM ratings WHERE spot_id=$1
	`, spotID).Scan(&count, &avg); err != nil {
		return RatingSummary{}, err
	}

	summary := RatingSummary{
		SpotID:           spotID,
		AverageRating:    avg,
		RatingCount:      count,
		WilsonLowerBound: ranking.WilsonLowerBound(count, avg, ranking.DefaultConfidence),
	}

	_, err = tx.Exec(ctx, `
		UPDATE spots
		SET average_rating=$2, rating_count=$3, wilson_lower_bound=$4, updated_at=NOW()
		WHERE id=$1
	`, spotID, summary.AverageRating, summary.RatingCount, summary.WilsonLowerBound)
	if err != nil {
		return RatingSummary{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return RatingSummary{}, err
	}

	_ = s.cache.Invalidate(ctx, spotID)
	s.hub.Publish(spotID, stream.EventRated)
	return summary, nil
}

// DuplicatesOf lists the spots that have been merged into the given one.
func (s *Service) DuplicatesOf(ctx context.Context, originalID string) ([]Spot, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+spotColumns+` FROM spots WHERE duplicate_of=$1
	`, originalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var spots []Spot
	for rows.Next() {
		sp, err := scanSpot(rows)
		if err != nil {
			return nil, err
		}
		spots = append(spots, sp)
	}
	return spots, rows.Err()
}

func applyPatch(current, patch Spot) Spot {
	if patch.Name != "" {
		current.Name = patch.Name
	}
	if patch.Description != "" {
		current.Description = patch.Description
	}
	if patch.Address != "" {
		current.Address = patch.Address
	}
	if patch.City != "" {
		current.City = patch.City
	}
	if patch.CountryCode != "" {
		current.CountryCode = patch.CountryCode
	}
	if patch.Latitude != 0 || patch.Longitude != 0 {
		current.Latitude = patch.Latitude
		current.Longitude = patch.Longitude
		current.Geohash = geo.EncodeGeohash(patch.Latitude, patch.Longitude, geo.DefaultGeohashPrecision)
	}
	if patch.ImageURLs != nil {
		current.ImageURLs = patch.ImageURLs
	}
	if patch.VideoIDs != nil {
		current.VideoIDs = patch.VideoIDs
	}
	if patch.Access != nil {
		current.Access = patch.Access
	}
	if patch.Features != nil {
		current.Features = patch.Features
	}
	if patch.Facilities != nil {
		current.Facilities = patch.Facilities
	}
	if patch.GoodFor != nil {
		current.GoodFor = patch.GoodFor
	}
	if patch.IsPublic {
		current.IsPublic = true
	}
	return current
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSpot(row scanner) (Spot, error) {
	var sp Spot
	err := row.Scan(&sp.ID, &sp.Name, &sp.Description, &sp.Address, &sp.City, &sp.CountryCode,
		&sp.Latitude, &sp.Longitude, &sp.Geohash, &sp.ImageURLs, &sp.VideoIDs,
		&sp.Access, &sp.Features, &sp.Facilities, &sp.GoodFor,
		&sp.CreatedBy, &sp.CreatedByName, &sp.SpotSource,
		&sp.IsPublic, &sp.Hidden, &sp.AverageRating, &sp.RatingCount, &sp.WilsonLowerBound, &sp.Ranking,
		&sp.DuplicateOf, &sp.CreatedAt, &sp.UpdatedAt)
	if err != nil {
		return Spot{}, err
	}
	return sp, nil
}
