package spot

import (
	"context"
	"errors"

	"backend-spotfinder/internal/audit"
	"backend-spotfinder/internal/shared/geo"
	"backend-spotfinder/internal/stream"

	"github.com/jackc/pgx/v5"
)

// Validation outcomes for MarkAsDuplicate, checked in this order.
var (
	ErrOriginalNotFound     = errors.New("original spot not found")
	ErrDuplicateNotFound    = errors.New("duplicate spot not found")
	ErrSelfReference        = errors.New("a spot cannot be marked as a duplicate of itself")
	ErrChainNotAllowed      = errors.New("original is itself marked as a duplicate")
	ErrOriginalMustBeNative = errors.New("original must be a native spot")
)

// MergeOptions selects which parts of the duplicate are folded into the
// original. Each toggle is independent; none of them ever modify the
// duplicate beyond setting its duplicate_of pointer.
type MergeOptions struct {
	TransferPhotos       bool `json:"transfer_photos"`
	TransferVideos       bool `json:"transfer_videos"`
	OverwriteName        bool `json:"overwrite_name"`
	OverwriteDescription bool `json:"overwrite_description"`
	OverwriteLocation    bool `json:"overwrite_location"`
	OverwriteAttributes  bool `json:"overwrite_attributes"`
}

// MarkAsDuplicate links duplicateID to originalID and merges fields per
// opts. Both spot writes and the audit entry commit in one transaction.
// Repeating the call with the same arguments is a no-op merge: unions skip
// already-present values and overwrites re-apply the same data.
//
// Location overwrite treats coordinates as one unit but address, city and
// country code each independently, so a merge can produce new coordinates
// with a stale city. That mirrors the historical merge behavior; callers
// wanting consistency should overwrite all location fields on the duplicate
// before merging.
func (s *Service) MarkAsDuplicate(ctx context.Context, duplicateID, originalID string, opts MergeOptions, actor audit.Actor) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	original, err := s.getSpotTx(ctx, tx, originalID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrOriginalNotFound
	}
	if err != nil {
		return err
	}

	duplicate, err := s.getSpotTx(ctx, tx, duplicateID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicateNotFound
	}
	if err != nil {
		return err
	}

	if duplicateID == originalID {
		return ErrSelfReference
	}
	if original.DuplicateOf != "" {
		return ErrChainNotAllowed
	}
	if !original.IsNative() {
		return ErrOriginalMustBeNative
	}

	merged := mergeSpots(original, duplicate, opts)

	_, err = tx.Exec(ctx, `
		UPDATE spots
		SET name=$2, description=$3, address=$4, city=$5, country_code=$6,
		    latitude=$7, longitude=$8, geohash=$9, image_urls=$10, video_ids=$11,
		    access=$12, features=$13, facilities=$14, good_for=$15, updated_at=NOW()
		WHERE id=$1
	`, merged.ID, merged.Name, merged.Description, merged.Address, merged.City, merged.CountryCode,
		merged.Latitude, merged.Longitude, merged.Geohash, merged.ImageURLs, merged.VideoIDs,
		merged.Access, merged.Features, merged.Facilities, merged.GoodFor)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE spots SET duplicate_of=$2, updated_at=NOW() WHERE id=$1
	`, duplicateID, originalID)
	if err != nil {
		return err
	}

	if _, err := s.audit.Append(ctx, tx, audit.Entry{
		SpotID:   duplicateID,
		Action:   audit.ActionMarkedDuplicate,
		UserID:   actor.UserID,
		UserName: actor.UserName,
		Metadata: map[string]any{
			"original_id":           originalID,
			"transfer_photos":       opts.TransferPhotos,
			"transfer_videos":       opts.TransferVideos,
			"overwrite_name":        opts.OverwriteName,
			"overwrite_description": opts.OverwriteDescription,
			"overwrite_location":    opts.OverwriteLocation,
			"overwrite_attributes":  opts.OverwriteAttributes,
		},
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	_ = s.cache.Invalidate(ctx, originalID, duplicateID)
	s.hub.Publish(duplicateID, stream.EventMarkedDuplicate)
	s.hub.Publish(originalID, stream.EventUpdated)
	return nil
}

func (s *Service) getSpotTx(ctx context.Context, tx pgx.Tx, id string) (Spot, error) {
	return scanSpot(tx.QueryRow(ctx, `SELECT `+spotColumns+` FROM spots WHERE id=$1`, id))
}

// mergeSpots folds the selected parts of duplicate into original. Pure.
func mergeSpots(original, duplicate Spot, opts MergeOptions) Spot {
	if opts.TransferPhotos {
		original.ImageURLs = unionStrings(original.ImageURLs, duplicate.ImageURLs)
	}
	if opts.TransferVideos {
		original.VideoIDs = unionStrings(original.VideoIDs, duplicate.VideoIDs)
	}
	if opts.OverwriteName && duplicate.Name != "" {
		original.Name = duplicate.Name
	}
	if opts.OverwriteDescription && duplicate.Description != "" {
		original.Description = duplicate.Description
	}
	if opts.OverwriteLocation {
		if duplicate.Latitude != 0 || duplicate.Longitude != 0 {
			original.Latitude = duplicate.Latitude
			original.Longitude = duplicate.Longitude
			original.Geohash = geo.EncodeGeohash(duplicate.Latitude, duplicate.Longitude, geo.DefaultGeohashPrecision)
		}
		if duplicate.Address != "" {
			original.Address = duplicate.Address
		}
		if duplicate.City != "" {
			original.City = duplicate.City
		}
		if duplicate.CountryCode != "" {
			original.CountryCode = duplicate.CountryCode
		}
	}
	if opts.OverwriteAttributes {
		if len(duplicate.Access) > 0 {
			original.Access = duplicate.Access
		}
		if len(duplicate.Features) > 0 {
			original.Features = duplicate.Features
		}
		if len(duplicate.Facilities) > 0 {
			original.Facilities = duplicate.Facilities
		}
		if len(duplicate.GoodFor) > 0 {
			original.GoodFor = duplicate.GoodFor
		}
	}
	return original
}

// unionStrings keeps existing entries in order and appends new unique ones.
func unionStrings(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, v := range existing {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	for _, v := range incoming {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
