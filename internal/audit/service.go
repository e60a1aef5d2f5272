package audit

import (
	"context"
	"encoding/json"

	"backend-spotfinder/internal/db"

	"github.com/google/uuid"
)

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// Append writes one audit entry. The write target is passed in so callers
// can hand over their open transaction and have the entry commit atomically
// with the action it records. A missing actor name is resolved from the
// users table before the write.
func (s *Service) Append(ctx context.Context, q db.Execer, e Entry) (Entry, error) {
	e.ID = uuid.NewString()

	actor := s.ResolveActor(ctx, Actor{UserID: e.UserID, UserName: e.UserName})
	e.UserName = actor.UserName

	changesJSON, err := json.Marshal(e.Changes)
	if err != nil {
		return Entry{}, err
	}
	metadataJSON, err := json.Marshal(e.Metadata)
	if err != nil {
		return Entry{}, err
	}

	_, err = q.Exec(ctx, `
		INSERT INTO audit_log (id, spot_id, action, user_id, user_name, changes, metadata)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, e.ID, e.SpotID, e.Action.String(), e.UserID, e.UserName, changesJSON, metadataJSON)
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

// EntriesForSpot lists a spot's audit trail, newest first.
func (s *Service) EntriesForSpot(ctx context.Context, spotID string) ([]Entry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, spot_id, action, user_id, user_name, changes, metadata, created_at
		FROM audit_log WHERE spot_id=$1
		ORDER BY created_at DESC
	`, spotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var action string
		var changesJSON, metadataJSON []byte
		if err := rows.Scan(&e.ID, &e.SpotID, &action, &e.UserID, &e.UserName, &changesJSON, &metadataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		if e.Action, err = ParseAction(action); err != nil {
			return nil, err
		}
		if len(changesJSON) > 0 {
			if err := json.Unmarshal(changesJSON, &e.Changes); err != nil {
				return nil, err
			}
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &e.Metadata); err != nil {
				return nil, err
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ResolveActor fills in a missing actor name from the users table. Lookups
// are best-effort: an unknown user keeps an empty name.
func (s *Service) ResolveActor(ctx context.Context, actor Actor) Actor {
	if actor.UserID == "" || actor.UserName != "" {
		return actor
	}
	var name string
	if err := s.db.QueryRow(ctx, `SELECT username FROM users WHERE id=$1`, actor.UserID).Scan(&name); err == nil {
		actor.UserName = name
	}
	return actor
}
