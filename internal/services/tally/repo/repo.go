// Package repo provides the Postgres repository for counter reconciliation
package repo

import (
	"context"

	"lightbox/internal/modkit/repokit"
	"lightbox/internal/platform/store"
)

type binder struct{}

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Repair is one shot whose stored counters disagreed with the reaction and
// comment rows; the fields carry the corrected values
type Repair struct {
	ShotID   string
	Likes    int64
	Saves    int64
	Comments int64
}

// Storage defines the reconciliation repository
type Storage interface {
	// ListShotIDs walks the keyspace in id order, keyset style
	ListShotIDs(ctx context.Context, afterID string, limit int) ([]string, error)
	// RepairCounters recomputes likes, saves, and comments for the given
	// shots from their source rows and rewrites only the ones that drifted
	RepairCounters(ctx context.Context, ids []string) ([]Repair, error)
}

type pg struct{ q repokit.Queryer }

// ListShotIDs implements Storage
func (s *pg) ListShotIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	return store.Many(ctx, s.q, func(r repokit.Row) (string, error) {
		var id string
		err := r.Scan(&id)
		return id, err
	}, `SELECT id FROM shots WHERE id > $1 ORDER BY id ASC LIMIT $2`, afterID, limit)
}

// RepairCounters implements Storage. Views are not reconciled: view events
// live only in the analytics store, the counter column is their source of
// truth
func (s *pg) RepairCounters(ctx context.Context, ids []string) ([]Repair, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return store.Many(ctx, s.q, func(r repokit.Row) (Repair, error) {
		var rp Repair
		err := r.Scan(&rp.ShotID, &rp.Likes, &rp.Saves, &rp.Comments)
		return rp, err
	}, `
		WITH actual AS (
			SELECT s.id,
			       count(*) FILTER (WHERE r.kind = 'like') AS likes,
			       count(*) FILTER (WHERE r.kind = 'save') AS saves,
			       (SELECT count(*) FROM comments c WHERE c.shot_id = s.id) AS comments
			FROM shots s
			LEFT JOIN reactions r ON r.shot_id = s.id
			WHERE s.id = ANY($1)
			GROUP BY s.id
		)
		UPDATE shots s
		SET likes = a.likes, saves = a.saves, comments = a.comments
		FROM actual a
		WHERE s.id = a.id
		  AND (s.likes <> a.likes OR s.saves <> a.saves OR s.comments <> a.comments)
		RETURNING s.id, s.likes, s.saves, s.comments`,
		ids,
	)
}
