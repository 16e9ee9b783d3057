// Package repo provides the Postgres repository for the social read-model
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

// Storage defines the social read repository. Profiles are derived counts;
// there is no users table, ids are the opaque bearer subjects
type Storage interface {
	CountFollowers(ctx context.Context, userID string) (int64, error)
	CountFollowing(ctx context.Context, userID string) (int64, error)
	CountShots(ctx context.Context, authorID string) (int64, error)
}

type pg struct{ q repokit.Queryer }

// CountFollowers implements Storage
func (s *pg) CountFollowers(ctx context.Context, userID string) (int64, error) {
	return store.Scalar[int64](ctx, s.q, `SELECT count(*) FROM follows WHERE followee_id = $1`, userID)
}

// CountFollowing implements Storage
func (s *pg) CountFollowing(ctx context.Context, userID string) (int64, error) {
	return store.Scalar[int64](ctx, s.q, `SELECT count(*) FROM follows WHERE follower_id = $1`, userID)
}

// CountShots implements Storage
func (s *pg) CountShots(ctx context.Context, authorID string) (int64, error) {
	return store.Scalar[int64](ctx, s.q, `SELECT count(*) FROM shots WHERE author_id = $1`, authorID)
}
