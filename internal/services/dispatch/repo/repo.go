// Package repo provides the Postgres repository for mutations
package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lightbox/internal/modkit/repokit"
	perr "lightbox/internal/platform/errors"
	"lightbox/internal/platform/store"
	shots "lightbox/internal/services/shots/domain"

	"github.com/jackc/pgx/v5"
)

func nowUTC() time.Time { return time.Now().UTC() }

// scalarOr404 translates pgx's no-rows into the platform not-found sentinel
// so callers never see driver errors
func scalarOr404(n int64, err error) (int64, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, perr.ErrNotFound
	}
	return n, err
}

type binder struct{}

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Counter names a derived counter column on shots
type Counter string

// Counter columns; the switch in column() is the whitelist
const (
	CounterLikes    Counter = "likes"
	CounterSaves    Counter = "saves"
	CounterComments Counter = "comments"
	CounterViews    Counter = "views"
)

func (c Counter) column() string {
	switch c {
	case CounterLikes, CounterSaves, CounterComments, CounterViews:
		return string(c)
	}
	panic(fmt.Sprintf("unknown counter %q", string(c)))
}

// Storage defines the mutation repository. All methods run on the Queryer
// they were bound to, so a service transaction spans every call
type Storage interface {
	InsertShot(ctx context.Context, s shots.Shot) error
	GetShot(ctx context.Context, id string) (shots.Shot, error)
	UpdateShotMeta(ctx context.Context, id string, title *string, tags []string, tagsSet bool, color *string) (shots.Shot, error)
	DeleteShot(ctx context.Context, id string) (bool, error)
	DeleteShotComments(ctx context.Context, shotID string) (int64, error)
	DeleteShotReactions(ctx context.Context, shotID string) (int64, error)

	InsertReaction(ctx context.Context, kind, shotID, actorID string) (bool, error)
	DeleteReaction(ctx context.Context, kind, shotID, actorID string) (bool, error)
	AdjustCounter(ctx context.Context, shotID string, c Counter, delta int64) (int64, error)
	GetCounter(ctx context.Context, shotID string, c Counter) (int64, error)

	InsertComment(ctx context.Context, c shots.Comment) error

	InsertFollow(ctx context.Context, follower, followee string) (bool, error)
	DeleteFollow(ctx context.Context, follower, followee string) (bool, error)
	CountFollowers(ctx context.Context, followee string) (int64, error)
}

type pg struct{ q repokit.Queryer }

const shotCols = `
	s.id,
	s.author_id,
	s.title,
	s.tags,
	COALESCE(s.color, ''),
	s.likes,
	s.saves,
	s.comments,
	s.views,
	s.created_at,
	s.updated_at
`

func scanShot(r repokit.Row) (shots.Shot, error) {
	var sh shots.Shot
	err := r.Scan(
		&sh.ID, &sh.AuthorID, &sh.Title, &sh.Tags, &sh.Color,
		&sh.Likes, &sh.Saves, &sh.Comments, &sh.Views,
		&sh.CreatedAt, &sh.UpdatedAt,
	)
	return sh, err
}

// InsertShot implements Storage
func (s *pg) InsertShot(ctx context.Context, sh shots.Shot) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO shots (id, author_id, title, tags, color, likes, saves, comments, views, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), 0, 0, 0, 0, $6, $7)`,
		sh.ID, sh.AuthorID, sh.Title, sh.Tags, sh.Color, sh.CreatedAt, sh.UpdatedAt,
	)
	return err
}

// GetShot implements Storage
func (s *pg) GetShot(ctx context.Context, id string) (shots.Shot, error) {
	return store.One(ctx, s.q, scanShot,
		"SELECT "+shotCols+" FROM shots s WHERE s.id = $1", id)
}

// UpdateShotMeta implements Storage; only the provided fields move
func (s *pg) UpdateShotMeta(
	ctx context.Context,
	id string,
	title *string,
	tags []string,
	tagsSet bool,
	color *string,
) (shots.Shot, error) {
	var sb strings.Builder
	var args []any
	arg := func(v any) string { args = append(args, v); return fmt.Sprintf("$%d", len(args)) }

	sb.WriteString("UPDATE shots s SET updated_at = " + arg(nowUTC()))
	if title != nil {
		sb.WriteString(", title = " + arg(*title))
	}
	if tagsSet {
		sb.WriteString(", tags = " + arg(tags))
	}
	if color != nil {
		sb.WriteString(", color = NULLIF(" + arg(*color) + ", '')")
	}
	sb.WriteString(" WHERE s.id = " + arg(id))
	sb.WriteString(" RETURNING " + shotCols)

	return store.One(ctx, s.q, scanShot, sb.String(), args...)
}

// DeleteShot implements Storage
func (s *pg) DeleteShot(ctx context.Context, id string) (bool, error) {
	tag, err := s.q.Exec(ctx, "DELETE FROM shots WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteShotComments implements Storage
func (s *pg) DeleteShotComments(ctx context.Context, shotID string) (int64, error) {
	tag, err := s.q.Exec(ctx, "DELETE FROM comments WHERE shot_id = $1", shotID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteShotReactions implements Storage
func (s *pg) DeleteShotReactions(ctx context.Context, shotID string) (int64, error) {
	tag, err := s.q.Exec(ctx, "DELETE FROM reactions WHERE shot_id = $1", shotID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// InsertReaction implements Storage. ON CONFLICT DO NOTHING makes the unique
// index the arbiter under concurrent toggles: zero rows means a concurrent
// winner already holds the state
func (s *pg) InsertReaction(ctx context.Context, kind, shotID, actorID string) (bool, error) {
	tag, err := s.q.Exec(ctx, `
		INSERT INTO reactions (kind, shot_id, actor_id, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (kind, shot_id, actor_id) DO NOTHING`,
		kind, shotID, actorID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteReaction implements Storage
func (s *pg) DeleteReaction(ctx context.Context, kind, shotID, actorID string) (bool, error) {
	tag, err := s.q.Exec(ctx, `
		DELETE FROM reactions WHERE kind = $1 AND shot_id = $2 AND actor_id = $3`,
		kind, shotID, actorID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// AdjustCounter implements Storage
func (s *pg) AdjustCounter(ctx context.Context, shotID string, c Counter, delta int64) (int64, error) {
	col := c.column()
	return scalarOr404(store.Scalar[int64](ctx, s.q,
		"UPDATE shots SET "+col+" = GREATEST("+col+" + $2, 0) WHERE id = $1 RETURNING "+col,
		shotID, delta,
	))
}

// GetCounter implements Storage
func (s *pg) GetCounter(ctx context.Context, shotID string, c Counter) (int64, error) {
	col := c.column()
	return scalarOr404(store.Scalar[int64](ctx, s.q,
		"SELECT "+col+" FROM shots WHERE id = $1", shotID))
}

// InsertComment implements Storage
func (s *pg) InsertComment(ctx context.Context, c shots.Comment) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO comments (id, shot_id, author_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.ShotID, c.AuthorID, c.Body, c.CreatedAt,
	)
	return err
}

// InsertFollow implements Storage
func (s *pg) InsertFollow(ctx context.Context, follower, followee string) (bool, error) {
	tag, err := s.q.Exec(ctx, `
		INSERT INTO follows (follower_id, followee_id, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (follower_id, followee_id) DO NOTHING`,
		follower, followee,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteFollow implements Storage
func (s *pg) DeleteFollow(ctx context.Context, follower, followee string) (bool, error) {
	tag, err := s.q.Exec(ctx, `
		DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`,
		follower, followee,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CountFollowers implements Storage
func (s *pg) CountFollowers(ctx context.Context, followee string) (int64, error) {
	return store.Scalar[int64](ctx, s.q,
		"SELECT count(*) FROM follows WHERE followee_id = $1", followee)
}
