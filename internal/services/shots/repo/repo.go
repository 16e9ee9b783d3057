// Package repo provides the Postgres repository for the shots read model
package repo

import (
	"context"
	"fmt"
	"strings"

	"lightbox/internal/core/feedquery"
	"lightbox/internal/modkit/repokit"
	"lightbox/internal/platform/store"
	"lightbox/internal/services/shots/domain"
)

type binder struct{}

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Storage defines the shots read repository
type Storage interface {
	Find(ctx context.Context, d feedquery.Descriptor) ([]domain.Shot, error)
	Count(ctx context.Context, d feedquery.Descriptor) (int, error)
	Get(ctx context.Context, id string) (domain.Shot, error)
	Comments(ctx context.Context, shotID string, limit, offset int) ([]domain.Comment, error)
	CountComments(ctx context.Context, shotID string) (int, error)
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

func scanShot(r repokit.Row) (domain.Shot, error) {
	var sh domain.Shot
	err := r.Scan(
		&sh.ID, &sh.AuthorID, &sh.Title, &sh.Tags, &sh.Color,
		&sh.Likes, &sh.Saves, &sh.Comments, &sh.Views,
		&sh.CreatedAt, &sh.UpdatedAt,
	)
	return sh, err
}

// where builds the filter clause for a descriptor with numbered args
func where(d feedquery.Descriptor, args *[]any) string {
	var sb strings.Builder
	arg := func(v any) string { *args = append(*args, v); return fmt.Sprintf("$%d", len(*args)) }

	sb.WriteString("WHERE TRUE\n")
	if d.Text != "" {
		sb.WriteString("  AND s.title ILIKE " + arg("%"+escapeLike(d.Text)+"%") + " ESCAPE '\\'\n")
	}
	if len(d.Tags) > 0 {
		sb.WriteString("  AND s.tags @> " + arg(d.Tags) + "\n")
	}
	if d.Color != "" {
		sb.WriteString("  AND s.color = " + arg(d.Color) + "\n")
	}
	if d.Author != "" {
		sb.WriteString("  AND s.author_id = " + arg(d.Author) + "\n")
	}
	if !d.Since.IsZero() {
		sb.WriteString("  AND s.created_at >= " + arg(d.Since) + "\n")
	}
	if !d.Until.IsZero() {
		sb.WriteString("  AND s.created_at < " + arg(d.Until) + "\n")
	}
	return sb.String()
}

// orderBy maps a sort token to a stable ordering; ids are ULIDs so the id
// tiebreak doubles as creation order
func orderBy(s feedquery.Sort) string {
	switch s {
	case feedquery.SortPopular:
		return "ORDER BY (s.likes + s.saves) DESC, s.id DESC\n"
	case feedquery.SortMostViewed:
		return "ORDER BY s.views DESC, s.id DESC\n"
	case feedquery.SortMostCommented:
		return "ORDER BY s.comments DESC, s.id DESC\n"
	default: // recent
		return "ORDER BY s.id DESC\n"
	}
}

// Find implements Storage
func (s *pg) Find(ctx context.Context, d feedquery.Descriptor) ([]domain.Shot, error) {
	var args []any
	var sb strings.Builder
	sb.WriteString("SELECT " + shotCols + " FROM shots s\n")
	sb.WriteString(where(d, &args))
	sb.WriteString(orderBy(d.Sort))

	arg := func(v any) string { args = append(args, v); return fmt.Sprintf("$%d", len(args)) }
	sb.WriteString("LIMIT " + arg(d.PageSize) + " OFFSET " + arg(d.Offset()))

	rows, err := store.Many(ctx, s.q, scanShot, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.Shot{}
	}
	return rows, nil
}

// Count implements Storage
func (s *pg) Count(ctx context.Context, d feedquery.Descriptor) (int, error) {
	var args []any
	sql := "SELECT count(*) FROM shots s\n" + where(d, &args)
	n, err := store.Scalar[int64](ctx, s.q, sql, args...)
	return int(n), err
}

// Get implements Storage
func (s *pg) Get(ctx context.Context, id string) (domain.Shot, error) {
	return store.One(ctx, s.q, scanShot,
		"SELECT "+shotCols+" FROM shots s WHERE s.id = $1", id)
}

// Comments implements Storage; oldest first so pages are append-stable
func (s *pg) Comments(ctx context.Context, shotID string, limit, offset int) ([]domain.Comment, error) {
	rows, err := store.Many(ctx, s.q,
		func(r repokit.Row) (domain.Comment, error) {
			var c domain.Comment
			err := r.Scan(&c.ID, &c.ShotID, &c.AuthorID, &c.Body, &c.CreatedAt)
			return c, err
		},
		`SELECT c.id, c.shot_id, c.author_id, c.body, c.created_at
		 FROM comments c
		 WHERE c.shot_id = $1
		 ORDER BY c.id
		 LIMIT $2 OFFSET $3`,
		shotID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.Comment{}
	}
	return rows, nil
}

// CountComments implements Storage
func (s *pg) CountComments(ctx context.Context, shotID string) (int, error) {
	n, err := store.Scalar[int64](ctx, s.q,
		"SELECT count(*) FROM comments c WHERE c.shot_id = $1", shotID)
	return int(n), err
}

// escapeLike neutralizes LIKE metacharacters in user text
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
