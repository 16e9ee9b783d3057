// Package service implements the feed query service: compile, cache, store
package service

import (
	"context"

	json "github.com/goccy/go-json"

	"lightbox/internal/core/feedquery"
	"lightbox/internal/modkit/repokit"
	"lightbox/internal/platform/cache"
	perr "lightbox/internal/platform/errors"
	"lightbox/internal/services/shots/domain"
	"lightbox/internal/services/shots/repo"
)

// Config for the shots service
type Config struct {
	// CommentPageSize is the page size for cached comment pages; defaults to 20
	CommentPageSize int
	// MaxCommentPageSize caps explicit page_size requests; defaults to 100
	MaxCommentPageSize int
}

// Service implements domain.QueryPort
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[repo.Storage]
	Cache  *cache.Cache
	Cfg    Config
}

// New constructs a new shots service
func New(db repokit.TxRunner, b repokit.Binder[repo.Storage], c *cache.Cache, cfg Config) *Service {
	if cfg.CommentPageSize <= 0 {
		cfg.CommentPageSize = 20
	}
	if cfg.MaxCommentPageSize <= 0 {
		cfg.MaxCommentPageSize = 100
	}
	return &Service{DB: db, Binder: b, Cache: c, Cfg: cfg}
}

// List implements domain.QueryPort. The stamp is captured before the store
// read so a bump landing mid-populate invalidates the entry we are about to
// write
func (s *Service) List(ctx context.Context, in domain.QueryInput) (domain.FeedPage, error) {
	d, err := feedquery.Compile(feedquery.RawQuery{
		Text:     in.Text,
		Tags:     in.Tags,
		Color:    in.Color,
		Author:   in.Author,
		Since:    in.Since,
		Until:    in.Until,
		Sort:     in.Sort,
		Page:     in.Page,
		PageSize: in.PageSize,
	})
	if err != nil {
		return domain.FeedPage{}, perr.Wrap(err, perr.ErrorCodeValidation, "invalid feed query")
	}
	key := d.Key()

	if raw, ok := s.Cache.GetPage(ctx, domain.CacheFeed, key); ok {
		var page domain.FeedPage
		if err := json.Unmarshal(raw, &page); err == nil {
			return page, nil
		}
		// undecodable entry: treat as a miss and repopulate
		s.Cache.Invalidate(ctx, domain.CacheFeed, key)
	}

	st := s.Cache.Snapshot(ctx, domain.CacheFeed)

	var items []domain.Shot
	var total int
	err = s.DB.Tx(ctx, func(q repokit.Queryer) error {
		r := s.Binder.Bind(q)
		var err error
		if items, err = r.Find(ctx, d); err != nil {
			return err
		}
		total, err = r.Count(ctx, d)
		return err
	})
	if err != nil {
		return domain.FeedPage{}, perr.FromPostgres(err, "feed query failed")
	}

	page := domain.FeedPage{Items: items, Total: total, Page: d.Page, PageSize: d.PageSize}
	if buf, err := json.Marshal(page); err == nil {
		s.Cache.PutPage(ctx, domain.CacheFeed, key, buf, st)
	}
	return page, nil
}

// Get implements domain.QueryPort; entity entries are stamped against the
// shot's own version stream, so a read is never older than the last mutation
func (s *Service) Get(ctx context.Context, id string) (domain.Shot, error) {
	if raw, ok := s.Cache.GetSubject(ctx, domain.CacheShot, id); ok {
		var sh domain.Shot
		if err := json.Unmarshal(raw, &sh); err == nil {
			return sh, nil
		}
		s.Cache.InvalidateSubject(ctx, domain.CacheShot, id)
	}

	ver := s.Cache.SubjectStamp(ctx, domain.CacheShot, id)

	var sh domain.Shot
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		sh, err = s.Binder.Bind(q).Get(ctx, id)
		return err
	})
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return domain.Shot{}, perr.NotFoundf("shot %s not found", id)
		}
		return domain.Shot{}, perr.FromPostgres(err, "get shot failed")
	}

	if buf, err := json.Marshal(sh); err == nil {
		s.Cache.PutSubject(ctx, domain.CacheShot, id, buf, ver)
	}
	return sh, nil
}

// Comments implements domain.QueryPort. Only the default first page is
// cached (per shot, precisely invalidated on new comments); deeper pages go
// to the store
func (s *Service) Comments(ctx context.Context, shotID string, in domain.CommentsInput) (domain.CommentPage, error) {
	page := in.Page
	if page <= 0 {
		page = 1
	}
	size := in.PageSize
	if size <= 0 {
		size = s.Cfg.CommentPageSize
	}
	if size > s.Cfg.MaxCommentPageSize {
		return domain.CommentPage{}, perr.InvalidArgf("page_size must be at most %d", s.Cfg.MaxCommentPageSize)
	}

	cacheable := page == 1 && size == s.Cfg.CommentPageSize
	if cacheable {
		if raw, ok := s.Cache.GetSubject(ctx, domain.CacheComments, shotID); ok {
			var cp domain.CommentPage
			if err := json.Unmarshal(raw, &cp); err == nil {
				return cp, nil
			}
			s.Cache.InvalidateSubject(ctx, domain.CacheComments, shotID)
		}
	}

	ver := s.Cache.SubjectStamp(ctx, domain.CacheComments, shotID)

	var items []domain.Comment
	var total int
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		r := s.Binder.Bind(q)
		if _, err := r.Get(ctx, shotID); err != nil {
			return err
		}
		var err error
		if items, err = r.Comments(ctx, shotID, size, (page-1)*size); err != nil {
			return err
		}
		total, err = r.CountComments(ctx, shotID)
		return err
	})
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return domain.CommentPage{}, perr.NotFoundf("shot %s not found", shotID)
		}
		return domain.CommentPage{}, perr.FromPostgres(err, "list comments failed")
	}

	cp := domain.CommentPage{Items: items, Total: total, Page: page, PageSize: size}
	if cacheable {
		if buf, err := json.Marshal(cp); err == nil {
			s.Cache.PutSubject(ctx, domain.CacheComments, shotID, buf, ver)
		}
	}
	return cp, nil
}
