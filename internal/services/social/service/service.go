// Package service implements the social profile read-model
package service

import (
	"context"

	json "github.com/goccy/go-json"

	"lightbox/internal/modkit/repokit"
	"lightbox/internal/platform/cache"
	perr "lightbox/internal/platform/errors"
	"lightbox/internal/services/social/domain"
	"lightbox/internal/services/social/repo"
)

// Service implements domain.ProfilePort
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[repo.Storage]
	Cache  *cache.Cache
}

// New constructs a social service
func New(db repokit.TxRunner, b repokit.Binder[repo.Storage], c *cache.Cache) *Service {
	return &Service{DB: db, Binder: b, Cache: c}
}

// Profile implements domain.ProfilePort. Profiles are derived counts over
// follows and shots; an id nobody follows resolves to zeros rather than 404
// because ids are opaque bearer subjects with no backing user table.
// Entries are stamped against the profile's own version stream, so follow
// toggles and shot lifecycle mutations are visible immediately
func (s *Service) Profile(ctx context.Context, userID string) (domain.Profile, error) {
	if raw, ok := s.Cache.GetSubject(ctx, domain.CacheProfile, userID); ok {
		var p domain.Profile
		if err := json.Unmarshal(raw, &p); err == nil {
			return p, nil
		}
		s.Cache.InvalidateSubject(ctx, domain.CacheProfile, userID)
	}

	ver := s.Cache.SubjectStamp(ctx, domain.CacheProfile, userID)

	p := domain.Profile{UserID: userID}
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		st := s.Binder.Bind(q)
		var err error
		if p.Followers, err = st.CountFollowers(ctx, userID); err != nil {
			return err
		}
		if p.Following, err = st.CountFollowing(ctx, userID); err != nil {
			return err
		}
		p.Shots, err = st.CountShots(ctx, userID)
		return err
	})
	if err != nil {
		return domain.Profile{}, perr.FromPostgres(err, "profile read failed")
	}

	if buf, err := json.Marshal(p); err == nil {
		s.Cache.PutSubject(ctx, domain.CacheProfile, userID, buf, ver)
	}
	return p, nil
}
