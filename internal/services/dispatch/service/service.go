// Package service implements the mutation dispatcher: one transaction per
// op, cache bumps and fan-out strictly after commit
package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"lightbox/internal/core/feedquery"
	"lightbox/internal/core/normalize"
	"lightbox/internal/modkit/repokit"
	"lightbox/internal/platform/cache"
	perr "lightbox/internal/platform/errors"
	"lightbox/internal/platform/logger"
	"lightbox/internal/services/dispatch/domain"
	"lightbox/internal/services/dispatch/repo"
	shots "lightbox/internal/services/shots/domain"
	social "lightbox/internal/services/social/domain"
)

const (
	maxTitleLen = 200
	maxBodyLen  = 1000
)

// Config for the dispatcher
type Config struct {
	// MaxAttempts bounds transaction attempts for transient store errors;
	// defaults to 3
	MaxAttempts int
	// RetryBase is the backoff unit between attempts; defaults to 25ms
	RetryBase time.Duration
	// SinkTimeout bounds the post-commit engagement append; defaults to 5s
	SinkTimeout time.Duration
}

// Service implements domain.DispatchPort
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[repo.Storage]
	Cache  *cache.Cache
	Fanout domain.FanoutPort     // optional; nil disables fan-out
	Sink   domain.EngagementSink // optional; nil disables the analytics append
	Cfg    Config
}

// New constructs a new dispatcher
func New(
	db repokit.TxRunner,
	b repokit.Binder[repo.Storage],
	c *cache.Cache,
	fan domain.FanoutPort,
	sink domain.EngagementSink,
	cfg Config,
) *Service {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 25 * time.Millisecond
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = 5 * time.Second
	}
	return &Service{DB: db, Binder: b, Cache: c, Fanout: fan, Sink: sink, Cfg: cfg}
}

// Apply implements domain.DispatchPort. The op runs in a single transaction;
// on commit the collected effects run in order: version bumps, subject
// invalidations, fan-out, then the analytics append. A cache or fan-out
// failure never rolls the mutation back
func (s *Service) Apply(ctx context.Context, op domain.Op) (domain.Result, error) {
	op, err := canonicalize(op)
	if err != nil {
		return domain.Result{}, err
	}

	var res domain.Result
	var eff effects
	err = s.withRetry(ctx, func(ctx context.Context) error {
		res, eff = domain.Result{}, effects{}
		return s.DB.Tx(ctx, func(q repokit.Queryer) error {
			st := s.Binder.Bind(q)
			var err error
			res, err = s.applyOp(ctx, st, &eff, op)
			return err
		})
	})
	if err != nil {
		if perr.Retryable(err) {
			return domain.Result{}, perr.Wrap(err, perr.ErrorCodeUnavailable, "store busy, retries exhausted")
		}
		if _, ok := perr.As(err); ok {
			return domain.Result{}, err
		}
		return domain.Result{}, perr.FromPostgres(err, "apply mutation failed")
	}

	s.applyEffects(ctx, eff)
	return res, nil
}

// withRetry re-runs fn while the error is a transient store condition.
// Coded errors (validation, not found, forbidden) return immediately
func (s *Service) withRetry(ctx context.Context, fn func(context.Context) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil || !perr.Retryable(err) || attempt >= s.Cfg.MaxAttempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.Cfg.RetryBase * time.Duration(attempt)):
		}
	}
}

func (s *Service) applyOp(ctx context.Context, st repo.Storage, eff *effects, op domain.Op) (domain.Result, error) {
	switch v := op.(type) {
	case domain.CreateShot:
		return s.createShot(ctx, st, eff, v)
	case domain.UpdateShotMeta:
		return s.updateShotMeta(ctx, st, eff, v)
	case domain.DeleteShot:
		return s.deleteShot(ctx, st, eff, v)
	case domain.ToggleReaction:
		return s.toggleReaction(ctx, st, eff, v)
	case domain.CreateComment:
		return s.createComment(ctx, st, eff, v)
	case domain.ToggleFollow:
		return s.toggleFollow(ctx, st, eff, v)
	case domain.RecordView:
		return s.recordView(ctx, st, eff, v)
	}
	return domain.Result{}, perr.InvalidArgf("unsupported op %T", op)
}

func (s *Service) createShot(ctx context.Context, st repo.Storage, eff *effects, v domain.CreateShot) (domain.Result, error) {
	now := time.Now().UTC()
	sh := shots.Shot{
		ID:        ulid.Make().String(),
		AuthorID:  v.AuthorID,
		Title:     v.Title,
		Tags:      v.Tags,
		Color:     v.Color,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := st.InsertShot(ctx, sh); err != nil {
		return domain.Result{}, err
	}

	eff.hardBump(shots.CacheFeed)
	eff.subject(social.CacheProfile, sh.AuthorID)
	eff.push("user:"+sh.AuthorID, "shot.created", sh)
	return domain.Result{Shot: &sh}, nil
}

func (s *Service) updateShotMeta(ctx context.Context, st repo.Storage, eff *effects, v domain.UpdateShotMeta) (domain.Result, error) {
	cur, err := st.GetShot(ctx, v.ShotID)
	if err != nil {
		return domain.Result{}, shotErr(err, v.ShotID)
	}
	if cur.AuthorID != v.ActorID {
		return domain.Result{}, perr.Forbiddenf("only the author can edit shot %s", v.ShotID)
	}

	var tags []string
	if v.Tags != nil {
		tags = *v.Tags
	}
	sh, err := st.UpdateShotMeta(ctx, v.ShotID, v.Title, tags, v.Tags != nil, v.Color)
	if err != nil {
		return domain.Result{}, shotErr(err, v.ShotID)
	}

	eff.hardBump(shots.CacheFeed)
	eff.subject(shots.CacheShot, sh.ID)
	eff.push("shot:"+sh.ID, "shot.updated", sh)
	return domain.Result{Shot: &sh}, nil
}

func (s *Service) deleteShot(ctx context.Context, st repo.Storage, eff *effects, v domain.DeleteShot) (domain.Result, error) {
	cur, err := st.GetShot(ctx, v.ShotID)
	if err != nil {
		return domain.Result{}, shotErr(err, v.ShotID)
	}
	if cur.AuthorID != v.ActorID {
		return domain.Result{}, perr.Forbiddenf("only the author can delete shot %s", v.ShotID)
	}

	if _, err := st.DeleteShotComments(ctx, v.ShotID); err != nil {
		return domain.Result{}, err
	}
	if _, err := st.DeleteShotReactions(ctx, v.ShotID); err != nil {
		return domain.Result{}, err
	}
	if _, err := st.DeleteShot(ctx, v.ShotID); err != nil {
		return domain.Result{}, err
	}

	tomb := domain.ShotDeletedEvent{ID: cur.ID, AuthorID: cur.AuthorID}
	eff.hardBump(shots.CacheFeed)
	eff.subject(shots.CacheShot, cur.ID)
	eff.subject(shots.CacheComments, cur.ID)
	eff.subject(social.CacheProfile, cur.AuthorID)
	eff.push("shot:"+cur.ID, "shot.deleted", tomb)
	eff.push("user:"+cur.AuthorID, "shot.deleted", tomb)
	return domain.Result{Shot: &cur}, nil
}

// toggleReaction flips the (kind, shot, actor) row. Delete-first keeps the
// common unlike path to one statement; the unique index arbitrates racing
// inserts, and losing that race reports the requested state as already held
func (s *Service) toggleReaction(ctx context.Context, st repo.Storage, eff *effects, v domain.ToggleReaction) (domain.Result, error) {
	ctr := repo.CounterLikes
	if v.Kind == domain.ReactionSave {
		ctr = repo.CounterSaves
	}

	if _, err := st.GetCounter(ctx, v.ShotID, ctr); err != nil {
		return domain.Result{}, shotErr(err, v.ShotID)
	}

	removed, err := st.DeleteReaction(ctx, string(v.Kind), v.ShotID, v.ActorID)
	if err != nil {
		return domain.Result{}, err
	}
	if removed {
		n, err := st.AdjustCounter(ctx, v.ShotID, ctr, -1)
		if err != nil {
			return domain.Result{}, shotErr(err, v.ShotID)
		}
		s.reactionEffects(eff, v, false, n)
		return domain.Result{Toggle: &domain.ToggleState{On: false, Changed: true, Count: n}}, nil
	}

	inserted, err := st.InsertReaction(ctx, string(v.Kind), v.ShotID, v.ActorID)
	if err != nil {
		return domain.Result{}, err
	}
	if !inserted {
		// concurrent winner already holds the on state
		n, err := st.GetCounter(ctx, v.ShotID, ctr)
		if err != nil {
			return domain.Result{}, shotErr(err, v.ShotID)
		}
		return domain.Result{Toggle: &domain.ToggleState{On: true, Changed: false, Count: n}}, nil
	}
	n, err := st.AdjustCounter(ctx, v.ShotID, ctr, 1)
	if err != nil {
		return domain.Result{}, shotErr(err, v.ShotID)
	}
	s.reactionEffects(eff, v, true, n)
	return domain.Result{Toggle: &domain.ToggleState{On: true, Changed: true, Count: n}}, nil
}

func (s *Service) reactionEffects(eff *effects, v domain.ToggleReaction, on bool, count int64) {
	eff.softBump(shots.CacheFeed)
	eff.subject(shots.CacheShot, v.ShotID)
	eff.push("shot:"+v.ShotID, "reaction", domain.ReactionEvent{
		Kind: v.Kind, On: on, Count: count, ActorID: v.ActorID,
	})
	kind := string(v.Kind)
	if !on {
		kind = "un" + kind
	}
	eff.engage(kind, v.ShotID, v.ActorID)
}

func (s *Service) createComment(ctx context.Context, st repo.Storage, eff *effects, v domain.CreateComment) (domain.Result, error) {
	if _, err := st.GetCounter(ctx, v.ShotID, repo.CounterComments); err != nil {
		return domain.Result{}, shotErr(err, v.ShotID)
	}

	c := shots.Comment{
		ID:        ulid.Make().String(),
		ShotID:    v.ShotID,
		AuthorID:  v.AuthorID,
		Body:      v.Body,
		CreatedAt: time.Now().UTC(),
	}
	if err := st.InsertComment(ctx, c); err != nil {
		return domain.Result{}, err
	}
	n, err := st.AdjustCounter(ctx, v.ShotID, repo.CounterComments, 1)
	if err != nil {
		return domain.Result{}, shotErr(err, v.ShotID)
	}

	eff.softBump(shots.CacheFeed)
	eff.subject(shots.CacheComments, v.ShotID)
	eff.subject(shots.CacheShot, v.ShotID)
	eff.push("shot:"+v.ShotID, "comment", domain.CommentEvent{Comment: c, Count: n})
	eff.engage("comment", v.ShotID, v.AuthorID)
	return domain.Result{Comment: &c}, nil
}

func (s *Service) toggleFollow(ctx context.Context, st repo.Storage, eff *effects, v domain.ToggleFollow) (domain.Result, error) {
	removed, err := st.DeleteFollow(ctx, v.FollowerID, v.FolloweeID)
	if err != nil {
		return domain.Result{}, err
	}
	on, changed := false, true
	if !removed {
		inserted, err := st.InsertFollow(ctx, v.FollowerID, v.FolloweeID)
		if err != nil {
			return domain.Result{}, err
		}
		on, changed = true, inserted
	}
	n, err := st.CountFollowers(ctx, v.FolloweeID)
	if err != nil {
		return domain.Result{}, err
	}

	if changed {
		eff.subject(social.CacheProfile, v.FollowerID)
		eff.subject(social.CacheProfile, v.FolloweeID)
		eff.push("user:"+v.FolloweeID, "follow", domain.FollowEvent{
			FollowerID: v.FollowerID, On: on, Followers: n,
		})
	}
	return domain.Result{Toggle: &domain.ToggleState{On: on, Changed: changed, Count: n}}, nil
}

func (s *Service) recordView(ctx context.Context, st repo.Storage, eff *effects, v domain.RecordView) (domain.Result, error) {
	n, err := st.AdjustCounter(ctx, v.ShotID, repo.CounterViews, 1)
	if err != nil {
		return domain.Result{}, shotErr(err, v.ShotID)
	}
	eff.softBump(shots.CacheFeed)
	eff.subject(shots.CacheShot, v.ShotID)
	eff.engage("view", v.ShotID, v.ActorID)
	return domain.Result{Views: n}, nil
}

// applyEffects runs post-commit work. Order matters: hard bumps precede
// subject invalidations so readers racing the delete re-stamp against the
// already-advanced class version
func (s *Service) applyEffects(ctx context.Context, eff effects) {
	for _, cl := range eff.hard {
		s.Cache.BumpHard(ctx, cl)
	}
	for _, cl := range eff.soft {
		s.Cache.BumpSoft(ctx, cl)
	}
	for _, sub := range eff.subjects {
		s.Cache.InvalidateSubject(ctx, sub.class, sub.id)
	}
	if s.Fanout != nil {
		for _, ev := range eff.events {
			s.Fanout.Publish(ev.subject, ev.kind, ev.payload)
		}
	}
	if s.Sink != nil && len(eff.sink) > 0 {
		evs := eff.sink
		go func() {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.Cfg.SinkTimeout)
			defer cancel()
			if err := s.Sink.Append(ctx, evs); err != nil {
				logger.C(ctx).Warn().Err(err).Int("events", len(evs)).Msg("dispatch: engagement append failed")
			}
		}()
	}
}

// effects accumulates cache and fan-out work decided inside the transaction
// and applied only after commit
type effects struct {
	hard     []cache.Class
	soft     []cache.Class
	subjects []subjectRef
	events   []fanEvent
	sink     []domain.EngagementEvent
}

type subjectRef struct {
	class cache.Class
	id    string
}

type fanEvent struct {
	subject string
	kind    string
	payload any
}

func (e *effects) hardBump(c cache.Class)           { e.hard = append(e.hard, c) }
func (e *effects) softBump(c cache.Class)           { e.soft = append(e.soft, c) }
func (e *effects) subject(c cache.Class, id string) { e.subjects = append(e.subjects, subjectRef{c, id}) }
func (e *effects) push(subject, kind string, p any) {
	e.events = append(e.events, fanEvent{subject: subject, kind: kind, payload: p})
}

func (e *effects) engage(kind, shotID, actorID string) {
	e.sink = append(e.sink, domain.EngagementEvent{
		EventID: uuid.NewString(),
		Kind:    kind, ShotID: shotID, ActorID: actorID, At: time.Now().UTC(),
	})
}

// shotErr maps the repo's not-found sentinel to a coded 404 for the shot
func shotErr(err error, id string) error {
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return perr.NotFoundf("shot %s not found", id)
	}
	return err
}

// canonicalize validates an op and folds its fields into storage form.
// All failures are coded Validation; nothing here touches the store
func canonicalize(op domain.Op) (domain.Op, error) {
	switch v := op.(type) {
	case domain.CreateShot:
		if v.AuthorID == "" {
			return nil, perr.Newf(perr.ErrorCodeValidation, "author_id required")
		}
		title, err := canonTitle(v.Title)
		if err != nil {
			return nil, err
		}
		v.Title = title
		if v.Tags, err = canonTags(v.Tags); err != nil {
			return nil, err
		}
		if v.Color, err = canonColor(v.Color); err != nil {
			return nil, err
		}
		return v, nil

	case domain.UpdateShotMeta:
		if v.ShotID == "" || v.ActorID == "" {
			return nil, perr.Newf(perr.ErrorCodeValidation, "shot_id and actor_id required")
		}
		if v.Title == nil && v.Tags == nil && v.Color == nil {
			return nil, perr.Newf(perr.ErrorCodeValidation, "nothing to update")
		}
		if v.Title != nil {
			title, err := canonTitle(*v.Title)
			if err != nil {
				return nil, err
			}
			v.Title = &title
		}
		if v.Tags != nil {
			tags, err := canonTags(*v.Tags)
			if err != nil {
				return nil, err
			}
			v.Tags = &tags
		}
		if v.Color != nil {
			color, err := canonColor(*v.Color)
			if err != nil {
				return nil, err
			}
			v.Color = &color
		}
		return v, nil

	case domain.DeleteShot:
		if v.ShotID == "" || v.ActorID == "" {
			return nil, perr.Newf(perr.ErrorCodeValidation, "shot_id and actor_id required")
		}
		return v, nil

	case domain.ToggleReaction:
		if !v.Kind.Valid() {
			return nil, perr.Newf(perr.ErrorCodeValidation, "reaction kind must be like or save")
		}
		if v.ShotID == "" || v.ActorID == "" {
			return nil, perr.Newf(perr.ErrorCodeValidation, "shot_id and actor_id required")
		}
		return v, nil

	case domain.CreateComment:
		if v.ShotID == "" || v.AuthorID == "" {
			return nil, perr.Newf(perr.ErrorCodeValidation, "shot_id and author_id required")
		}
		// control chars and invalid UTF-8 never reach the store
		v.Body = strings.TrimSpace(normalize.Sanitize(v.Body))
		if v.Body == "" {
			return nil, perr.Newf(perr.ErrorCodeValidation, "body required")
		}
		if utf8.RuneCountInString(v.Body) > maxBodyLen {
			return nil, perr.Newf(perr.ErrorCodeValidation, "body exceeds %d characters", maxBodyLen)
		}
		return v, nil

	case domain.ToggleFollow:
		if v.FollowerID == "" || v.FolloweeID == "" {
			return nil, perr.Newf(perr.ErrorCodeValidation, "follower_id and followee_id required")
		}
		if v.FollowerID == v.FolloweeID {
			return nil, perr.Newf(perr.ErrorCodeValidation, "cannot follow yourself")
		}
		return v, nil

	case domain.RecordView:
		if v.ShotID == "" || v.ActorID == "" {
			return nil, perr.Newf(perr.ErrorCodeValidation, "shot_id and actor_id required")
		}
		return v, nil
	}
	return op, nil
}

func canonTitle(t string) (string, error) {
	t = strings.Join(strings.Fields(normalize.Sanitize(t)), " ")
	if t == "" {
		return "", perr.Newf(perr.ErrorCodeValidation, "title required")
	}
	if utf8.RuneCountInString(t) > maxTitleLen {
		return "", perr.Newf(perr.ErrorCodeValidation, "title exceeds %d characters", maxTitleLen)
	}
	return t, nil
}

func canonTags(tags []string) ([]string, error) {
	out, err := feedquery.CanonicalTags(tags)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeValidation, "invalid tags")
	}
	return out, nil
}

func canonColor(c string) (string, error) {
	out, err := feedquery.CanonicalColor(c)
	if err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeValidation, "invalid color")
	}
	return out, nil
}
