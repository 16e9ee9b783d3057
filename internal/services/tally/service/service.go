// Package service implements the counter reconciliation worker.
//
// Stored likes/saves/comments counters are derived state: the reaction and
// comment rows are the source of truth. The dispatcher adjusts counters in
// the same transaction as the row write, so drift should never happen; this
// worker is the backstop that proves it and repairs it when it does
package service

import (
	"context"
	"time"

	"lightbox/internal/modkit/repokit"
	"lightbox/internal/platform/cache"
	perr "lightbox/internal/platform/errors"
	"lightbox/internal/platform/logger"
	shots "lightbox/internal/services/shots/domain"
	"lightbox/internal/services/tally/repo"
)

// Config tunes the worker
type Config struct {
	// Interval is the pause between full sweeps; defaults to 10m
	Interval time.Duration
	// BatchSize is the keyset walk page; defaults to 500
	BatchSize int
}

// Svc implements domain.WorkerPort
type Svc struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[repo.Storage]
	Cache  *cache.Cache
	cfg    Config
}

// New constructs a tally worker
func New(db repokit.TxRunner, b repokit.Binder[repo.Storage], c *cache.Cache, cfg Config) *Svc {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	return &Svc{DB: db, Binder: b, Cache: c, cfg: cfg}
}

// Run sweeps the keyspace on a fixed interval until the context ends
func (s *Svc) Run(ctx context.Context) error {
	log := logger.Named("tally-worker")
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				log.Error().Err(err).Msg("tally sweep failed")
				continue
			}
			if n > 0 {
				log.Warn().Int("repaired", n).Msg("counter drift repaired")
			}
		}
	}
}

// Sweep walks every shot once in batches and repairs drifted counters.
// Repaired shots get their entity entries invalidated and the feed class
// hard-bumped: cached values were wrong, not merely stale
func (s *Svc) Sweep(ctx context.Context) (int, error) {
	log := logger.C(ctx)
	repaired := 0
	after := ""

	for {
		var ids []string
		err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
			var err error
			ids, err = s.Binder.Bind(q).ListShotIDs(ctx, after, s.cfg.BatchSize)
			return err
		})
		if err != nil {
			return repaired, perr.FromPostgres(err, "tally walk failed")
		}
		if len(ids) == 0 {
			return repaired, nil
		}

		var fixes []repo.Repair
		err = s.DB.Tx(ctx, func(q repokit.Queryer) error {
			var err error
			fixes, err = s.Binder.Bind(q).RepairCounters(ctx, ids)
			return err
		})
		if err != nil {
			return repaired, perr.FromPostgres(err, "tally repair failed")
		}

		if len(fixes) > 0 {
			s.Cache.BumpHard(ctx, shots.CacheFeed)
			for _, f := range fixes {
				s.Cache.InvalidateSubject(ctx, shots.CacheShot, f.ShotID)
				log.Warn().
					Str("shot_id", f.ShotID).
					Int64("likes", f.Likes).
					Int64("saves", f.Saves).
					Int64("comments", f.Comments).
					Msg("counter drift")
			}
			repaired += len(fixes)
		}

		after = ids[len(ids)-1]
		if len(ids) < s.cfg.BatchSize {
			return repaired, nil
		}
	}
}
