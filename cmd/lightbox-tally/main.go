package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"lightbox/internal/modkit"
	"lightbox/internal/modkit/module"
	"lightbox/internal/platform/cache"
	"lightbox/internal/platform/config"
	"lightbox/internal/platform/logger"
	"lightbox/internal/platform/store"

	tallymod "lightbox/internal/services/tally/module"
)

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

func main() {
	root := config.New()
	dbCfg := root.Prefix("SERVICE_PGSQL_")
	rdCfg := root.Prefix("SERVICE_REDIS_")
	cacheCfg := root.Prefix("CORE_CACHE_")

	l := logger.Get()

	// The repair loop must bump the same cache streams the API reads, so it
	// shares the redis seam; the in-process fallback only works single-node
	rdEnabled := rdCfg.MayBool("ENABLED", false)
	rdAddr := ""
	if rdEnabled {
		rdAddr = rdCfg.MustString("ADDR")
	}

	st, err := store.Open(context.Background(), store.Config{
		AppName: "lightbox-tally",
		PG: store.PGConfig{
			Enabled:     true,
			URL:         dbCfg.MustString("DBURL"),
			MaxConns:    int32(dbCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: dbCfg.MayInt("SLOW_MS", 500),
			LogSQL:      dbCfg.MayBool("LOG_SQL", false),
		},
		RDS: store.RedisConfig{
			Enabled:  rdEnabled,
			Addr:     rdAddr,
			Password: rdCfg.MayString("PASSWORD", ""),
			DB:       rdCfg.MayInt("DB", 0),
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	var (
		fInterval = flag.Int("interval_sec", 600, "seconds between reconciliation sweeps")
		fBatch    = flag.Int("batch", 500, "shot ids walked per batch")
		fOnce     = flag.Bool("once", false, "run one sweep and exit")
	)
	flag.Parse()

	c := cache.New(st.KV, *l, cache.Options{
		PageTTL:   cacheCfg.MayDuration("PAGE_TTL", 60*time.Second),
		EntityTTL: cacheCfg.MayDuration("ENTITY_TTL", 10*time.Minute),
		Trust:     cacheCfg.MayDuration("TRUST", 3*time.Second),
	})

	deps := modkit.Deps{
		Cfg:   root,
		PG:    st.PG,
		KV:    st.KV,
		Cache: c,
		Log:   *l,
	}

	// Export as env so the module can also read via FromConfig
	mustSetEnv("TALLY_INTERVAL_SEC", fmt.Sprintf("%d", *fInterval))
	mustSetEnv("TALLY_BATCH_SIZE", fmt.Sprintf("%d", *fBatch))

	mod := tallymod.New(deps, tallymod.Options{
		IntervalSec: *fInterval,
		BatchSize:   *fBatch,
	})
	module.Register(mod.Name(), mod.Ports())

	ports := module.MustPortsOf[tallymod.Ports](mod)

	if *fOnce {
		n, err := ports.Worker.Sweep(context.Background())
		if err != nil {
			l.Fatal().Err(err).Msg("tally sweep failed")
		}
		l.Info().Int("repaired", n).Msg("tally sweep complete")
		return
	}

	if err := ports.Worker.Run(context.Background()); err != nil {
		l.Fatal().Err(err).Msg("tally worker failed")
	}
}
