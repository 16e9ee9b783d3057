// @title         Lightbox API
// @version       0.1.0
// @description   Feed queries, engagement writes, and live fan-out

package main

import (
	"context"
	"time"

	"lightbox/internal/platform/cache"
	"lightbox/internal/platform/config"
	"lightbox/internal/platform/logger"
	phttp "lightbox/internal/platform/net/http"
	"lightbox/internal/platform/store"

	"lightbox/internal/services/api"
)

func main() {
	// service-scoped config for HTTP etc (CORE_API_*)
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")

	pgCfg := root.Prefix("SERVICE_PGSQL_")      // pgCfg lives under SERVICE_PGSQL_*
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_") // chCfg lives under SERVICE_CLICKHOUSE_*
	rdCfg := root.Prefix("SERVICE_REDIS_")      // rdCfg lives under SERVICE_REDIS_*
	cacheCfg := root.Prefix("CORE_CACHE_")

	// bring up logging early
	l := logger.Get()

	// analytics store and redis are optional; postgres is not
	chEnabled := chCfg.MayBool("ENABLED", false)
	chURL := ""
	if chEnabled {
		chURL = chCfg.MustString("DBURL")
	}
	rdEnabled := rdCfg.MayBool("ENABLED", false)
	rdAddr := ""
	if rdEnabled {
		rdAddr = rdCfg.MustString("ADDR")
	}

	st, err := store.Open(
		context.Background(),
		store.Config{
			AppName: "lightbox-api",
			PG: store.PGConfig{
				Enabled:     true,
				URL:         pgCfg.MustString("DBURL"),
				MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 8)),
				SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
				LogSQL:      pgCfg.MayBool("LOG_SQL", false),
			},
			CH: store.CHConfig{
				Enabled: chEnabled,
				URL:     chURL,
			},
			RDS: store.RedisConfig{
				Enabled:  rdEnabled,
				Addr:     rdAddr,
				Password: rdCfg.MayString("PASSWORD", ""),
				DB:       rdCfg.MayInt("DB", 0),
			},
		},
		store.WithLogger(*logger.Get()),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// versioned read cache over the KV seam; the trust window absorbs
	// counter-only churn on hot pages
	c := cache.New(st.KV, *l, cache.Options{
		PageTTL:   cacheCfg.MayDuration("PAGE_TTL", 60*time.Second),
		EntityTTL: cacheCfg.MayDuration("ENTITY_TTL", 10*time.Minute),
		Trust:     cacheCfg.MayDuration("TRUST", 3*time.Second),
	})

	// http server (reads CORE_API_API_PORT)
	srv := phttp.NewServer(apiCfg)

	// mount our API
	api.Mount(
		srv.Router(),
		api.Options{
			Config:         apiCfg,
			Store:          st,
			Logger:         l,
			Cache:          c,
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", true),
			EnableMetrics:  apiCfg.MayBool("METRICS", true),
		},
	)

	// run
	if err := srv.Run(context.Background()); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
