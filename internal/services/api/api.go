// Package api provides the HTTP API for the application
package api

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lightbox/internal/platform/cache"
	"lightbox/internal/platform/config"
	"lightbox/internal/platform/logger"
	phttp "lightbox/internal/platform/net/http"
	"lightbox/internal/platform/net/middleware"
	"lightbox/internal/platform/store"

	"lightbox/internal/modkit"
	"lightbox/internal/modkit/httpkit"
	"lightbox/internal/modkit/module"
	"lightbox/internal/modkit/swaggerkit"

	metamod "lightbox/internal/services/api/meta/module"
	dispatchdom "lightbox/internal/services/dispatch/domain"
	dispatchmod "lightbox/internal/services/dispatch/module"
	shotsmod "lightbox/internal/services/shots/module"
	socialmod "lightbox/internal/services/social/module"
	streammod "lightbox/internal/services/stream/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	Cache          *cache.Cache
	EnableSwagger  bool
	EnableProfiler bool
	EnableMetrics  bool
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	// shared deps for modules
	deps := modkit.Deps{
		Log:   *opt.Logger,
		Cfg:   opt.Config,
		PG:    opt.Store.PG,
		CH:    opt.Store.CH,
		KV:    opt.Store.KV,
		Cache: opt.Cache,
	}

	// Construct the stream module first and extract its Publisher port so the
	// dispatcher can fan committed mutations out to live subscribers
	streamMod := streammod.New(deps)
	publisher := module.MustPortsOf[streammod.Ports](streamMod).Publisher

	// The dispatcher is headless; every write route below delegates to it
	dispatchMod := dispatchmod.New(
		deps,
		dispatchmod.Options{},
		modkit.WithPorts(dispatchdom.Ports{
			Fanout: publisher,
		}),
	)
	dispatch := module.MustPortsOf[dispatchmod.Ports](dispatchMod).Dispatch

	// Bearer auth guards the write surface. Without a secret the writes mount
	// unauthenticated, which is only acceptable for local development
	var auth middleware.AuthPort
	if secret := opt.Config.MayString("AUTH_SECRET", ""); secret != "" {
		auth = httpkit.NewPortFunc(bearerParser([]byte(secret)))
	} else {
		opt.Logger.Warn().Msg("CORE_API_AUTH_SECRET unset; write routes are unauthenticated")
	}

	mods := []module.Module{
		metamod.New(deps),
		streamMod,   // owns /stream and the live fan-out registry
		dispatchMod, // headless; registered so its port is discoverable
		shotsmod.New(deps, shotsmod.WithWires(dispatch, auth)),
		socialmod.New(deps, socialmod.WithWires(dispatch, auth)),
	}

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		// Swagger + profiler + prometheus
		swaggerkit.Mount(r, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)
		if opt.EnableMetrics {
			r.Handle("/metrics", promhttp.Handler())
		}

		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())

			// mount module routes under its Prefix()
			m.MountRoutes(api)
		}
	})
}
