package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// pageHits counts query page entries served from cache.
	pageHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_page_hits_total",
		Help: "Query page cache hits",
	})

	// pageMisses counts query page lookups with no entry.
	pageMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_page_misses_total",
		Help: "Query page cache misses",
	})

	// pageStale counts query page entries rejected by version verification.
	pageStale = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_page_stale_total",
		Help: "Query page entries rejected as stale",
	})

	// entityHits counts entity entries served from cache.
	entityHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_entity_hits_total",
		Help: "Entity cache hits",
	})

	// entityMisses counts entity lookups with no entry.
	entityMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_entity_misses_total",
		Help: "Entity cache misses",
	})

	// entityStale counts entity entries rejected by subject stream verification.
	entityStale = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_entity_stale_total",
		Help: "Entity entries rejected as stale",
	})

	// degradedTotal counts backend failures absorbed as misses or no-ops.
	degradedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_degraded_total",
		Help: "Cache operations degraded by backend failures",
	}, []string{"op"})
)
