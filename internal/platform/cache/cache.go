// Package cache implements the versioned read cache over the store KV seam.
//
// Query pages are stamped with the class version streams they were computed
// against. Each class carries two streams: the hard stream moves on
// existence/attribute changes and stales entries unconditionally; the soft
// stream moves on engagement counter adjustments and stales entries only once
// they age past the trust window. Entity entries are stamped against a
// per-subject stream so they can be invalidated precisely.
//
// Every backend failure degrades: reads become misses, writes and
// invalidations become logged no-ops. A failed stream bump quarantines the
// class locally until a later bump lands, so staleness is never extended
// silently.
package cache

import (
	"context"
	"sync"
	"time"

	"lightbox/internal/platform/logger"
	"lightbox/internal/platform/store"

	json "github.com/goccy/go-json"
)

// Class names a cache subject class, e.g. "shots" or "users"
type Class string

// Stamp captures the class version streams a page was computed against.
// Snapshot it before the backing store read: any bump that lands between
// the snapshot and the populate then fails verification on later reads
type Stamp struct {
	Hard int64
	Soft int64
	At   time.Time
}

// Options tunes TTLs and the soft trust window
type Options struct {
	PageTTL   time.Duration // default 60s
	EntityTTL time.Duration // default 10m
	Trust     time.Duration // 0 stales soft-bumped pages immediately
}

// Cache is the versioned layer; construct with New
type Cache struct {
	kv  store.KV
	log logger.Logger

	pageTTL   time.Duration
	entityTTL time.Duration
	trust     time.Duration

	mu         sync.Mutex
	quarantine map[Class]struct{}
}

// New builds a Cache over the given KV seam
func New(kv store.KV, log logger.Logger, opts Options) *Cache {
	if kv == nil {
		panic("cache: nil KV")
	}
	if opts.PageTTL <= 0 {
		opts.PageTTL = 60 * time.Second
	}
	if opts.EntityTTL <= 0 {
		opts.EntityTTL = 10 * time.Minute
	}
	if opts.Trust < 0 {
		opts.Trust = 0
	}
	return &Cache{
		kv:         kv,
		log:        log,
		pageTTL:    opts.PageTTL,
		entityTTL:  opts.EntityTTL,
		trust:      opts.Trust,
		quarantine: make(map[Class]struct{}),
	}
}

// pageEnvelope wraps a cached query page with its stamps
type pageEnvelope struct {
	Hard    int64           `json:"h"`
	Soft    int64           `json:"s"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"p"`
}

// subjectEnvelope wraps a cached entity with its subject stream version
type subjectEnvelope struct {
	Ver     int64           `json:"v"`
	Payload json.RawMessage `json:"p"`
}

// Snapshot reads the current class streams for stamping a page populate
func (c *Cache) Snapshot(ctx context.Context, class Class) Stamp {
	st := Stamp{At: time.Now()}
	vals, err := c.kv.MCounter(ctx, hardKey(class), softKey(class))
	if err != nil {
		// zero stamps fail verification as soon as the streams move, which
		// is the safe direction when the backend is unreadable
		c.degraded("snapshot", err)
		return st
	}
	st.Hard, st.Soft = vals[0], vals[1]
	return st
}

// GetPage returns a cached query page if it is still trustworthy
func (c *Cache) GetPage(ctx context.Context, class Class, key string) ([]byte, bool) {
	raw, ok, err := c.kv.Get(ctx, pageKey(class, key))
	if err != nil {
		c.degraded("get_page", err)
		return nil, false
	}
	if !ok {
		pageMisses.Inc()
		return nil, false
	}

	var env pageEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.degraded("decode_page", err)
		_ = c.kv.Del(ctx, pageKey(class, key))
		return nil, false
	}

	if c.quarantined(class) {
		pageStale.Inc()
		return nil, false
	}

	cur, err := c.kv.MCounter(ctx, hardKey(class), softKey(class))
	if err != nil {
		c.degraded("verify_page", err)
		return nil, false
	}
	if env.Hard != cur[0] {
		pageStale.Inc()
		_ = c.kv.Del(ctx, pageKey(class, key))
		return nil, false
	}
	if env.Soft != cur[1] && time.Since(env.At) > c.trust {
		pageStale.Inc()
		_ = c.kv.Del(ctx, pageKey(class, key))
		return nil, false
	}

	pageHits.Inc()
	return env.Payload, true
}

// PutPage stores a query page stamped with st. Single write, so a canceled
// or failed populate never leaves a partial entry behind
func (c *Cache) PutPage(ctx context.Context, class Class, key string, payload []byte, st Stamp) {
	raw, err := json.Marshal(pageEnvelope{Hard: st.Hard, Soft: st.Soft, At: st.At, Payload: payload})
	if err != nil {
		c.degraded("encode_page", err)
		return
	}
	if err := c.kv.Set(ctx, pageKey(class, key), raw, c.pageTTL); err != nil {
		c.degraded("put_page", err)
	}
}

// SubjectStamp reads the current subject stream for stamping an entity populate
func (c *Cache) SubjectStamp(ctx context.Context, class Class, id string) int64 {
	v, err := c.kv.Counter(ctx, subjectVerKey(class, id))
	if err != nil {
		c.degraded("subject_stamp", err)
		return -1 // never matches a real stream value
	}
	return v
}

// GetSubject returns a cached entity if its subject stream has not moved
func (c *Cache) GetSubject(ctx context.Context, class Class, id string) ([]byte, bool) {
	raw, ok, err := c.kv.Get(ctx, subjectKey(class, id))
	if err != nil {
		c.degraded("get_subject", err)
		return nil, false
	}
	if !ok {
		entityMisses.Inc()
		return nil, false
	}

	var env subjectEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.degraded("decode_subject", err)
		_ = c.kv.Del(ctx, subjectKey(class, id))
		return nil, false
	}

	cur, err := c.kv.Counter(ctx, subjectVerKey(class, id))
	if err != nil {
		c.degraded("verify_subject", err)
		return nil, false
	}
	if env.Ver != cur {
		entityStale.Inc()
		_ = c.kv.Del(ctx, subjectKey(class, id))
		return nil, false
	}

	entityHits.Inc()
	return env.Payload, true
}

// PutSubject stores an entity stamped with the subject stream value ver
func (c *Cache) PutSubject(ctx context.Context, class Class, id string, payload []byte, ver int64) {
	if ver < 0 {
		return // stamp was taken degraded; nothing trustworthy to store
	}
	raw, err := json.Marshal(subjectEnvelope{Ver: ver, Payload: payload})
	if err != nil {
		c.degraded("encode_subject", err)
		return
	}
	if err := c.kv.Set(ctx, subjectKey(class, id), raw, c.entityTTL); err != nil {
		c.degraded("put_subject", err)
	}
}

// InvalidateSubject precisely invalidates one entity. The stream bump, not
// the delete, is what closes the populate/invalidate race: a repopulation
// stamped before the bump can no longer verify
func (c *Cache) InvalidateSubject(ctx context.Context, class Class, id string) {
	if _, err := c.kv.Incr(ctx, subjectVerKey(class, id)); err != nil {
		c.poison(class)
		c.degraded("bump_subject", err)
	}
	if err := c.kv.Del(ctx, subjectKey(class, id)); err != nil {
		c.degraded("del_subject", err)
	}
}

// Invalidate removes page entries by their descriptor keys
func (c *Cache) Invalidate(ctx context.Context, class Class, keys ...string) {
	if len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = pageKey(class, k)
	}
	if err := c.kv.Del(ctx, full...); err != nil {
		c.degraded("invalidate", err)
	}
}

// BumpHard advances the class hard stream; existence and attribute
// mutations go here and stale every page of the class unconditionally
func (c *Cache) BumpHard(ctx context.Context, class Class) {
	if _, err := c.kv.Incr(ctx, hardKey(class)); err != nil {
		c.poison(class)
		c.degraded("bump_hard", err)
		return
	}
	c.unpoison(class)
}

// BumpSoft advances the class soft stream; engagement counter adjustments
// go here and stale pages only past the trust window
func (c *Cache) BumpSoft(ctx context.Context, class Class) {
	if _, err := c.kv.Incr(ctx, softKey(class)); err != nil {
		c.poison(class)
		c.degraded("bump_soft", err)
		return
	}
	c.unpoison(class)
}

func (c *Cache) poison(class Class) {
	c.mu.Lock()
	c.quarantine[class] = struct{}{}
	c.mu.Unlock()
}

func (c *Cache) unpoison(class Class) {
	c.mu.Lock()
	delete(c.quarantine, class)
	c.mu.Unlock()
}

func (c *Cache) quarantined(class Class) bool {
	c.mu.Lock()
	_, ok := c.quarantine[class]
	c.mu.Unlock()
	return ok
}

func (c *Cache) degraded(op string, err error) {
	degradedTotal.WithLabelValues(op).Inc()
	c.log.Debug().Err(err).Str("op", op).Msg("cache degraded")
}
