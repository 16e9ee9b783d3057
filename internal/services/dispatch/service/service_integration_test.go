//go:build integration_pg
// +build integration_pg

package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"lightbox/internal/platform/cache"
	"lightbox/internal/platform/logger"
	"lightbox/internal/platform/store"
	"lightbox/internal/services/dispatch/domain"
	"lightbox/internal/services/dispatch/repo"
)

// startPostgres launches a disposable Postgres and returns DSN + stop func
func startPostgres(t *testing.T) (dsn string, stop func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "postgres",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections"),
		).WithDeadline(2 * time.Minute),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		cancel()
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get mapped port: %v", err)
	}

	dsn = fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, mapped.Port())
	stop = func() {
		_ = c.Terminate(context.Background())
		cancel()
	}
	return dsn, stop
}

// integrationSchema is the engine's relational shape; the unique arbiters the
// toggles rely on are the reaction and follow primary keys
const integrationSchema = `
	CREATE TABLE shots (
		id         text PRIMARY KEY,
		author_id  text NOT NULL,
		title      text NOT NULL,
		tags       text[] NOT NULL DEFAULT '{}',
		color      text,
		likes      bigint NOT NULL DEFAULT 0,
		saves      bigint NOT NULL DEFAULT 0,
		comments   bigint NOT NULL DEFAULT 0,
		views      bigint NOT NULL DEFAULT 0,
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL
	);
	CREATE TABLE reactions (
		kind       text NOT NULL,
		shot_id    text NOT NULL,
		actor_id   text NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (kind, shot_id, actor_id)
	);
	CREATE TABLE comments (
		id         text PRIMARY KEY,
		shot_id    text NOT NULL,
		author_id  text NOT NULL,
		body       text NOT NULL,
		created_at timestamptz NOT NULL
	);
	CREATE TABLE follows (
		follower_id text NOT NULL,
		followee_id text NOT NULL,
		created_at  timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (follower_id, followee_id)
	);
`

// newIntegrationService opens the store against dsn, applies the schema, and
// wires a real dispatcher on it (memory KV cache, no fan-out, no sink)
func newIntegrationService(t *testing.T, ctx context.Context, dsn string) (*Service, *store.Store) {
	t.Helper()

	st, err := store.Open(ctx, store.Config{
		AppName: "lightbox-dispatch-integration",
		PG:      store.PGConfig{Enabled: true, URL: dsn, MaxConns: 8},
	}, store.WithLogger(logger.Get().With().Logger()))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	if _, err := st.PG.Exec(ctx, integrationSchema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	c := cache.New(st.KV, logger.Get().With().Logger(), cache.Options{})
	svc := New(st.PG, repo.NewPG(), c, nil, nil, Config{})
	return svc, st
}

func countReactions(t *testing.T, ctx context.Context, st *store.Store, shotID, kind string) int64 {
	t.Helper()
	var n int64
	if err := st.PG.QueryRow(ctx,
		`SELECT count(*) FROM reactions WHERE shot_id = $1 AND kind = $2`,
		shotID, kind,
	).Scan(&n); err != nil {
		t.Fatalf("count reactions: %v", err)
	}
	return n
}

func likesCounter(t *testing.T, ctx context.Context, st *store.Store, shotID string) int64 {
	t.Helper()
	rb := repo.NewPG().Bind(st.PG)
	n, err := rb.GetCounter(ctx, shotID, repo.CounterLikes)
	if err != nil {
		t.Fatalf("get likes counter: %v", err)
	}
	return n
}

func TestIntegration_ToggleReactionRoundTrip(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	svc, st := newIntegrationService(t, ctx, dsn)

	res, err := svc.Apply(ctx, domain.CreateShot{AuthorID: "u1", Title: "rooftop"})
	if err != nil {
		t.Fatalf("create shot: %v", err)
	}
	id := res.Shot.ID

	on, err := svc.Apply(ctx, domain.ToggleReaction{Kind: domain.ReactionLike, ShotID: id, ActorID: "a1"})
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if !on.Toggle.On || !on.Toggle.Changed || on.Toggle.Count != 1 {
		t.Fatalf("like state = %+v", on.Toggle)
	}

	off, err := svc.Apply(ctx, domain.ToggleReaction{Kind: domain.ReactionLike, ShotID: id, ActorID: "a1"})
	if err != nil {
		t.Fatalf("unlike: %v", err)
	}
	if off.Toggle.On || !off.Toggle.Changed || off.Toggle.Count != 0 {
		t.Fatalf("unlike state = %+v", off.Toggle)
	}

	// saves ride a separate counter on the same row
	sv, err := svc.Apply(ctx, domain.ToggleReaction{Kind: domain.ReactionSave, ShotID: id, ActorID: "a1"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !sv.Toggle.On || sv.Toggle.Count != 1 {
		t.Fatalf("save state = %+v", sv.Toggle)
	}

	if n := countReactions(t, ctx, st, id, "like"); n != 0 {
		t.Fatalf("like rows = %d, want 0", n)
	}
	if n := countReactions(t, ctx, st, id, "save"); n != 1 {
		t.Fatalf("save rows = %d, want 1", n)
	}
	if n := likesCounter(t, ctx, st, id); n != 0 {
		t.Fatalf("likes counter = %d, want 0", n)
	}
}

func TestIntegration_ConcurrentActorTogglesMatchRows(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	svc, st := newIntegrationService(t, ctx, dsn)

	res, err := svc.Apply(ctx, domain.CreateShot{AuthorID: "u1", Title: "contended"})
	if err != nil {
		t.Fatalf("create shot: %v", err)
	}
	id := res.Shot.ID

	const actors = 8
	const togglesEach = 3

	var wg sync.WaitGroup
	for a := 0; a < actors; a++ {
		actor := fmt.Sprintf("actor-%02d", a)
		for i := 0; i < togglesEach; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := svc.Apply(ctx, domain.ToggleReaction{
					Kind: domain.ReactionLike, ShotID: id, ActorID: actor,
				}); err != nil {
					t.Errorf("toggle by %s: %v", actor, err)
				}
			}()
		}
	}
	wg.Wait()

	// Whatever the interleaving, the unique index left at most one row per
	// actor and the co-located counter moved only with real row changes
	rows := countReactions(t, ctx, st, id, "like")
	if rows < 0 || rows > actors {
		t.Fatalf("like rows = %d, want 0..%d", rows, actors)
	}
	if n := likesCounter(t, ctx, st, id); n != rows {
		t.Fatalf("likes counter = %d, rows = %d; counter drifted", n, rows)
	}
}

func TestIntegration_ConcurrentSameActorToggleIsSingleRow(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	svc, st := newIntegrationService(t, ctx, dsn)

	res, err := svc.Apply(ctx, domain.CreateShot{AuthorID: "u1", Title: "hammered"})
	if err != nil {
		t.Fatalf("create shot: %v", err)
	}
	id := res.Shot.ID

	// The same actor toggling from many goroutines hits the concurrent-winner
	// path: losing inserts report "already on" as success, never a conflict
	const toggles = 12
	var wg sync.WaitGroup
	for i := 0; i < toggles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Apply(ctx, domain.ToggleReaction{
				Kind: domain.ReactionLike, ShotID: id, ActorID: "a1",
			}); err != nil {
				t.Errorf("toggle: %v", err)
			}
		}()
	}
	wg.Wait()

	rows := countReactions(t, ctx, st, id, "like")
	if rows != 0 && rows != 1 {
		t.Fatalf("like rows = %d, want 0 or 1", rows)
	}
	if n := likesCounter(t, ctx, st, id); n != rows {
		t.Fatalf("likes counter = %d, rows = %d; counter drifted", n, rows)
	}
}
