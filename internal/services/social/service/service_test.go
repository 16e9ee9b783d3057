package service

import (
	"context"
	"sync"
	"testing"

	"lightbox/internal/modkit/repokit"
	"lightbox/internal/platform/cache"
	perr "lightbox/internal/platform/errors"
	"lightbox/internal/platform/logger"
	"lightbox/internal/platform/store"
	"lightbox/internal/services/social/domain"
	"lightbox/internal/services/social/repo"

	"github.com/jackc/pgx/v5/pgconn"
)

// fakeStorage serves canned counts and tallies store round trips
type fakeStorage struct {
	mu        sync.Mutex
	followers map[string]int64
	following map[string]int64
	shots     map[string]int64
	reads     int
	err       error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		followers: make(map[string]int64),
		following: make(map[string]int64),
		shots:     make(map[string]int64),
	}
}

func (f *fakeStorage) CountFollowers(_ context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.err != nil {
		return 0, f.err
	}
	return f.followers[id], nil
}

func (f *fakeStorage) CountFollowing(_ context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return f.following[id], nil
}

func (f *fakeStorage) CountShots(_ context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return f.shots[id], nil
}

// fakeTx satisfies store.TxRunner; the fake storage never touches the Queryer
type fakeTx struct{}

func (fakeTx) Tx(ctx context.Context, fn func(q repokit.Queryer) error) error { return fn(fakeTx{}) }
func (fakeTx) Exec(context.Context, string, ...any) (store.CommandTag, error) {
	panic("unused")
}
func (fakeTx) Query(context.Context, string, ...any) (store.Rows, error) { panic("unused") }
func (fakeTx) QueryRow(context.Context, string, ...any) store.Row        { panic("unused") }

func newTestService(t *testing.T, fs *fakeStorage) (*Service, *cache.Cache) {
	t.Helper()
	kv := store.NewMemoryKV()
	t.Cleanup(func() { _ = kv.Close() })
	c := cache.New(kv, logger.Get().With().Logger(), cache.Options{})
	b := repokit.BindFunc[repo.Storage](func(repokit.Queryer) repo.Storage { return fs })
	return New(fakeTx{}, b, c), c
}

func TestProfile_CachesBySubject(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fs := newFakeStorage()
	fs.followers["u1"] = 3
	fs.following["u1"] = 5
	fs.shots["u1"] = 2
	svc, _ := newTestService(t, fs)

	p, err := svc.Profile(ctx, "u1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.UserID != "u1" || p.Followers != 3 || p.Following != 5 || p.Shots != 2 {
		t.Fatalf("profile = %+v", p)
	}

	if _, err := svc.Profile(ctx, "u1"); err != nil {
		t.Fatalf("profile: %v", err)
	}
	if fs.reads != 1 {
		t.Fatalf("store reads = %d, want 1", fs.reads)
	}
}

func TestProfile_UnknownUserIsZeros(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _ := newTestService(t, newFakeStorage())
	p, err := svc.Profile(ctx, "ghost")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.Followers != 0 || p.Following != 0 || p.Shots != 0 {
		t.Fatalf("profile = %+v, want zeros", p)
	}
}

func TestProfile_InvalidationRefreshes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fs := newFakeStorage()
	fs.followers["u1"] = 1
	svc, c := newTestService(t, fs)

	if _, err := svc.Profile(ctx, "u1"); err != nil {
		t.Fatalf("profile: %v", err)
	}

	fs.mu.Lock()
	fs.followers["u1"] = 2
	fs.mu.Unlock()
	c.InvalidateSubject(ctx, domain.CacheProfile, "u1")

	p, err := svc.Profile(ctx, "u1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.Followers != 2 {
		t.Fatalf("followers = %d, want 2 after invalidation", p.Followers)
	}
	if fs.reads != 2 {
		t.Fatalf("store reads = %d, want 2", fs.reads)
	}
}

func TestProfile_StoreErrorsAreMapped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fs := newFakeStorage()
	fs.err = &pgconn.PgError{Code: "57P03", Message: "the database system is shutting down"}
	svc, _ := newTestService(t, fs)

	_, err := svc.Profile(ctx, "u1")
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("err = %v, want unavailable", err)
	}
}
