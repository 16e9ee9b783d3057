package store

import (
	"context"
	"testing"
	"time"

	"lightbox/internal/platform/store/rd"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedisKV(t *testing.T) KV {
	t.Helper()
	mr := miniredis.RunT(t)
	r, err := rd.Open(context.Background(), rd.Config{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("rd.Open: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return newRDAdapter(r)
}

// TestRedisKV_SetGetDel round trips through a live redis
func TestRedisKV_SetGetDel(t *testing.T) {
	t.Parallel()

	kv := newTestRedisKV(t)
	ctx := context.Background()

	if err := kv.Set(ctx, "a", []byte("one"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := kv.Get(ctx, "a")
	if err != nil || !ok || string(got) != "one" {
		t.Fatalf("Get = %q ok=%v err=%v", got, ok, err)
	}

	if err := kv.Del(ctx, "a"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, "a"); ok {
		t.Fatalf("Get found deleted key")
	}
}

// TestRedisKV_GetMiss maps redis.Nil to a clean miss
func TestRedisKV_GetMiss(t *testing.T) {
	t.Parallel()

	kv := newTestRedisKV(t)

	_, ok, err := kv.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get miss returned error: %v", err)
	}
	if ok {
		t.Fatalf("Get miss reported found")
	}
}

// TestRedisKV_IncrCounter exercises INCR and the zero default
func TestRedisKV_IncrCounter(t *testing.T) {
	t.Parallel()

	kv := newTestRedisKV(t)
	ctx := context.Background()

	n, err := kv.Incr(ctx, "v")
	if err != nil || n != 1 {
		t.Fatalf("Incr = %d err=%v", n, err)
	}
	n, err = kv.Incr(ctx, "v")
	if err != nil || n != 2 {
		t.Fatalf("Incr = %d err=%v", n, err)
	}

	got, err := kv.Counter(ctx, "v")
	if err != nil || got != 2 {
		t.Fatalf("Counter = %d err=%v", got, err)
	}
	got, err = kv.Counter(ctx, "absent")
	if err != nil || got != 0 {
		t.Fatalf("Counter absent = %d err=%v", got, err)
	}
}

// TestRedisKV_MCounter maps MGET results including missing keys
func TestRedisKV_MCounter(t *testing.T) {
	t.Parallel()

	kv := newTestRedisKV(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := kv.Incr(ctx, "h"); err != nil {
			t.Fatalf("Incr: %v", err)
		}
	}
	if _, err := kv.Incr(ctx, "s"); err != nil {
		t.Fatalf("Incr: %v", err)
	}

	vals, err := kv.MCounter(ctx, "h", "missing", "s")
	if err != nil {
		t.Fatalf("MCounter: %v", err)
	}
	if len(vals) != 3 || vals[0] != 4 || vals[1] != 0 || vals[2] != 1 {
		t.Fatalf("MCounter = %v", vals)
	}
}

// TestRedisKV_MCounter_Empty returns an empty slice without a round trip
func TestRedisKV_MCounter_Empty(t *testing.T) {
	t.Parallel()

	kv := newTestRedisKV(t)
	vals, err := kv.MCounter(context.Background())
	if err != nil || len(vals) != 0 {
		t.Fatalf("MCounter() = %v err=%v", vals, err)
	}
}

// TestRedisKV_TTL expires entries through redis TTL handling
func TestRedisKV_TTL(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	r, err := rd.Open(context.Background(), rd.Config{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("rd.Open: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	kv := newRDAdapter(r)
	ctx := context.Background()

	if err := kv.Set(ctx, "ttl", []byte("x"), 50*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	mr.FastForward(100 * time.Millisecond)
	if _, ok, _ := kv.Get(ctx, "ttl"); ok {
		t.Fatalf("Get found expired key")
	}
}

// TestRedisKV_Ping verifies the readiness probe
func TestRedisKV_Ping(t *testing.T) {
	t.Parallel()

	kv := newTestRedisKV(t)
	p, ok := any(kv).(Pinger)
	if !ok {
		t.Fatalf("redis KV does not expose Ping")
	}
	if err := p.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
