package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func fastFailPGURL() string {
	// user/pass/db don't matter; 127.0.0.1:1 is a closed port on all systems
	return "postgres://u:p@127.0.0.1:1/db?sslmode=disable"
}

func TestOpenPG_ParentAlreadyCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Config{PG: PGConfig{URL: fastFailPGURL(), MaxConns: 1}}

	s := &Store{}

	start := time.Now()
	txr, err := openPG(ctx, cfg, s)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatalf("expected error due to canceled context, got nil (txr=%T)", txr)
	}
	if txr != nil {
		t.Fatalf("expected nil TxRunner on canceled context, got %T", txr)
	}
	// should return quickly (no DNS, immediate ECONNREFUSED)
	if elapsed > time.Second {
		t.Fatalf("expected quick failure, got %v", elapsed)
	}
}

func TestOpenRD_PingsAndWraps(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)

	kv, err := openRD(context.Background(), Config{RDS: RedisConfig{Enabled: true, Addr: mr.Addr()}}, nil)
	if err != nil {
		t.Fatalf("openRD error: %v", err)
	}
	defer kv.Close()

	if _, ok := kv.(*redisKV); !ok {
		t.Fatalf("openRD returned %T, want *redisKV", kv)
	}
}

func TestOpenRD_Unreachable_Errors(t *testing.T) {
	t.Parallel()

	_, err := openRD(context.Background(), Config{RDS: RedisConfig{Enabled: true, Addr: "127.0.0.1:1"}}, nil)
	if err == nil {
		t.Fatalf("expected openRD error for unreachable redis")
	}
}
