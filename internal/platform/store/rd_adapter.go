package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"lightbox/internal/platform/store/rd"

	"github.com/redis/go-redis/v9"
)

// newRDAdapter is called by openers.go to wrap an existing *rd.RD
// and return the store.KV seam
func newRDAdapter(r *rd.RD) KV {
	return &redisKV{inner: r}
}

// redisKV adapts *rd.RD to the store.KV interface
type redisKV struct {
	inner *rd.RD
}

var _ KV = (*redisKV)(nil)

func (k *redisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := k.inner.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (k *redisKV) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return k.inner.Client.Set(ctx, key, val, ttl).Err()
}

func (k *redisKV) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return k.inner.Client.Del(ctx, keys...).Err()
}

func (k *redisKV) Incr(ctx context.Context, key string) (int64, error) {
	return k.inner.Client.Incr(ctx, key).Result()
}

func (k *redisKV) Counter(ctx context.Context, key string) (int64, error) {
	n, err := k.inner.Client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (k *redisKV) MCounter(ctx context.Context, keys ...string) ([]int64, error) {
	out := make([]int64, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	vals, err := k.inner.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue // nil for missing keys
		}
		n, perr := strconv.ParseInt(s, 10, 64)
		if perr != nil {
			return nil, perr
		}
		out[i] = n
	}
	return out, nil
}

// Ping verifies connectivity with redis
func (k *redisKV) Ping(ctx context.Context) error {
	if k == nil || k.inner == nil || k.inner.Client == nil {
		return errors.New("store: nil redis adapter")
	}
	return k.inner.Client.Ping(ctx).Err()
}

func (k *redisKV) Close() error { return k.inner.Close() }
