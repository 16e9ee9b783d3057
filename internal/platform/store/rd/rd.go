// Package rd provides a redis client for the KV seam
package rd

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Config configures the redis client
type Config struct {
	Addr     string
	Password string
	DB       int
}

// RD is a redis client wrapper
type RD struct {
	Client *redis.Client
}

// Open creates a new RD client and verifies connectivity with a ping
func Open(ctx context.Context, cfg Config) (*RD, error) {
	c := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return &RD{Client: c}, nil
}

// Close closes the underlying client
func (r *RD) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
