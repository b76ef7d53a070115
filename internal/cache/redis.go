package cache

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores pages in Redis with SETEX.  Keys embed a generation number
// kept at <prefix>:gen; Invalidate bumps it so every older page becomes
// unreachable and expires on its own TTL.
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis returns a Redis-backed cache.
func NewRedis(rdb *redis.Client, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "cache"
	}
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *Redis) genKey() string { return r.prefix + ":events:gen" }

// Epoch returns the current generation; a missing counter is generation 0.
func (r *Redis) Epoch(ctx context.Context) (int64, error) {
	gen, err := r.rdb.Get(ctx, r.genKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}
	return gen, nil
}

func (r *Redis) keyAt(gen int64, key string) string {
	sum := sha1.Sum([]byte(key))
	return fmt.Sprintf("%s:%d:%x", r.prefix, gen, sum[:])
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	gen, err := r.Epoch(ctx)
	if err != nil {
		return nil, false, err
	}
	b, err := r.rdb.Get(ctx, r.keyAt(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Set writes under the generation the caller read before loading val.  If
// an Invalidate happened in between, the page lands in a generation no
// reader asks for and only waits out its TTL.
func (r *Redis) Set(ctx context.Context, epoch int64, key string, val []byte) error {
	return r.rdb.SetEx(ctx, r.keyAt(epoch, key), val, r.ttl).Err()
}

func (r *Redis) Invalidate(ctx context.Context) error {
	return r.rdb.Incr(ctx, r.genKey()).Err()
}
