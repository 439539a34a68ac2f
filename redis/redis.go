// Package redis shares rate limit counters between instances through Redis.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"moviegate/ratelimit"
)

var _ ratelimit.Store = (*QuotaStore)(nil)

type Options struct {
	Addr     string
	Password string
	DB       int
}

func NewClient(ctx context.Context, opts Options) (*goredis.Client, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// QuotaStore keeps one counter per client and fixed window. The window start
// is part of the key, so a fresh window always begins from zero and the old
// key simply expires.
type QuotaStore struct {
	c   goredis.Cmdable
	now func() time.Time
}

func NewQuotaStore(c goredis.Cmdable) *QuotaStore {
	return &QuotaStore{c: c, now: time.Now}
}

func (s *QuotaStore) Take(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Decision, error) {
	now := s.now()
	start := ratelimit.WindowStart(now, window)
	windowKey := key + ":" + strconv.FormatInt(start.Unix(), 10)

	pipe := s.c.TxPipeline()
	counter := pipe.Incr(ctx, windowKey)
	pipe.ExpireNX(ctx, windowKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return ratelimit.Decision{}, err
	}

	return ratelimit.Decide(counter.Val(), limit, start, window, now), nil
}
