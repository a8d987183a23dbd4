package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

type Options struct {
	Expiry     time.Duration
	Tries      int
	RetryDelay time.Duration
}

func DefaultOptions() Options {
	return Options{
		Expiry:     10 * time.Second,
		Tries:      3,
		RetryDelay: 200 * time.Millisecond,
	}
}

// Redis holds RedLock mutexes so withdrawals stay serialized across
// server instances.
type Redis struct {
	rs   *redsync.Redsync
	opts Options
}

func NewRedis(client redis.UniversalClient, opts Options) *Redis {
	return &Redis{
		rs:   redsync.New(goredis.NewPool(client)),
		opts: opts,
	}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	err = client.Ping(ctx).Err()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (r *Redis) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if key == "" {
		return ErrEmptyKey
	}

	mutex := r.rs.NewMutex("lock:"+key,
		redsync.WithExpiry(r.opts.Expiry),
		redsync.WithTries(r.opts.Tries),
		redsync.WithRetryDelay(r.opts.RetryDelay),
	)

	err := mutex.LockContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, err)
	}

	defer func() {
		ok, err := mutex.UnlockContext(context.WithoutCancel(ctx))
		if err != nil {
			slog.Warn("failed to release lock", "key", key, "error", err)
		} else if !ok {
			slog.Warn("lock expired before release", "key", key)
		}
	}()

	return fn(ctx)
}
