package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Result is the limit state of a key after counting one request.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter counts a request against key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Fixed is a fixed-window limiter backed by a ulule limiter store.
type Fixed struct {
	l *limiter.Limiter
}

// NewRedis builds a limiter sharing its counters through Redis. rate uses the
// "<limit>-<period>" format, e.g. "60-M".
func NewRedis(client *redis.Client, rate, prefix string) (*Fixed, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", rate, err)
	}
	store, err := limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: prefix})
	if err != nil {
		return nil, fmt.Errorf("init redis limiter store: %w", err)
	}
	return &Fixed{l: limiter.New(store, parsed)}, nil
}

// NewMemory builds a process-local limiter.
func NewMemory(rate, prefix string) (*Fixed, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", rate, err)
	}
	store := memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: prefix, CleanUpInterval: time.Minute})
	return &Fixed{l: limiter.New(store, parsed)}, nil
}

// Allow implements Limiter.
func (f *Fixed) Allow(ctx context.Context, key string) (Result, error) {
	lctx, err := f.l.Get(ctx, key)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Allowed:   !lctx.Reached,
		Limit:     int(lctx.Limit),
		Remaining: int(lctx.Remaining),
		Reset:     time.Unix(lctx.Reset, 0),
	}, nil
}
