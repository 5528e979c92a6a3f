package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/noah-isme/backend-voucher/internal/cache"
	"github.com/noah-isme/backend-voucher/internal/config"
	"github.com/noah-isme/backend-voucher/internal/events"
	"github.com/noah-isme/backend-voucher/internal/health"
	"github.com/noah-isme/backend-voucher/internal/obs"
	"github.com/noah-isme/backend-voucher/internal/resilience"
	"github.com/noah-isme/backend-voucher/internal/store"
	"github.com/noah-isme/backend-voucher/internal/voucher"
)

// Dependencies bundles the infrastructure shared by the API, worker and tools.
type Dependencies struct {
	Config  *config.Config
	Logger  zerolog.Logger
	DB      *pgxpool.Pool
	Redis   *redis.Client
	Store   voucher.Store
	Bus     *events.Bus
	Service *voucher.Service

	kafkaWriter *kafka.Writer
}

// Options tweak Build for a particular binary.
type Options struct {
	ApplicationName string
	RequireRedis    bool
	RequireDatabase bool
	InstrumentRedis bool
}

// Build connects every configured backend and assembles the voucher service.
// An empty DATABASE_URL selects the in-memory store unless RequireDatabase
// is set; an empty REDIS_URL disables caching.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*Dependencies, error) {
	if opts.RequireDatabase {
		if err := cfg.RequireDatabase(); err != nil {
			return nil, err
		}
	}
	d := &Dependencies{Config: cfg, Logger: logger}

	var backing voucher.Store
	if cfg.DatabaseURL == "" {
		logger.Warn().Msg("DATABASE_URL not set, using in-memory voucher store")
		backing = store.NewMemory()
	} else {
		if cfg.RunMigrations {
			if err := store.Migrate(cfg.DatabaseURL); err != nil {
				return nil, err
			}
		}
		pool, err := NewPool(ctx, cfg, opts.ApplicationName)
		if err != nil {
			return nil, err
		}
		d.DB = pool
		pg := store.NewPostgres(pool)
		pg.Logger = &d.Logger
		backing = pg
	}

	if opts.RequireRedis {
		if err := cfg.RequireRedis(); err != nil {
			d.Close()
			return nil, err
		}
	}
	if cfg.RedisURL != "" {
		client, err := NewRedis(ctx, cfg.RedisURL, opts.InstrumentRedis, logger)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.Redis = client
		backing = store.NewCached(backing, cache.NewJSON(client, cfg.VoucherCacheTTL), &logger)
	}
	d.Store = backing

	d.Bus = &events.Bus{Publishers: []events.Publisher{events.LogPublisher{Logger: &d.Logger}}}
	if len(cfg.KafkaBrokers) > 0 {
		d.kafkaWriter = events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaVoucherTopic)
		d.Bus.Publishers = append(d.Bus.Publishers, events.GuardedPublisher{
			Next:     events.KafkaPublisher{Writer: d.kafkaWriter},
			Breaker:  resilience.NewBreaker(5, 0.5, 30*time.Second).WithTarget("kafka").WithLogger(logger),
			Attempts: 3,
			Backoff:  100 * time.Millisecond,
		})
	}

	d.Service = &voucher.Service{
		Store:          d.Store,
		Clock:          voucher.SystemClock{Location: cfg.SweepLocation},
		Events:         d.Bus,
		Logger:         &d.Logger,
		ValidityMonths: cfg.VoucherValidityMonths,
	}
	return d, nil
}

// NewPool opens a traced pgx pool sized from cfg.
func NewPool(ctx context.Context, cfg *config.Config, applicationName string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if applicationName != "" {
		if poolConfig.ConnConfig.RuntimeParams == nil {
			poolConfig.ConnConfig.RuntimeParams = map[string]string{}
		}
		poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
	if cfg.DBMaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.DBMaxConns)
	}
	if cfg.DBMinConns > 0 {
		poolConfig.MinConns = int32(cfg.DBMinConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewRedis opens and pings a Redis client with OpenTelemetry tracing.
func NewRedis(ctx context.Context, url string, withMetrics bool, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if withMetrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Probes returns the readiness probes of the configured backends.
func (d *Dependencies) Probes() map[string]health.Probe {
	probes := map[string]health.Probe{}
	if d.DB != nil {
		probes["db"] = d.DB.Ping
	}
	if d.Redis != nil {
		client := d.Redis
		probes["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}
	if len(probes) == 0 {
		probes["store"] = func(context.Context) error { return nil }
	}
	return probes
}

// Close releases every opened backend.
func (d *Dependencies) Close() error {
	if d == nil {
		return nil
	}
	var errs error
	if d.kafkaWriter != nil {
		errs = errors.Join(errs, d.kafkaWriter.Close())
	}
	if d.Redis != nil {
		errs = errors.Join(errs, d.Redis.Close())
	}
	if d.DB != nil {
		d.DB.Close()
	}
	return errs
}
