package app_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-voucher/internal/app"
	"github.com/noah-isme/backend-voucher/internal/config"
	"github.com/noah-isme/backend-voucher/internal/events"
	"github.com/noah-isme/backend-voucher/internal/store"
	"github.com/noah-isme/backend-voucher/internal/voucher"
)

func TestBuildInMemoryWithoutRedis(t *testing.T) {
	cfg := &config.Config{VoucherValidityMonths: 2}
	deps, err := app.Build(context.Background(), cfg, zerolog.Nop(), app.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })

	require.IsType(t, &store.Memory{}, deps.Store)
	require.Contains(t, deps.Probes(), "store")

	v, err := deps.Service.Create(context.Background(), voucher.CartWise, voucher.CartWiseDetails{Threshold: 10, Discount: 5})
	require.NoError(t, err)
	require.True(t, v.Active)
}

func TestBuildWrapsStoreWithRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{VoucherValidityMonths: 2, RedisURL: "redis://" + mr.Addr()}
	deps, err := app.Build(context.Background(), cfg, zerolog.Nop(), app.Options{RequireRedis: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })

	require.IsType(t, &store.Cached{}, deps.Store)
	probes := deps.Probes()
	require.Contains(t, probes, "redis")
	require.NoError(t, probes["redis"](context.Background()))
}

func TestBuildRequiresRedisWhenAsked(t *testing.T) {
	_, err := app.Build(context.Background(), &config.Config{VoucherValidityMonths: 2}, zerolog.Nop(), app.Options{RequireRedis: true})
	require.Error(t, err)
}

func TestBuildRequiresDatabaseWhenAsked(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{VoucherValidityMonths: 2, RedisURL: "redis://" + mr.Addr()}
	deps, err := app.Build(context.Background(), cfg, zerolog.Nop(), app.Options{RequireRedis: true, RequireDatabase: true})
	require.Error(t, err)
	require.Nil(t, deps)
	require.Contains(t, err.Error(), "DATABASE_URL")
}

func TestBuildGuardsKafkaPublisher(t *testing.T) {
	cfg := &config.Config{VoucherValidityMonths: 2, KafkaBrokers: []string{"127.0.0.1:9"}, KafkaVoucherTopic: "voucher-events"}
	deps, err := app.Build(context.Background(), cfg, zerolog.Nop(), app.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })

	require.Len(t, deps.Bus.Publishers, 2)
	require.IsType(t, events.LogPublisher{}, deps.Bus.Publishers[0])
	guarded, ok := deps.Bus.Publishers[1].(events.GuardedPublisher)
	require.True(t, ok)
	require.IsType(t, events.KafkaPublisher{}, guarded.Next)
	require.NotNil(t, guarded.Breaker)
}
