package store_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/noah-isme/backend-voucher/internal/store"
	"github.com/noah-isme/backend-voucher/internal/voucher"
)

func setupPostgres(t *testing.T) *store.Postgres {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("vouchers"),
		postgres.WithUsername("voucher"),
		postgres.WithPassword("voucher"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(dsn))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return store.NewPostgres(pool)
}

func TestPostgresStoreLifecycle(t *testing.T) {
	pg := setupPostgres(t)
	ctx := context.Background()

	first, err := pg.Save(ctx, sampleVoucher())
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	bxgy := voucher.Voucher{
		Variant: voucher.BuyXGetY,
		Details: voucher.BuyXGetYDetails{
			BuyProducts:     []voucher.BuyRequirement{{ProductID: 1, Quantity: 2}},
			GetProducts:     []voucher.GetProduct{{ProductID: 9}},
			RepetitionLimit: 2,
		},
		Active:         true,
		CreationDate:   voucher.NewDate(2024, 2, 1),
		ExpirationDate: voucher.NewDate(2024, 4, 1),
	}
	second, err := pg.Save(ctx, bxgy)
	require.NoError(t, err)

	got, err := pg.FindByID(ctx, second.ID)
	require.NoError(t, err)
	require.Equal(t, second, got)
	require.Equal(t, bxgy.Details, got.Details)

	first.Active = false
	updated, err := pg.Save(ctx, first)
	require.NoError(t, err)
	require.False(t, updated.Active)

	all, err := pg.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, first.ID, all[0].ID)

	_, err = pg.FindByID(ctx, "not-a-uuid")
	require.ErrorIs(t, err, voucher.ErrNotFound)

	require.NoError(t, pg.DeleteByID(ctx, first.ID))
	require.NoError(t, pg.DeleteByID(ctx, first.ID))
	_, err = pg.FindByID(ctx, first.ID)
	require.ErrorIs(t, err, voucher.ErrNotFound)
	require.NoError(t, pg.Ping(ctx))
}

func TestPostgresFindAllSkipsUndecodableRows(t *testing.T) {
	pg := setupPostgres(t)
	ctx := context.Background()
	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	pg.Logger = &logger

	good, err := pg.Save(ctx, sampleVoucher())
	require.NoError(t, err)

	badID := uuid.NewString()
	_, err = pg.Pool.Exec(ctx, `INSERT INTO vouchers (id, type, details, active, creation_date, expiration_date)
VALUES ($1::uuid, 'cart-wise', '{}', TRUE, '2024-01-01', '2024-03-01')`, badID)
	require.NoError(t, err)

	emptyBuy, err := pg.Save(ctx, voucher.Voucher{
		Variant:        voucher.BuyXGetY,
		Details:        voucher.BuyXGetYDetails{GetProducts: []voucher.GetProduct{{ProductID: 4}}, RepetitionLimit: 1},
		Active:         true,
		CreationDate:   voucher.NewDate(2024, 1, 1),
		ExpirationDate: voucher.NewDate(2024, 3, 1),
	})
	require.NoError(t, err)

	all, err := pg.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, good.ID, all[0].ID)
	require.Equal(t, emptyBuy.ID, all[1].ID)
	require.Contains(t, logs.String(), badID)

	_, err = pg.FindByID(ctx, badID)
	require.ErrorIs(t, err, voucher.ErrMalformedDetails)
}
