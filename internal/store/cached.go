package store

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-voucher/internal/cache"
	"github.com/noah-isme/backend-voucher/internal/voucher"
)

// Cached is a Redis read-through layer in front of another store. Only single
// vouchers are cached; listings always come from the backing store so
// eligibility never sees a list that predates a write. Writes go to the
// backing store first and then invalidate the voucher key. Redis failures
// degrade to direct reads.
type Cached struct {
	Next   voucher.Store
	Cache  *cache.JSON
	Logger *zerolog.Logger
}

// NewCached wraps next with cache c.
func NewCached(next voucher.Store, c *cache.JSON, logger *zerolog.Logger) *Cached {
	return &Cached{Next: next, Cache: c, Logger: logger}
}

// FindByID implements voucher.Store.
func (c *Cached) FindByID(ctx context.Context, id string) (voucher.Voucher, error) {
	key := cache.KeyVoucher(id)
	var v voucher.Voucher
	if hit, err := c.Cache.Get(ctx, key, &v); err != nil {
		c.warn(err, "read voucher cache")
	} else if hit {
		return v, nil
	}
	v, err := c.Next.FindByID(ctx, id)
	if err != nil {
		return voucher.Voucher{}, err
	}
	if err := c.Cache.Set(ctx, key, v); err != nil {
		c.warn(err, "write voucher cache")
	}
	return v, nil
}

// FindAll implements voucher.Store by reading the backing store directly.
func (c *Cached) FindAll(ctx context.Context) ([]voucher.Voucher, error) {
	return c.Next.FindAll(ctx)
}

// Save implements voucher.Store.
func (c *Cached) Save(ctx context.Context, v voucher.Voucher) (voucher.Voucher, error) {
	saved, err := c.Next.Save(ctx, v)
	if err != nil {
		return voucher.Voucher{}, err
	}
	c.invalidate(ctx, saved.ID)
	return saved, nil
}

// DeleteByID implements voucher.Store.
func (c *Cached) DeleteByID(ctx context.Context, id string) error {
	if err := c.Next.DeleteByID(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

// Ping forwards to the backing store when it supports it.
func (c *Cached) Ping(ctx context.Context) error {
	if p, ok := c.Next.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (c *Cached) invalidate(ctx context.Context, id string) {
	if err := c.Cache.Delete(ctx, cache.KeyVoucher(id)); err != nil {
		c.warn(err, "invalidate voucher cache")
	}
}

func (c *Cached) warn(err error, msg string) {
	if c.Logger != nil {
		c.Logger.Warn().Err(err).Msg(msg)
	}
}
