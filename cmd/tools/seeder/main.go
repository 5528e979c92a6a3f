package main

import (
	"context"
	"flag"
	"time"

	"github.com/noah-isme/backend-voucher/internal/app"
	"github.com/noah-isme/backend-voucher/internal/config"
	"github.com/noah-isme/backend-voucher/internal/obs"
	"github.com/noah-isme/backend-voucher/internal/voucher"
)

type seed struct {
	variant voucher.Variant
	details voucher.Details
}

var seeds = []seed{
	{voucher.CartWise, voucher.CartWiseDetails{Threshold: 100, Discount: 10}},
	{voucher.CartWise, voucher.CartWiseDetails{Threshold: 500, Discount: 15}},
	{voucher.ProductWise, voucher.ProductWiseDetails{ProductID: 1, Discount: 20}},
	{voucher.ProductWise, voucher.ProductWiseDetails{ProductID: 2, Discount: 50}},
	{voucher.BuyXGetY, voucher.BuyXGetYDetails{
		BuyProducts:     []voucher.BuyRequirement{{ProductID: 1, Quantity: 3}, {ProductID: 2, Quantity: 3}},
		GetProducts:     []voucher.GetProduct{{ProductID: 3}},
		RepetitionLimit: 2,
	}},
}

func main() {
	withExpired := flag.Bool("with-expired", false, "also store an active voucher that expired yesterday")
	flag.Parse()

	cfg := config.MustLoad()
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "seeder").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deps, err := app.Build(ctx, cfg, logger, app.Options{ApplicationName: "voucher-seeder", RequireDatabase: true})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}
	defer func() { _ = deps.Close() }()

	for _, s := range seeds {
		v, err := deps.Service.Create(ctx, s.variant, s.details)
		if err != nil {
			logger.Fatal().Err(err).Str("type", string(s.variant)).Msg("seed voucher")
		}
		logger.Info().Str("voucher_id", v.ID).Str("type", string(v.Variant)).Msg("seeded voucher")
	}

	if *withExpired {
		today := voucher.SystemClock{Location: cfg.SweepLocation}.Today()
		v, err := deps.Store.Save(ctx, voucher.Voucher{
			Variant:        voucher.CartWise,
			Details:        voucher.CartWiseDetails{Threshold: 0, Discount: 5},
			Active:         true,
			CreationDate:   today.AddMonths(-2).AddDays(-1),
			ExpirationDate: today.AddDays(-1),
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("seed expired voucher")
		}
		logger.Info().Str("voucher_id", v.ID).Msg("seeded expired voucher")
	}

	logger.Info().Int("count", len(seeds)).Msg("seeding completed")
}
