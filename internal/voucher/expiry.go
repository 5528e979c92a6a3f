package voucher

import (
	"context"
	"errors"
	"fmt"
)

// ShouldDeactivate reports whether the daily sweep must deactivate v: it is
// still active and its expiration date lies strictly before today.
func ShouldDeactivate(v Voucher, today Date) bool {
	return v.Active && v.ExpirationDate.Before(today)
}

// Saver persists a single voucher.
type Saver interface {
	Save(ctx context.Context, v Voucher) (Voucher, error)
}

// SweepResult lists the vouchers deactivated by one sweep.
type SweepResult struct {
	Updated []Voucher
}

// IDs returns the ids of the deactivated vouchers.
func (r SweepResult) IDs() []string {
	ids := make([]string, 0, len(r.Updated))
	for _, v := range r.Updated {
		ids = append(ids, v.ID)
	}
	return ids
}

// Sweep deactivates every voucher in all that expired before today, saving
// each one individually. Vouchers that are already inactive are skipped, so
// repeated runs on the same day write nothing. A failed save does not stop
// the remaining vouchers from being processed.
func Sweep(ctx context.Context, today Date, all []Voucher, s Saver) (SweepResult, error) {
	var (
		result SweepResult
		errs   error
	)
	for _, v := range all {
		if !ShouldDeactivate(v, today) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, errors.Join(errs, err)
		}
		v.Active = false
		saved, err := s.Save(ctx, v)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("deactivate voucher %s: %w", v.ID, err))
			continue
		}
		result.Updated = append(result.Updated, saved)
	}
	return result, errs
}
