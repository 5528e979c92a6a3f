package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-voucher/internal/lock"
	"github.com/noah-isme/backend-voucher/internal/voucher"
)

// TypeSweepExpired is the asynq task type of the daily expiration sweep.
const TypeSweepExpired = "voucher:sweep_expired"

// DefaultSweepCron runs the sweep at midnight.
const DefaultSweepCron = "0 0 * * *"

// Sweeper runs one expiration sweep. *voucher.Service satisfies it.
type Sweeper interface {
	SweepExpired(ctx context.Context) (voucher.SweepResult, error)
}

// NewSweepTask builds the sweep task. Duplicates enqueued within the same
// minute collapse into one.
func NewSweepTask() *asynq.Task {
	return asynq.NewTask(TypeSweepExpired, nil, asynq.MaxRetry(3), asynq.Unique(time.Minute))
}

// SweepHandler processes sweep tasks. When Locker is set only one worker per
// day key runs the sweep at a time; the others skip.
type SweepHandler struct {
	Sweeper Sweeper
	Clock   voucher.Clock
	Locker  *lock.Locker
	LockTTL time.Duration
	Logger  *zerolog.Logger
}

// ProcessTask implements asynq.Handler.
func (h *SweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if h == nil || h.Sweeper == nil {
		return fmt.Errorf("sweep handler not configured: %w", asynq.SkipRetry)
	}
	if h.Locker == nil || h.Locker.R == nil {
		return h.run(ctx)
	}
	key := SweepLockKey(h.today())
	err := h.Locker.TryWithLock(ctx, key, h.lockTTL(), h.run)
	if errors.Is(err, lock.ErrNotAcquired) {
		h.logger().Info().Str("lock", key).Msg("voucher sweep already running elsewhere")
		return nil
	}
	return err
}

func (h *SweepHandler) run(ctx context.Context) error {
	res, err := h.Sweeper.SweepExpired(ctx)
	if err != nil {
		return fmt.Errorf("sweep expired vouchers: %w", err)
	}
	h.logger().Debug().Strs("voucher_ids", res.IDs()).Msg("sweep task complete")
	return nil
}

// SweepLockKey is the Redis lock key guarding the sweep of day.
func SweepLockKey(day voucher.Date) string {
	return "voucher:sweep:" + day.String()
}

// Register attaches the sweep handler to mux.
func Register(mux *asynq.ServeMux, h *SweepHandler) {
	mux.Handle(TypeSweepExpired, h)
}

// RegisterSchedule adds the periodic sweep to scheduler.
func RegisterSchedule(scheduler *asynq.Scheduler, cronspec string) (string, error) {
	if cronspec == "" {
		cronspec = DefaultSweepCron
	}
	id, err := scheduler.Register(cronspec, NewSweepTask())
	if err != nil {
		return "", fmt.Errorf("register sweep schedule %q: %w", cronspec, err)
	}
	return id, nil
}

func (h *SweepHandler) today() voucher.Date {
	if h.Clock != nil {
		return h.Clock.Today()
	}
	return voucher.SystemClock{}.Today()
}

func (h *SweepHandler) lockTTL() time.Duration {
	if h.LockTTL > 0 {
		return h.LockTTL
	}
	return 10 * time.Minute
}

func (h *SweepHandler) logger() *zerolog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	nop := zerolog.Nop()
	return &nop
}
