package jobs_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-voucher/internal/jobs"
	"github.com/noah-isme/backend-voucher/internal/lock"
	"github.com/noah-isme/backend-voucher/internal/voucher"
)

type fakeSweeper struct {
	calls int
	err   error
	hook  func()
}

func (f *fakeSweeper) SweepExpired(context.Context) (voucher.SweepResult, error) {
	f.calls++
	if f.hook != nil {
		f.hook()
	}
	return voucher.SweepResult{Updated: []voucher.Voucher{{ID: "a"}}}, f.err
}

func TestSweepHandlerRunsUnderDayLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	day := voucher.NewDate(2024, 5, 1)
	key := jobs.SweepLockKey(day)
	require.Equal(t, "voucher:sweep:2024-05-01", key)

	sweeper := &fakeSweeper{}
	sweeper.hook = func() { require.True(t, mr.Exists(key)) }
	h := &jobs.SweepHandler{
		Sweeper: sweeper,
		Clock:   voucher.FixedClock{Day: day},
		Locker:  &lock.Locker{R: client},
	}

	require.NoError(t, h.ProcessTask(context.Background(), jobs.NewSweepTask()))
	require.Equal(t, 1, sweeper.calls)
	require.False(t, mr.Exists(key))
}

func TestSweepHandlerSkipsWhenLockHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	day := voucher.NewDate(2024, 5, 1)
	require.NoError(t, mr.Set(jobs.SweepLockKey(day), "other-worker"))

	sweeper := &fakeSweeper{}
	h := &jobs.SweepHandler{Sweeper: sweeper, Clock: voucher.FixedClock{Day: day}, Locker: &lock.Locker{R: client}}

	require.NoError(t, h.ProcessTask(context.Background(), jobs.NewSweepTask()))
	require.Zero(t, sweeper.calls)
}

func TestSweepHandlerReportsFailure(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("db down")}
	h := &jobs.SweepHandler{Sweeper: sweeper, Clock: voucher.FixedClock{Day: voucher.NewDate(2024, 5, 1)}}

	err := h.ProcessTask(context.Background(), jobs.NewSweepTask())
	require.Error(t, err)
	require.Contains(t, err.Error(), "db down")

	var unset *jobs.SweepHandler
	require.ErrorIs(t, unset.ProcessTask(context.Background(), jobs.NewSweepTask()), asynq.SkipRetry)
}

func TestRegisterWiresMuxAndSchedule(t *testing.T) {
	sweeper := &fakeSweeper{}
	mux := asynq.NewServeMux()
	jobs.Register(mux, &jobs.SweepHandler{Sweeper: sweeper, Clock: voucher.FixedClock{Day: voucher.NewDate(2024, 5, 1)}})
	require.NoError(t, mux.ProcessTask(context.Background(), jobs.NewSweepTask()))
	require.Equal(t, 1, sweeper.calls)

	mr := miniredis.RunT(t)
	scheduler := asynq.NewScheduler(asynq.RedisClientOpt{Addr: mr.Addr()}, &asynq.SchedulerOpts{})
	id, err := jobs.RegisterSchedule(scheduler, "")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = jobs.RegisterSchedule(scheduler, "not a cron")
	require.Error(t, err)
}

func TestLoggerSatisfiesAsynq(t *testing.T) {
	var _ asynq.Logger = jobs.Logger{}
}
