package voucher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingSaver struct {
	saved []Voucher
	fail  map[string]bool
}

func (s *recordingSaver) Save(_ context.Context, v Voucher) (Voucher, error) {
	if s.fail[v.ID] {
		return Voucher{}, errors.New("boom")
	}
	s.saved = append(s.saved, v)
	return v, nil
}

func TestSweepDeactivatesOnlyPastExpirations(t *testing.T) {
	today := NewDate(2024, 6, 15)
	all := []Voucher{
		{ID: "yesterday", Active: true, ExpirationDate: today.AddDays(-1)},
		{ID: "today", Active: true, ExpirationDate: today},
		{ID: "tomorrow", Active: true, ExpirationDate: today.AddDays(1)},
		{ID: "already-off", Active: false, ExpirationDate: today.AddDays(-10)},
	}
	saver := &recordingSaver{}

	res, err := Sweep(context.Background(), today, all, saver)
	require.NoError(t, err)
	require.Equal(t, []string{"yesterday"}, res.IDs())
	require.Len(t, saver.saved, 1)
	require.False(t, saver.saved[0].Active)
	require.True(t, all[0].Active, "input slice must not be mutated")
}

func TestSweepContinuesAfterSaveFailure(t *testing.T) {
	today := NewDate(2024, 6, 15)
	all := []Voucher{
		{ID: "a", Active: true, ExpirationDate: today.AddDays(-3)},
		{ID: "b", Active: true, ExpirationDate: today.AddDays(-2)},
	}
	saver := &recordingSaver{fail: map[string]bool{"a": true}}

	res, err := Sweep(context.Background(), today, all, saver)
	require.Error(t, err)
	require.Contains(t, err.Error(), "deactivate voucher a")
	require.Equal(t, []string{"b"}, res.IDs())
}

func TestSweepStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	today := NewDate(2024, 6, 15)
	all := []Voucher{{ID: "a", Active: true, ExpirationDate: today.AddDays(-1)}}

	res, err := Sweep(ctx, today, all, &recordingSaver{})
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, res.Updated)
}
