package clock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealClock_SleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Real().Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRealClock_NonPositiveSleep(t *testing.T) {
	assert.NoError(t, Real().Sleep(context.Background(), 0))
	assert.NoError(t, Real().Sleep(context.Background(), -time.Second))
}

func TestFake_SleepAdvancesTime(t *testing.T) {
	start := time.Unix(1000, 0)
	f := NewFake(start)
	f.SetOvershoot(func(time.Duration) time.Duration { return 2 * time.Millisecond })

	require.NoError(t, f.Sleep(context.Background(), 100*time.Millisecond))
	assert.Equal(t, start.Add(102*time.Millisecond), f.Now())
	assert.Equal(t, []time.Duration{100 * time.Millisecond}, f.Sleeps())
}

func TestFake_FailNextSleep(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	boom := errors.New("boom")
	f.FailNextSleep(boom)

	assert.ErrorIs(t, f.Sleep(context.Background(), time.Second), boom)
	assert.NoError(t, f.Sleep(context.Background(), time.Second))
	assert.Equal(t, time.Unix(2, 0), f.Now())
}

func TestFake_OnSleepHook(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	var total time.Duration
	f.OnSleep(func(d time.Duration) { total += d })

	_ = f.Sleep(context.Background(), 10*time.Millisecond)
	_ = f.Sleep(context.Background(), 15*time.Millisecond)
	f.Advance(time.Second)

	assert.Equal(t, 25*time.Millisecond, total)
}
