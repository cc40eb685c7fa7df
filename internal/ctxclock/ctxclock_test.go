package ctxclock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNowWithoutClock(t *testing.T) {
	a := assert.New(t)

	_, err := Now(context.Background())
	a.ErrorIs(err, ErrNoClock)
	a.True(NowOrZero(context.Background()).IsZero())
}

func TestStaticClock(t *testing.T) {
	a := assert.New(t)

	want := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	ctx := WithClock(context.Background(), NewStaticClock(want))

	got, err := Now(ctx)
	a.NoError(err)
	a.Equal(want, got)

	got, err = Now(ctx)
	a.NoError(err)
	a.Equal(want, got)
}

func TestManualClockSleep(t *testing.T) {
	a := assert.New(t)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewManualClock(start)
	ctx := WithClock(context.Background(), c)

	a.NoError(Sleep(ctx, time.Second))
	a.NoError(Sleep(ctx, time.Millisecond*500))

	now, err := Now(ctx)
	a.NoError(err)
	a.Equal(start.Add(time.Millisecond*1500), now)
	a.Equal([]time.Duration{time.Second, time.Millisecond * 500}, c.Sleeps())
}

func TestSleepCancelled(t *testing.T) {
	a := assert.New(t)

	ctx, cancel := context.WithCancel(WithClock(context.Background(), NewRealClock()))
	cancel()

	a.ErrorIs(Sleep(ctx, time.Hour), context.Canceled)
}
