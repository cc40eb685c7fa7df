package ctxclock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// context registation

var clockKey int

func WithClock(ctx context.Context, c Clock) context.Context {
	if c == nil {
		c = NewRealClock()
	}

	return context.WithValue(ctx, &clockKey, c)
}

func GetClock(ctx context.Context) Clock {
	if v := ctx.Value(&clockKey); v != nil {
		return v.(Clock)
	}

	return nil
}

func Now(ctx context.Context) (time.Time, error) {
	if c := GetClock(ctx); c != nil {
		return c.Now()
	}

	return time.Time{}, fmt.Errorf("ctxclock.Now: %w", ErrNoClock)
}

// NowOrZero is Now for callers that degrade to the zero time instead of
// failing.
func NowOrZero(ctx context.Context) time.Time {
	t, err := Now(ctx)
	if err != nil {
		return time.Time{}
	}

	return t
}

// Sleep pauses for d using the clock on ctx if it knows how to sleep, and a
// real timer otherwise. It returns early with the context error if ctx is
// cancelled.
func Sleep(ctx context.Context, d time.Duration) error {
	if s, ok := GetClock(ctx).(Sleeper); ok {
		return s.Sleep(ctx, d)
	}

	return realSleep(ctx, d)
}

func realSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// public interface

var (
	ErrNoClock = fmt.Errorf("ctxclock.ErrNoClock: no clock found in context")
)

type Clock interface {
	Now() (time.Time, error)
}

type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// real clock

type realClock struct{}

func NewRealClock() Clock {
	return &realClock{}
}

func (realClock) Now() (time.Time, error) {
	return time.Now(), nil
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	return realSleep(ctx, d)
}

// static clock

type staticClock struct{ t time.Time }

func NewStaticClock(t time.Time) Clock {
	return &staticClock{t: t}
}

func (c *staticClock) Now() (time.Time, error) {
	return c.t, nil
}

// manual clock, useful for testing; sleeping advances time instantly and
// records the requested duration

type ManualClock struct {
	m      sync.Mutex
	t      time.Time
	sleeps []time.Duration
}

func NewManualClock(t time.Time) *ManualClock {
	return &ManualClock{t: t}
}

func (c *ManualClock) Now() (time.Time, error) {
	c.m.Lock()
	defer c.m.Unlock()

	return c.t, nil
}

func (c *ManualClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.m.Lock()
	defer c.m.Unlock()

	c.t = c.t.Add(d)
	c.sleeps = append(c.sleeps, d)

	return nil
}

func (c *ManualClock) Sleeps() []time.Duration {
	c.m.Lock()
	defer c.m.Unlock()

	return append([]time.Duration(nil), c.sleeps...)
}
