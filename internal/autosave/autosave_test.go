package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type countingTarget struct {
	mu    sync.Mutex
	calls int
	err   error
	ticks chan struct{}
}

func newCountingTarget(err error) *countingTarget {
	return &countingTarget{err: err, ticks: make(chan struct{}, 16)}
}

func (c *countingTarget) OnTick(context.Context) error {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	select {
	case c.ticks <- struct{}{}:
	default:
	}
	return c.err
}

func (c *countingTarget) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func manualTicker() (chan time.Time, TickerFunc) {
	ch := make(chan time.Time)
	return ch, func(time.Duration) (<-chan time.Time, func()) {
		return ch, func() {}
	}
}

func waitTick(t *testing.T, target *countingTarget) {
	t.Helper()
	select {
	case <-target.ticks:
	case <-time.After(time.Second):
		t.Fatalf("expected OnTick to be called")
	}
}

func TestRunCallsTargetOnEveryTick(t *testing.T) {
	target := newCountingTarget(nil)
	ch, ticker := manualTicker()
	s := New(target, time.Second, zaptest.NewLogger(t), WithTicker(ticker), WithFinalFlush(false))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		ch <- time.Now()
		waitTick(t, target)
	}
	cancel()
	<-done

	if got := target.count(); got != 3 {
		t.Fatalf("expected 3 ticks, got %d", got)
	}
}

func TestRunKeepsGoingAfterErrors(t *testing.T) {
	target := newCountingTarget(errors.New("disk full"))
	ch, ticker := manualTicker()
	s := New(target, time.Second, zaptest.NewLogger(t), WithTicker(ticker), WithFinalFlush(false))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	ch <- time.Now()
	waitTick(t, target)
	ch <- time.Now()
	waitTick(t, target)
	cancel()
	<-done
}

func TestRunFlushesOnStop(t *testing.T) {
	target := newCountingTarget(nil)
	_, ticker := manualTicker()
	s := New(target, time.Second, zaptest.NewLogger(t), WithTicker(ticker))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Run(ctx)

	if got := target.count(); got != 1 {
		t.Fatalf("expected final flush, got %d calls", got)
	}
}

func TestRunWithRealTicker(t *testing.T) {
	target := newCountingTarget(nil)
	s := New(target, 5*time.Millisecond, zaptest.NewLogger(t), WithFinalFlush(false))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	waitTick(t, target)
	waitTick(t, target)
	cancel()
	<-done
}

func TestNewDefaultsInterval(t *testing.T) {
	s := New(newCountingTarget(nil), 0, nil)
	if s.interval != DefaultInterval {
		t.Fatalf("expected default interval %s, got %s", DefaultInterval, s.interval)
	}
}
