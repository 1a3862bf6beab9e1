// Package autosave drives the periodic snapshot of a session from the host side.
package autosave

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is how often a snapshot is written.
const DefaultInterval = 5 * time.Second

const flushTimeout = 5 * time.Second

// Target is anything that can write a snapshot on demand.
type Target interface {
	OnTick(ctx context.Context) error
}

// TickerFunc returns a tick channel and a stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTicker overrides the tick source, primarily for tests.
func WithTicker(fn TickerFunc) Option {
	return func(s *Scheduler) {
		s.newTicker = fn
	}
}

// WithFinalFlush controls whether a last snapshot is written when Run returns.
func WithFinalFlush(enabled bool) Option {
	return func(s *Scheduler) {
		s.finalFlush = enabled
	}
}

// Scheduler calls Target.OnTick on a fixed interval.
type Scheduler struct {
	target     Target
	interval   time.Duration
	logger     *zap.Logger
	newTicker  TickerFunc
	finalFlush bool
}

// New creates a Scheduler. A non-positive interval falls back to DefaultInterval.
func New(target Target, interval time.Duration, logger *zap.Logger, opts ...Option) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		target:     target,
		interval:   interval,
		logger:     logger.Named("autosave"),
		newTicker:  stdTicker,
		finalFlush: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ticks until ctx is done. Failed writes are logged and the loop keeps going.
func (s *Scheduler) Run(ctx context.Context) {
	ticks, stop := s.newTicker(s.interval)
	defer stop()

	s.logger.Info("autosave started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			if s.finalFlush {
				s.flush(ctx)
			}
			s.logger.Info("autosave stopped")
			return
		case <-ticks:
			if err := s.target.OnTick(ctx); err != nil {
				s.logger.Warn("autosave failed", zap.Error(err))
			}
		}
	}
}

func (s *Scheduler) flush(parent context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), flushTimeout)
	defer cancel()
	if err := s.target.OnTick(ctx); err != nil {
		s.logger.Warn("final snapshot failed", zap.Error(err))
	}
}

func stdTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}
