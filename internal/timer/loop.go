// Package timer owns the periodic tick that drives a running cook and the
// clock seam the engine uses for ticks and alert expiry.
package timer

import (
	"context"
	"sync"
	"time"

	"github.com/hammamikhairi/ottofry/internal/logger"
)

// TickFunc is called once per interval with the generation of the run that
// produced the tick.
type TickFunc func(ctx context.Context, gen uint64)

// Option configures the loop.
type Option func(*Loop)

// WithTickInterval sets how often the loop ticks.
func WithTickInterval(d time.Duration) Option {
	return func(l *Loop) {
		l.interval = d
	}
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(l *Loop) {
		l.clock = c
	}
}

// Loop is a restartable periodic trigger. At most one run is live at a
// time: Start stops the previous run before beginning a new generation.
// Stop never blocks, so it is safe to call from inside a TickFunc or while
// holding a lock the TickFunc also takes. Wait blocks until every run's
// goroutine has exited.
type Loop struct {
	clock    Clock
	interval time.Duration
	log      *logger.Logger

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

// NewLoop creates a stopped loop.
func NewLoop(log *logger.Logger, opts ...Option) *Loop {
	l := &Loop{
		clock:    SystemClock,
		interval: time.Second,
		log:      log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Interval returns the tick period.
func (l *Loop) Interval() time.Duration { return l.interval }

// Start begins a new run and returns its generation. Non-blocking.
func (l *Loop) Start(ctx context.Context, fn TickFunc) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	gen := l.gen

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.running = true

	ticker := l.clock.NewTicker(l.interval)
	l.wg.Add(1)
	go l.run(runCtx, ticker, gen, fn)

	l.log.Debug("tick loop started (gen=%d, interval=%s)", gen, l.interval)
	return gen
}

// Stop cancels the current run, if any.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running {
		return
	}
	l.cancel()
	l.cancel = nil
	l.running = false
	l.log.Debug("tick loop stopped (gen=%d)", l.gen)
}

// Running reports whether a run is live.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Generation returns the generation of the latest run.
func (l *Loop) Generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen
}

// Wait blocks until all run goroutines have returned.
func (l *Loop) Wait() {
	l.wg.Wait()
}

func (l *Loop) run(ctx context.Context, ticker Ticker, gen uint64, fn TickFunc) {
	defer l.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			// A tick may race with cancellation; prefer the cancel.
			if ctx.Err() != nil {
				return
			}
			fn(ctx, gen)
		}
	}
}
