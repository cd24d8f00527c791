package timer

import (
	"sync"
	"time"
)

// FakeClock is a manually advanced Clock for tests. Tickers deliver on
// a one-slot buffered channel and drop ticks nobody is reading, like
// time.Ticker. AfterFunc callbacks run on the goroutine calling Advance.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
	timers  []*fakeTimer
}

// NewFakeClock returns a clock frozen at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NewTicker creates a ticker firing every d of fake time.
func (c *FakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{clock: c, ch: make(chan time.Time, 1), period: d, next: c.now.Add(d)}
	c.tickers = append(c.tickers, t)
	return t
}

// AfterFunc schedules f to run once d of fake time has passed.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward by d, firing tickers and timers in
// chronological order.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		at, fire := c.nextEventLocked(target)
		if fire == nil {
			break
		}
		c.now = at
		c.mu.Unlock()
		fire()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

// nextEventLocked finds the earliest due event not after target and
// returns a closure that fires it. Must be called with c.mu held.
func (c *FakeClock) nextEventLocked(target time.Time) (time.Time, func()) {
	var (
		best time.Time
		fire func()
	)
	for _, t := range c.tickers {
		if t.next.After(target) {
			continue
		}
		if fire == nil || t.next.Before(best) {
			tk := t
			best = tk.next
			fire = func() {
				c.mu.Lock()
				if tk.stopped {
					c.mu.Unlock()
					return
				}
				now := tk.next
				tk.next = tk.next.Add(tk.period)
				c.mu.Unlock()
				select {
				case tk.ch <- now:
				default:
				}
			}
		}
	}
	for i, t := range c.timers {
		if t.at.After(target) {
			continue
		}
		if fire == nil || t.at.Before(best) {
			idx, tm := i, t
			best = tm.at
			fire = func() {
				c.mu.Lock()
				c.timers = append(c.timers[:idx:idx], c.timers[idx+1:]...)
				tm.fired = true
				c.mu.Unlock()
				tm.f()
			}
		}
	}
	return best, fire
}

// PendingTimers returns the number of AfterFunc timers not yet fired or
// stopped.
func (c *FakeClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// ActiveTickers returns the number of tickers not yet stopped.
func (c *FakeClock) ActiveTickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

type fakeTicker struct {
	clock   *FakeClock
	ch      chan time.Time
	period  time.Duration
	next    time.Time
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

// Stop removes the ticker from its clock. Safe to call more than once.
func (t *fakeTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.stopped = true
	for i, other := range t.clock.tickers {
		if other == t {
			t.clock.tickers = append(t.clock.tickers[:i:i], t.clock.tickers[i+1:]...)
			return
		}
	}
}

type fakeTimer struct {
	clock *FakeClock
	at    time.Time
	f     func()
	fired bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired {
		return false
	}
	for i, other := range t.clock.timers {
		if other == t {
			t.clock.timers = append(t.clock.timers[:i:i], t.clock.timers[i+1:]...)
			return true
		}
	}
	return false
}
