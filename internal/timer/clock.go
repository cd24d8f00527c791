package timer

import "time"

// Ticker is the part of time.Ticker the loop needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Timer represents a one-shot timer that can be stopped.
type Timer interface {
	Stop() bool
}

// Clock provides time-related operations. Production code uses
// SystemClock; tests inject a FakeClock to drive ticks and alert
// expiry deterministically.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemClock is the default Clock backed by the time package.
var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) NewTicker(d time.Duration) Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type systemTicker struct{ t *time.Ticker }

func (s *systemTicker) C() <-chan time.Time { return s.t.C }
func (s *systemTicker) Stop()               { s.t.Stop() }
