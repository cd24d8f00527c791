// Package engine implements the cooking timer state machine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/ottofry/internal/alert"
	"github.com/hammamikhairi/ottofry/internal/domain"
	"github.com/hammamikhairi/ottofry/internal/logger"
	"github.com/hammamikhairi/ottofry/internal/metrics"
	"github.com/hammamikhairi/ottofry/internal/timer"
)

// ErrClosed is returned by commands issued after Close.
var ErrClosed = errors.New("engine closed")

// completionKey marks the completion message as delivered once per session.
const completionKey = "complete"

// Deliverer hands messages to the user. Deliver must not block for long
// and must not call back into the engine.
type Deliverer interface {
	Deliver(ctx context.Context, msg alert.Message) bool
	Forget()
}

// RecentRecorder remembers which foods were selected.
type RecentRecorder interface {
	PushRecent(ctx context.Context, foodID string) error
}

// Option configures the engine.
type Option func(*Engine)

// WithClock replaces the system clock for ticks and alert expiry.
func WithClock(c timer.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithTickInterval sets the wall-clock period of one cook second.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.tickInterval = d
	}
}

// WithAlertWindow sets how long a fired action stays visible.
func WithAlertWindow(d time.Duration) Option {
	return func(e *Engine) {
		e.alertWindow = d
	}
}

// WithSelectionGuard rejects SelectFood while a cook is in progress or
// finished instead of resetting implicitly.
func WithSelectionGuard() Option {
	return func(e *Engine) {
		e.guardSelection = true
	}
}

// WithRecentRecorder records every selected food.
func WithRecentRecorder(r RecentRecorder) Option {
	return func(e *Engine) {
		e.recent = r
	}
}

// Engine owns one cooking session. Commands and ticks are serialized by a
// single mutex, so a command fully applies before the next tick observes
// state.
type Engine struct {
	recipes        domain.RecipeSource
	alerts         Deliverer
	log            *logger.Logger
	clock          timer.Clock
	tickInterval   time.Duration
	alertWindow    time.Duration
	guardSelection bool
	recent         RecentRecorder

	loop   *timer.Loop
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	session    *domain.Session
	tickGen    uint64 // generation of the live tick loop, 0 when stopped
	alertTimer timer.Timer
	alertSeq   uint64
	subs       map[int]chan domain.Snapshot
	nextSub    int
	closed     bool
}

// New creates an idle engine with the given dependencies and options.
func New(recipes domain.RecipeSource, alerts Deliverer, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		recipes:      recipes,
		alerts:       alerts,
		log:          log,
		clock:        timer.SystemClock,
		tickInterval: time.Second,
		alertWindow:  10 * time.Second,
		session:      domain.NewSession(),
		subs:         make(map[int]chan domain.Snapshot),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.loop = timer.NewLoop(log, timer.WithClock(e.clock), timer.WithTickInterval(e.tickInterval))
	e.ctx, e.cancel = context.WithCancel(context.Background())
	return e
}

// Snapshot returns the current session state.
func (e *Engine) Snapshot() domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Snapshot()
}

// SelectFood loads a recipe into a fresh idle session.
func (e *Engine) SelectFood(ctx context.Context, id string) (snap domain.Snapshot, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { metrics.IncCommand("select_food", err) }()

	if e.closed {
		return e.session.Snapshot(), ErrClosed
	}
	status := e.session.Status
	if status != domain.StatusIdle && e.guardSelection {
		return e.session.Snapshot(), fmt.Errorf("select food while %s: %w", status, domain.ErrInvalidTransition)
	}

	recipe, err := e.recipes.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return e.session.Snapshot(), fmt.Errorf("%w %q: %w", domain.ErrUnknownRecipe, id, err)
		}
		return e.session.Snapshot(), fmt.Errorf("getting recipe %q: %w", id, err)
	}

	if status != domain.StatusIdle {
		e.log.Info("selecting %s while %s, resetting current cook", id, status)
	}
	e.resetLocked()

	now := e.clock.Now()
	s := domain.NewSession()
	s.ID = uuid.NewString()
	s.Recipe = recipe.Clone()
	s.TotalSeconds = recipe.CookTimeSeconds()
	s.RemainingSeconds = s.TotalSeconds
	s.SelectedAt = now
	s.UpdatedAt = now
	e.session = s

	if e.recent != nil {
		if rerr := e.recent.PushRecent(ctx, recipe.ID); rerr != nil {
			e.log.Warn("recording recent food %s: %v", recipe.ID, rerr)
		}
	}

	e.log.Info("selected %s (%d min at %d°F), session %s", recipe.Name, recipe.CookTimeMinutes, recipe.Temperature, s.ID)
	return e.publishLocked(), nil
}

// Start begins the countdown for the selected food.
func (e *Engine) Start(ctx context.Context) (snap domain.Snapshot, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { metrics.IncCommand("start", err) }()

	if e.closed {
		return e.session.Snapshot(), ErrClosed
	}
	s := e.session
	if s.Status != domain.StatusIdle {
		return s.Snapshot(), fmt.Errorf("start while %s: %w", s.Status, domain.ErrInvalidTransition)
	}
	if s.Recipe == nil {
		return s.Snapshot(), domain.ErrNoRecipeSelected
	}

	s.Status = domain.StatusRunning
	s.StartedAt = e.clock.Now()
	e.startTickingLocked()

	e.deliverLocked(ctx, alert.Message{
		Kind: domain.AlertAnnouncement,
		Text: alert.LineStart(s.Recipe.Name, s.Recipe.CookTimeMinutes, s.Recipe.Temperature),
	})
	e.fireDueLocked(ctx)

	e.log.Info("started %s, session %s", s.Recipe.Name, s.ID)
	return e.publishLocked(), nil
}

// Pause suspends the countdown.
func (e *Engine) Pause(ctx context.Context) (snap domain.Snapshot, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { metrics.IncCommand("pause", err) }()

	if e.closed {
		return e.session.Snapshot(), ErrClosed
	}
	s := e.session
	if s.Status != domain.StatusRunning {
		return s.Snapshot(), fmt.Errorf("pause while %s: %w", s.Status, domain.ErrInvalidTransition)
	}

	e.stopTickingLocked()
	s.Status = domain.StatusPaused
	e.deliverLocked(ctx, alert.Message{Kind: domain.AlertAnnouncement, Text: alert.LinePaused()})

	e.log.Info("paused session %s at %d s remaining", s.ID, s.RemainingSeconds)
	return e.publishLocked(), nil
}

// Resume continues a paused countdown.
func (e *Engine) Resume(ctx context.Context) (snap domain.Snapshot, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { metrics.IncCommand("resume", err) }()

	if e.closed {
		return e.session.Snapshot(), ErrClosed
	}
	s := e.session
	if s.Status != domain.StatusPaused {
		return s.Snapshot(), fmt.Errorf("resume while %s: %w", s.Status, domain.ErrInvalidTransition)
	}

	s.Status = domain.StatusRunning
	e.startTickingLocked()
	e.deliverLocked(ctx, alert.Message{Kind: domain.AlertAnnouncement, Text: alert.LineResumed()})
	e.fireDueLocked(ctx)

	e.log.Info("resumed session %s", s.ID)
	return e.publishLocked(), nil
}

// Reset abandons the current cook and clears the selection.
func (e *Engine) Reset(ctx context.Context) (snap domain.Snapshot, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { metrics.IncCommand("reset", err) }()

	if e.closed {
		return e.session.Snapshot(), ErrClosed
	}
	s := e.session
	if s.Status == domain.StatusIdle {
		return s.Snapshot(), fmt.Errorf("reset while %s: %w", s.Status, domain.ErrInvalidTransition)
	}

	e.log.Info("reset session %s (was %s)", s.ID, s.Status)
	e.resetLocked()
	return e.publishLocked(), nil
}

// DismissAlert clears the visible alert and cancels its expiry.
func (e *Engine) DismissAlert(ctx context.Context) (snap domain.Snapshot, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { metrics.IncCommand("dismiss_alert", err) }()

	if e.closed {
		return e.session.Snapshot(), ErrClosed
	}
	s := e.session
	if s.Status == domain.StatusIdle {
		return s.Snapshot(), fmt.Errorf("dismiss alert while %s: %w", s.Status, domain.ErrInvalidTransition)
	}

	if s.CurrentAlert != nil {
		e.log.Debug("alert %s dismissed", s.CurrentAlert.Key)
	}
	e.clearAlertLocked()
	return e.publishLocked(), nil
}

// Tick advances a running cook by one second. Ticks while not running
// are ignored. The tick loop calls this once per interval; it is exported
// so callers can drive the engine without a clock.
func (e *Engine) Tick(ctx context.Context) domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tickLocked(ctx) {
		return e.publishLocked()
	}
	return e.session.Snapshot()
}

// Subscribe returns a channel receiving a snapshot after every change.
// A subscriber that falls behind misses snapshots rather than blocking the
// engine. The returned func unsubscribes and closes the channel.
func (e *Engine) Subscribe(buffer int) (<-chan domain.Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := make(chan domain.Snapshot, buffer)
	if e.closed {
		close(ch)
		return ch, func() {}
	}
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if c, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(c)
			}
		})
	}
}

// Close stops every timer, closes subscriber channels and waits for the
// tick goroutine to exit. The session is left as it was.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.stopTickingLocked()
	if e.alertTimer != nil {
		e.alertTimer.Stop()
		e.alertTimer = nil
	}
	e.alertSeq++
	for id, ch := range e.subs {
		delete(e.subs, id)
		close(ch)
	}
	e.mu.Unlock()

	e.cancel()
	e.loop.Wait()
	e.log.Info("engine closed")
	return nil
}

// onTick is the tick loop callback. Ticks from a superseded loop are
// discarded.
func (e *Engine) onTick(ctx context.Context, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.tickGen {
		metrics.StaleTicksTotal.Inc()
		e.log.Debug("discarding tick from generation %d (live %d)", gen, e.tickGen)
		return
	}
	if e.tickLocked(ctx) {
		e.publishLocked()
	}
}

// tickLocked applies one second and reports whether state changed.
func (e *Engine) tickLocked(ctx context.Context) bool {
	s := e.session
	if s.Status != domain.StatusRunning || e.closed {
		metrics.StaleTicksTotal.Inc()
		return false
	}
	metrics.TicksTotal.Inc()

	if s.RemainingSeconds <= 1 {
		s.RemainingSeconds = 0
		s.ElapsedSeconds++
		s.Status = domain.StatusComplete
		e.stopTickingLocked()
		e.deliverLocked(ctx, alert.Message{
			Kind: domain.AlertCompletion,
			Key:  completionKey,
			Text: alert.LineComplete(s.Recipe.Name),
		})
		metrics.SessionsCompletedTotal.Inc()
		e.log.Info("session %s complete after %d s", s.ID, s.ElapsedSeconds)
		return true
	}

	s.RemainingSeconds--
	s.ElapsedSeconds++
	e.fireDueLocked(ctx)
	return true
}

// fireDueLocked fires every scheduled action and warning due at the current
// elapsed/remaining time that has not fired yet.
func (e *Engine) fireDueLocked(ctx context.Context) {
	s := e.session
	minute := s.ElapsedSeconds / 60

	for _, a := range s.Recipe.ScheduledActions {
		if a.AtMinute != minute {
			continue
		}
		key := a.Key()
		if _, fired := s.FiredActionKeys[key]; fired {
			continue
		}
		s.FiredActionKeys[key] = struct{}{}
		e.setAlertLocked(&domain.Alert{
			Kind:           domain.AlertAction,
			ActionType:     a.Type,
			Message:        a.Message,
			Key:            key,
			FiredAtElapsed: s.ElapsedSeconds,
			FiredAt:        e.clock.Now(),
		})
		e.deliverLocked(ctx, alert.Message{Kind: domain.AlertAction, Key: key, Text: a.Message})
		metrics.IncActionFired(string(a.Type))
		e.log.Debug("action %s fired at %d s", key, s.ElapsedSeconds)
	}

	for _, threshold := range alert.WarningThresholds {
		if s.RemainingSeconds != threshold {
			continue
		}
		key := alert.WarningKey(threshold)
		if _, fired := s.FiredWarningKeys[key]; fired {
			continue
		}
		s.FiredWarningKeys[key] = struct{}{}
		e.deliverLocked(ctx, alert.Message{Kind: domain.AlertWarning, Key: key, Text: alert.LineWarning(threshold)})
		metrics.IncWarningFired(threshold)
		e.log.Debug("warning %s fired", key)
	}
}

// setAlertLocked replaces the visible alert and re-arms its expiry.
func (e *Engine) setAlertLocked(a *domain.Alert) {
	e.clearAlertLocked()
	e.session.CurrentAlert = a
	seq := e.alertSeq
	e.alertTimer = e.clock.AfterFunc(e.alertWindow, func() { e.expireAlert(seq) })
}

// clearAlertLocked removes the visible alert. Any pending expiry becomes
// a no-op.
func (e *Engine) clearAlertLocked() {
	e.alertSeq++
	if e.alertTimer != nil {
		e.alertTimer.Stop()
		e.alertTimer = nil
	}
	e.session.CurrentAlert = nil
}

func (e *Engine) expireAlert(seq uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if seq != e.alertSeq || e.closed {
		return
	}
	e.alertTimer = nil
	if e.session.CurrentAlert == nil {
		return
	}
	e.log.Debug("alert %s expired", e.session.CurrentAlert.Key)
	e.session.CurrentAlert = nil
	e.publishLocked()
}

// resetLocked cancels every timer and returns to a fresh idle session.
func (e *Engine) resetLocked() {
	e.stopTickingLocked()
	e.clearAlertLocked()
	e.session = domain.NewSession()
	e.session.UpdatedAt = e.clock.Now()
	if e.alerts != nil {
		e.alerts.Forget()
	}
}

func (e *Engine) startTickingLocked() {
	e.tickGen = e.loop.Start(e.ctx, e.onTick)
}

func (e *Engine) stopTickingLocked() {
	e.loop.Stop()
	e.tickGen = 0
}

func (e *Engine) deliverLocked(ctx context.Context, msg alert.Message) {
	if e.alerts == nil {
		return
	}
	e.alerts.Deliver(ctx, msg)
}

// publishLocked stamps the session and fans a snapshot out to subscribers.
func (e *Engine) publishLocked() domain.Snapshot {
	e.session.UpdatedAt = e.clock.Now()
	snap := e.session.Snapshot()
	metrics.SetRemaining(snap.RemainingSeconds)
	for _, ch := range e.subs {
		select {
		case ch <- snap:
		default:
			metrics.SnapshotDropsTotal.Inc()
		}
	}
	return snap
}
