// Package alert turns due actions, warnings and announcements into
// delivered messages on the text and voice channels.
package alert

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/hammamikhairi/ottofry/internal/domain"
	"github.com/hammamikhairi/ottofry/internal/logger"
	"github.com/hammamikhairi/ottofry/internal/metrics"
)

// Message is one thing to tell the user. Keyed messages are delivered at
// most once until Forget is called.
type Message struct {
	Kind domain.AlertKind
	Key  string
	Text string
}

// VoicePreference persists the voice enabled flag.
type VoicePreference interface {
	VoiceEnabled(ctx context.Context) (bool, error)
	SetVoiceEnabled(ctx context.Context, enabled bool) error
}

// Option configures the dispatcher.
type Option func(*Dispatcher)

// WithVoicePreference loads the voice flag from p at construction and
// writes it back on every toggle.
func WithVoicePreference(p VoicePreference) Option {
	return func(d *Dispatcher) {
		d.prefs = p
	}
}

// Dispatcher fans messages out to a text notifier and a voice sink. It
// never returns delivery errors to its caller: failures are logged and
// counted.
type Dispatcher struct {
	notifier domain.Notifier
	voice    domain.VoiceSink
	prefs    VoicePreference
	log      *logger.Logger

	mu        sync.Mutex
	delivered map[string]struct{}
}

// NewDispatcher creates a dispatcher. Either sink may be nil.
func NewDispatcher(ctx context.Context, notifier domain.Notifier, voice domain.VoiceSink, log *logger.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		notifier:  notifier,
		voice:     voice,
		log:       log,
		delivered: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.prefs != nil && d.voice != nil {
		enabled, err := d.prefs.VoiceEnabled(ctx)
		if err != nil {
			d.log.Warn("reading voice preference, keeping default: %v", err)
			enabled = true
		}
		d.voice.SetEnabled(enabled)
		d.log.Debug("voice alerts enabled=%t", enabled)
	}
	return d
}

// Deliver sends msg to the text channel and, when voice is enabled, to the
// voice sink. It reports false when a keyed message was already delivered.
func (d *Dispatcher) Deliver(ctx context.Context, msg Message) bool {
	if msg.Key != "" {
		d.mu.Lock()
		if _, seen := d.delivered[msg.Key]; seen {
			d.mu.Unlock()
			d.log.Debug("suppressing repeat delivery of %s", msg.Key)
			return false
		}
		d.delivered[msg.Key] = struct{}{}
		d.mu.Unlock()
	}

	d.sendText(ctx, msg)
	d.speak(ctx, msg.Text)
	return true
}

// Forget clears the delivered-key set. Called when a session ends.
func (d *Dispatcher) Forget() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delivered = make(map[string]struct{})
}

// VoiceEnabled reports the current voice flag.
func (d *Dispatcher) VoiceEnabled() bool {
	return d.voice != nil && d.voice.Enabled()
}

// SetVoiceEnabled toggles voice delivery and persists the flag. The flag
// takes effect even if persisting it fails.
func (d *Dispatcher) SetVoiceEnabled(ctx context.Context, enabled bool) error {
	if d.voice == nil {
		return fmt.Errorf("no voice sink configured: %w", domain.ErrNotImplemented)
	}
	d.voice.SetEnabled(enabled)
	d.log.Info("voice alerts enabled=%t", enabled)

	var err error
	if d.prefs != nil {
		if perr := d.prefs.SetVoiceEnabled(ctx, enabled); perr != nil {
			err = fmt.Errorf("saving voice preference: %w", perr)
		}
	}
	if enabled {
		d.speak(ctx, LineVoiceEnabled())
	}
	return err
}

// TestVoice speaks a fixed line and reports whether delivery was attempted.
func (d *Dispatcher) TestVoice(ctx context.Context) bool {
	return d.speak(ctx, LineVoiceTest())
}

func (d *Dispatcher) sendText(ctx context.Context, msg Message) {
	if d.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("text delivery panicked: %v", r)
			metrics.IncDelivery(metrics.ChannelText, metrics.ResultFailed)
		}
	}()

	var err error
	switch msg.Kind {
	case domain.AlertAction, domain.AlertCompletion:
		err = d.notifier.NotifyUrgent(ctx, msg.Text)
	default:
		err = d.notifier.Notify(ctx, msg.Text)
	}
	if err != nil {
		d.log.Error("text %s: %v", msg.Kind, fmt.Errorf("%w: %v", domain.ErrDeliveryFailure, err))
		metrics.IncDelivery(metrics.ChannelText, metrics.ResultFailed)
		return
	}
	metrics.IncDelivery(metrics.ChannelText, metrics.ResultOK)
}

// speak hands text to the voice sink and reports whether it was attempted.
func (d *Dispatcher) speak(ctx context.Context, text string) (attempted bool) {
	if d.voice == nil || !d.voice.Enabled() {
		metrics.IncDelivery(metrics.ChannelVoice, metrics.ResultSkipped)
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("voice delivery panicked: %v", r)
			metrics.IncDelivery(metrics.ChannelVoice, metrics.ResultFailed)
			attempted = true
		}
	}()

	attempted, err := d.voice.Speak(ctx, CleanForSpeech(text))
	switch {
	case err != nil:
		d.log.Warn("voice: %v", fmt.Errorf("%w: %v", domain.ErrDeliveryFailure, err))
		metrics.IncDelivery(metrics.ChannelVoice, metrics.ResultFailed)
	case attempted:
		metrics.IncDelivery(metrics.ChannelVoice, metrics.ResultOK)
	default:
		metrics.IncDelivery(metrics.ChannelVoice, metrics.ResultSkipped)
	}
	return attempted
}

var bracketPrefix = regexp.MustCompile(`^\[[A-Za-z]+\]\s*`)
var ansiCodes = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// CleanForSpeech strips formatting artifacts that shouldn't be spoken.
func CleanForSpeech(msg string) string {
	cleaned := ansiCodes.ReplaceAllString(msg, "")
	cleaned = bracketPrefix.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}
