// Package speech provides voice sinks: a logging no-op and an Azure TTS
// pipeline with audio caching and local playback.
package speech

import (
	"context"
	"sync/atomic"

	"github.com/hammamikhairi/ottofry/internal/domain"
	"github.com/hammamikhairi/ottofry/internal/logger"
)

// Compile-time interface check.
var _ domain.VoiceSink = (*NoOp)(nil)

// NoOp is a voice sink that only logs. Used when no TTS backend is set up.
type NoOp struct {
	log     *logger.Logger
	enabled atomic.Bool
}

// NewNoOp creates a no-op voice sink, enabled by default.
func NewNoOp(log *logger.Logger) *NoOp {
	n := &NoOp{log: log}
	n.enabled.Store(true)
	return n
}

// SetEnabled toggles the sink.
func (n *NoOp) SetEnabled(enabled bool) { n.enabled.Store(enabled) }

// Enabled reports whether the sink accepts text.
func (n *NoOp) Enabled() bool { return n.enabled.Load() }

// Speak logs the text. Reports false when disabled.
func (n *NoOp) Speak(ctx context.Context, text string) (bool, error) {
	if !n.Enabled() {
		return false, nil
	}
	n.log.Debug("speech no-op: would say %q", text)
	return true, nil
}
