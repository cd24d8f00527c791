package speech

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/hammamikhairi/ottofry/internal/domain"
	"github.com/hammamikhairi/ottofry/internal/logger"
	"github.com/hammamikhairi/ottofry/internal/metrics"
)

// Synthesizer turns text into WAV audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	Voice() string
}

// AudioOut plays WAV audio. Play blocks until playback ends or Stop is called.
type AudioOut interface {
	Play(ctx context.Context, wav []byte) error
	Stop()
}

var (
	_ Synthesizer      = (*AzureClient)(nil)
	_ AudioOut         = (*OtoOut)(nil)
	_ domain.VoiceSink = (*Mouth)(nil)
)

// MouthOption configures the Mouth.
type MouthOption func(*Mouth)

// WithChunkSize sets the approximate max character count per TTS chunk.
// Longer text is split at sentence boundaries and synthesized in parallel.
func WithChunkSize(n int) MouthOption {
	return func(m *Mouth) {
		m.chunkSize = n
	}
}

// WithCacheDir sets the directory for persistent clips. Empty disables
// the disk layer.
func WithCacheDir(dir string) MouthOption {
	return func(m *Mouth) {
		m.clips.Dir = dir
	}
}

// WithDiskWrite controls whether new clips are written to disk. Existing
// clips are read either way.
func WithDiskWrite(enabled bool) MouthOption {
	return func(m *Mouth) {
		m.clips.Persist = enabled
	}
}

// WithClipLimit caps how many recipe clips stay in memory.
func WithClipLimit(n int) MouthOption {
	return func(m *Mouth) {
		m.clips.Limit = n
	}
}

// WithClipMaxAge sets how long an unused recipe clip survives on disk.
func WithClipMaxAge(d time.Duration) MouthOption {
	return func(m *Mouth) {
		m.clips.MaxAge = d
	}
}

// Mouth is the TTS voice sink: synthesize (cached, chunked) then play.
// Only one utterance is live at a time; a new Speak interrupts whatever
// is playing and replaces anything still queued.
type Mouth struct {
	tts    Synthesizer
	out    AudioOut
	log    *logger.Logger
	cache  *ClipCache
	clips  ClipConfig
	notify chan struct{}

	enabled atomic.Bool

	mu          sync.Mutex
	pending     *SpeechRequest
	speaking    bool
	generation  uint64 // bumped by every Speak; playback aborts on mismatch
	chunkSize   int
	lastSpoken  string
	spokenCount int
}

// NewMouth creates a voice sink over the given synthesizer and output.
// The sink starts enabled; Run must be running for anything to be heard.
func NewMouth(tts Synthesizer, out AudioOut, log *logger.Logger, opts ...MouthOption) *Mouth {
	m := &Mouth{
		tts:       tts,
		out:       out,
		log:       log,
		notify:    make(chan struct{}, 1),
		chunkSize: 200,
		clips: ClipConfig{
			Persist: true,
			Limit:   DefaultClipLimit,
			MaxAge:  DefaultClipMaxAge,
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.cache = NewClipCache(tts.Voice(), m.clips, log)
	m.enabled.Store(true)
	return m
}

// SetEnabled toggles voice output. Disabling silences current playback.
func (m *Mouth) SetEnabled(enabled bool) {
	m.enabled.Store(enabled)
	if !enabled {
		m.Interrupt()
	}
}

// Enabled reports whether voice output is on.
func (m *Mouth) Enabled() bool { return m.enabled.Load() }

// Speak replaces any pending or playing utterance with text. Non-blocking;
// synthesis and playback failures surface in the log, not here.
func (m *Mouth) Speak(ctx context.Context, text string) (bool, error) {
	if !m.Enabled() {
		return false, nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return false, fmt.Errorf("speak: empty text")
	}

	m.mu.Lock()
	m.generation++
	m.pending = &SpeechRequest{Text: text, QueuedAt: time.Now()}
	wasSpeaking := m.speaking
	m.mu.Unlock()

	if wasSpeaking {
		m.out.Stop()
	}
	m.log.Debug("mouth: queued: %s", truncate(text, 60))

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return true, nil
}

// Interrupt stops playback and drops anything queued.
func (m *Mouth) Interrupt() {
	m.mu.Lock()
	m.generation++
	m.pending = nil
	m.mu.Unlock()

	m.out.Stop()
	m.log.Debug("mouth: interrupted")
}

// IsSpeaking reports whether an utterance is being synthesized or played.
func (m *Mouth) IsSpeaking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speaking
}

// LastSpoken returns the most recent utterance that played to the end.
func (m *Mouth) LastSpoken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSpoken
}

// SpokenCount is the number of utterances played to the end.
func (m *Mouth) SpokenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spokenCount
}

// Cache returns the clip cache.
func (m *Mouth) Cache() *ClipCache { return m.cache }

// Run sweeps stale clips, then processes utterances until ctx is
// cancelled.
func (m *Mouth) Run(ctx context.Context) error {
	if n, err := m.cache.Sweep(time.Now()); err != nil {
		m.log.Warn("clips: sweep: %v", err)
	} else if n > 0 {
		m.log.Info("clips: removed %d stale recipe clips", n)
	}
	m.log.Info("mouth started (voice=%s)", m.tts.Voice())
	defer m.log.Info("mouth stopped")
	for {
		select {
		case <-ctx.Done():
			m.out.Stop()
			return nil
		case <-m.notify:
			m.drain(ctx)
		}
	}
}

func (m *Mouth) drain(ctx context.Context) {
	for ctx.Err() == nil {
		m.mu.Lock()
		req := m.pending
		m.pending = nil
		gen := m.generation
		if req != nil {
			m.speaking = true
		}
		m.mu.Unlock()
		if req == nil {
			return
		}

		done := m.process(ctx, *req, gen)

		m.mu.Lock()
		m.speaking = false
		if done {
			m.lastSpoken = req.Text
			m.spokenCount++
		}
		m.mu.Unlock()
	}
}

func (m *Mouth) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation == gen
}

// process synthesizes and plays one request. Reports whether every chunk
// played without being superseded.
func (m *Mouth) process(ctx context.Context, req SpeechRequest, gen uint64) bool {
	m.log.Debug("mouth: speaking (waited=%s): %s", time.Since(req.QueuedAt).Round(time.Millisecond), truncate(req.Text, 60))

	chunks := m.splitChunks(req.Text)
	audio := make([][]byte, len(chunks))
	if len(chunks) == 1 {
		a, err := m.synthesizeWithCache(ctx, chunks[0])
		if err != nil {
			m.fail("synthesis", err)
			return false
		}
		audio[0] = a
	} else {
		type result struct {
			idx   int
			audio []byte
			err   error
		}
		results := make(chan result, len(chunks))
		for i, chunk := range chunks {
			go func(idx int, text string) {
				a, err := m.synthesizeWithCache(ctx, text)
				results <- result{idx: idx, audio: a, err: err}
			}(i, chunk)
		}
		for range chunks {
			r := <-results
			if r.err != nil {
				m.log.Error("mouth: chunk %d synthesis failed: %v", r.idx, r.err)
				continue
			}
			audio[r.idx] = r.audio
		}
	}

	complete := true
	for i, a := range audio {
		if ctx.Err() != nil || !m.current(gen) {
			return false
		}
		if a == nil {
			complete = false
			continue
		}
		if err := m.out.Play(ctx, a); err != nil {
			if ctx.Err() != nil {
				return false
			}
			m.log.Error("mouth: chunk %d playback failed: %v", i, err)
			metrics.IncDelivery(metrics.ChannelVoice, metrics.ResultFailed)
			complete = false
		}
	}
	return complete && m.current(gen)
}

func (m *Mouth) fail(stage string, err error) {
	m.log.Error("mouth: %s failed: %v", stage, err)
	metrics.IncDelivery(metrics.ChannelVoice, metrics.ResultFailed)
}

func (m *Mouth) synthesizeWithCache(ctx context.Context, text string) ([]byte, error) {
	if audio, ok := m.cache.Get(text); ok {
		return audio, nil
	}
	audio, err := m.tts.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	m.cache.Put(text, audio)
	return audio, nil
}

// Warm pins clips for fixed lines such as pause, resume and the time
// warnings. Non-blocking.
func (m *Mouth) Warm(ctx context.Context, lines ...string) {
	m.fetch(ctx, lines, m.cache.IsPinned, m.cache.Pin)
}

// Prefetch caches clips for the selected food's messages so the first
// alert plays without a synthesis delay. Non-blocking.
func (m *Mouth) Prefetch(ctx context.Context, texts ...string) {
	m.fetch(ctx, texts, m.cache.Has, m.cache.Put)
}

func (m *Mouth) fetch(ctx context.Context, texts []string, have func(string) bool, store func(string, []byte)) {
	for _, text := range texts {
		for _, chunk := range m.splitChunks(strings.TrimSpace(text)) {
			if chunk == "" || have(chunk) {
				continue
			}
			go func(t string) {
				clip, err := m.tts.Synthesize(ctx, t)
				if err != nil {
					m.log.Error("prefetch: synthesis failed: %v", err)
					return
				}
				store(t, clip)
				m.log.Debug("prefetch: cached %d bytes for: %s", len(clip), truncate(t, 50))
			}(chunk)
		}
	}
}

// ── Chunking ─────────────────────────────────────────────────────

// splitChunks breaks text into sentence-boundary chunks of roughly
// m.chunkSize characters.
func (m *Mouth) splitChunks(text string) []string {
	if m.chunkSize <= 0 || len(text) <= m.chunkSize {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	for _, s := range splitSentences(text) {
		if current.Len() > 0 && current.Len()+len(s) > m.chunkSize {
			if c := strings.TrimSpace(current.String()); c != "" {
				chunks = append(chunks, c)
			}
			current.Reset()
		}
		current.WriteString(s)
	}
	if c := strings.TrimSpace(current.String()); c != "" {
		chunks = append(chunks, c)
	}
	return chunks
}

// splitSentences splits at . ! ? keeping punctuation and trailing space
// with the preceding sentence.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])
		if isSentenceEnd(runes[i]) {
			for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				i++
				current.WriteRune(runes[i])
			}
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
