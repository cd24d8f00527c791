package speech

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hammamikhairi/ottofry/internal/logger"
)

func testLog() *logger.Logger { return logger.New(logger.LevelOff, nil) }

// fakeWAV builds a clip in the device format carrying pcm.
func fakeWAV(pcm []byte) []byte { return wavIn(deviceFormat, pcm) }

func wavIn(f wavFormat, pcm []byte) []byte {
	le := binary.LittleEndian
	buf := make([]byte, 0, 44+len(pcm))
	buf = append(buf, "RIFF"...)
	buf = le.AppendUint32(buf, uint32(36+len(pcm)))
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = le.AppendUint32(buf, 16)
	buf = le.AppendUint16(buf, pcmTag)
	buf = le.AppendUint16(buf, uint16(f.Channels))
	buf = le.AppendUint32(buf, uint32(f.SampleRate))
	buf = le.AppendUint32(buf, uint32(f.SampleRate*f.Channels*f.BitDepth/8))
	buf = le.AppendUint16(buf, uint16(f.Channels*f.BitDepth/8))
	buf = le.AppendUint16(buf, uint16(f.BitDepth))
	buf = append(buf, "data"...)
	buf = le.AppendUint32(buf, uint32(len(pcm)))
	return append(buf, pcm...)
}

type fakeTTS struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeTTS) Voice() string { return "test-voice" }

func (f *fakeTTS) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	if f.err != nil {
		return nil, f.err
	}
	return fakeWAV([]byte(text)), nil
}

func (f *fakeTTS) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeOut records what was played. When block is set, Play waits until
// Stop or ctx cancellation.
type fakeOut struct {
	mu      sync.Mutex
	played  []string
	stops   int
	block   bool
	stopped chan struct{}
	started chan string
}

func newFakeOut(block bool) *fakeOut {
	return &fakeOut{block: block, stopped: make(chan struct{}, 8), started: make(chan string, 8)}
}

func (o *fakeOut) Play(ctx context.Context, wav []byte) error {
	pcm, _, err := decodeWAV(wav)
	if err != nil {
		return err
	}
	o.started <- string(pcm)
	if o.block {
		select {
		case <-o.stopped:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
	o.mu.Lock()
	o.played = append(o.played, string(pcm))
	o.mu.Unlock()
	return nil
}

func (o *fakeOut) Stop() {
	o.mu.Lock()
	o.stops++
	o.mu.Unlock()
	select {
	case o.stopped <- struct{}{}:
	default:
	}
}

func (o *fakeOut) Played() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.played...)
}

func runMouth(t *testing.T, m *Mouth) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = m.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestNoOp(t *testing.T) {
	n := NewNoOp(testLog())
	ok, err := n.Speak(context.Background(), "Flip the wings")
	require.NoError(t, err)
	assert.True(t, ok)

	n.SetEnabled(false)
	assert.False(t, n.Enabled())
	ok, err = n.Speak(context.Background(), "Flip the wings")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecodeWAV(t *testing.T) {
	pcm, f, err := decodeWAV(fakeWAV([]byte{1, 2, 3, 4}))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, pcm)
	assert.Equal(t, deviceFormat, f)

	mono8k := wavFormat{SampleRate: 8000, Channels: 1, BitDepth: 16}
	_, f, err = decodeWAV(wavIn(mono8k, []byte{1, 2}))
	require.NoError(t, err)
	assert.Equal(t, mono8k, f)
	assert.NotEqual(t, deviceFormat, f)

	_, _, err = decodeWAV([]byte("short"))
	assert.Error(t, err)

	bad := fakeWAV([]byte{1, 2})
	copy(bad[8:12], "AVI ")
	_, _, err = decodeWAV(bad)
	assert.Error(t, err)

	mp3 := fakeWAV([]byte{1, 2})
	binary.LittleEndian.PutUint16(mp3[20:], 85)
	_, _, err = decodeWAV(mp3)
	assert.ErrorContains(t, err, "unsupported encoding")
}

func TestSplitChunks(t *testing.T) {
	m := NewMouth(&fakeTTS{}, newFakeOut(false), testLog(), WithChunkSize(20))

	assert.Equal(t, []string{"Short."}, m.splitChunks("Short."))
	assert.Equal(t,
		[]string{"Flip the wings now.", "Then close the basket.", "Done"},
		m.splitChunks("Flip the wings now. Then close the basket. Done"),
	)
}

func TestClipCacheDiskRoundTrip(t *testing.T) {
	root := filepath.Join(t.TempDir(), "audio")
	c := NewClipCache("en-US-AvaNeural", ClipConfig{Dir: root, Persist: true}, testLog())

	_, ok := c.Get("Timer paused")
	assert.False(t, ok)

	c.Pin("Timer paused", []byte("paused"))
	c.Put("Flip the wings", []byte("flip"))

	entries, err := os.ReadDir(filepath.Join(root, "en-US-AvaNeural"))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.Len(t, names, 2)
	assert.True(t, strings.HasPrefix(names[0], fixedPrefix) || strings.HasPrefix(names[1], fixedPrefix))

	fresh := NewClipCache("en-US-AvaNeural", ClipConfig{Dir: root}, testLog())
	assert.True(t, fresh.IsPinned("Timer paused"))
	assert.False(t, fresh.IsPinned("Flip the wings"))
	got, ok := fresh.Get("Flip  the wings ")
	require.True(t, ok)
	assert.Equal(t, []byte("flip"), got)

	otherVoice := NewClipCache("en-GB-SoniaNeural", ClipConfig{Dir: root}, testLog())
	assert.False(t, otherVoice.Has("Timer paused"))

	hits, misses := fresh.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Zero(t, misses)
}

func TestClipCacheReadOnlyDisk(t *testing.T) {
	root := t.TempDir()
	c := NewClipCache("ava", ClipConfig{Dir: root}, testLog())
	c.Put("Timer resumed", []byte("wav"))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.True(t, c.Has("Timer resumed"))
}

func TestClipCacheBoundsRecipeLines(t *testing.T) {
	c := NewClipCache("ava", ClipConfig{Limit: 2}, testLog())
	for _, line := range alertLines {
		c.Pin(line, []byte(line))
	}
	c.Put("Flip the wings", []byte("1"))
	c.Put("Shake the basket", []byte("2"))
	c.Put("Check the salmon", []byte("3"))

	assert.Equal(t, len(alertLines)+2, c.Len())
	assert.False(t, c.Has("Flip the wings"))
	assert.True(t, c.Has("Check the salmon"))
	for _, line := range alertLines {
		assert.True(t, c.IsPinned(line), line)
	}

	// Putting a pinned line refreshes it without demoting it.
	c.Put("Timer paused", []byte("new"))
	got, ok := c.Get("Timer paused")
	require.True(t, ok)
	assert.Equal(t, []byte("new"), got)
	assert.True(t, c.IsPinned("Timer paused"))
}

func TestClipCacheSweepKeepsPinned(t *testing.T) {
	root := t.TempDir()
	c := NewClipCache("ava", ClipConfig{Dir: root, Persist: true, MaxAge: time.Hour}, testLog())
	c.Pin("Timer paused", []byte("paused"))
	c.Put("Flip the wings", []byte("flip"))
	c.Put("Shake the basket", []byte("shake"))

	dir := filepath.Join(root, "ava")
	old := time.Now().Add(-2 * time.Hour)
	for _, name := range []string{fixedPrefix + clipKey("Timer paused"), clipKey("Flip the wings")} {
		require.NoError(t, os.Chtimes(filepath.Join(dir, name+clipExt), old, old))
	}

	removed, err := c.Sweep(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	fresh := NewClipCache("ava", ClipConfig{Dir: root}, testLog())
	assert.True(t, fresh.IsPinned("Timer paused"))
	assert.False(t, fresh.Has("Flip the wings"))
	assert.True(t, fresh.Has("Shake the basket"))

	memOnly := NewClipCache("ava", ClipConfig{MaxAge: time.Hour}, testLog())
	removed, err = memOnly.Sweep(time.Now())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

var alertLines = []string{"Timer paused", "Timer resumed", "5 minutes remaining"}

func TestMouthSpeaksAndCaches(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	tts := &fakeTTS{}
	out := newFakeOut(false)
	m := NewMouth(tts, out, testLog())
	runMouth(t, m)

	ok, err := m.Speak(context.Background(), "Timer paused")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Eventually(t, func() bool { return m.SpokenCount() == 1 }, time.Second, 5*time.Millisecond)

	_, _ = m.Speak(context.Background(), "Timer paused")
	assert.Eventually(t, func() bool { return m.SpokenCount() == 2 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"Timer paused", "Timer paused"}, out.Played())
	assert.Equal(t, []string{"Timer paused"}, tts.Calls())
	assert.Equal(t, "Timer paused", m.LastSpoken())
}

func TestMouthLatestWins(t *testing.T) {
	tts := &fakeTTS{}
	out := newFakeOut(true)
	m := NewMouth(tts, out, testLog())
	runMouth(t, m)

	_, _ = m.Speak(context.Background(), "5 minutes remaining")
	assert.Equal(t, "5 minutes remaining", <-out.started)

	_, _ = m.Speak(context.Background(), "Flip the wings")
	assert.Equal(t, "Flip the wings", <-out.started)
	assert.Equal(t, "5 minutes remaining", tts.Calls()[0])
	assert.Zero(t, m.SpokenCount())
}

func TestMouthDisabled(t *testing.T) {
	tts := &fakeTTS{}
	m := NewMouth(tts, newFakeOut(false), testLog())
	m.SetEnabled(false)

	ok, err := m.Speak(context.Background(), "Timer paused")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, tts.Calls())
}

func TestMouthRejectsEmptyText(t *testing.T) {
	m := NewMouth(&fakeTTS{}, newFakeOut(false), testLog())
	ok, err := m.Speak(context.Background(), "   ")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestMouthSynthesisFailureIsLogged(t *testing.T) {
	tts := &fakeTTS{err: errors.New("503")}
	out := newFakeOut(false)
	m := NewMouth(tts, out, testLog())
	runMouth(t, m)

	ok, err := m.Speak(context.Background(), "Timer resumed")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Eventually(t, func() bool { return len(tts.Calls()) == 1 && !m.IsSpeaking() }, time.Second, 5*time.Millisecond)
	assert.Empty(t, out.Played())
}

func TestMouthWarmPinsAndPrefetchDoesNot(t *testing.T) {
	tts := &fakeTTS{}
	m := NewMouth(tts, newFakeOut(false), testLog(), WithCacheDir(""), WithClipLimit(1))

	m.Warm(context.Background(), alertLines...)
	m.Prefetch(context.Background(), "Flip the wings")
	assert.Eventually(t, func() bool {
		return m.Cache().Len() == len(alertLines)+1
	}, time.Second, 5*time.Millisecond)

	for _, line := range alertLines {
		assert.True(t, m.Cache().IsPinned(line), line)
	}
	assert.False(t, m.Cache().IsPinned("Flip the wings"))

	m.Warm(context.Background(), alertLines...)
	assert.Len(t, tts.Calls(), len(alertLines)+1)
}

func TestMouthRunSweepsStaleClips(t *testing.T) {
	root := t.TempDir()
	seed := NewClipCache("test-voice", ClipConfig{Dir: root, Persist: true}, testLog())
	seed.Put("Flip the wings", []byte("flip"))
	old := time.Now().Add(-48 * time.Hour)
	path := filepath.Join(root, "test-voice", clipKey("Flip the wings")+clipExt)
	require.NoError(t, os.Chtimes(path, old, old))

	m := NewMouth(&fakeTTS{}, newFakeOut(false), testLog(), WithCacheDir(root), WithClipMaxAge(24*time.Hour))
	runMouth(t, m)

	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return errors.Is(err, os.ErrNotExist)
	}, time.Second, 5*time.Millisecond)
}

func TestAzureSynthesize(t *testing.T) {
	var gotBody, gotFormat string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotFormat = r.Header.Get("X-Microsoft-OutputFormat")
		_, _ = w.Write(fakeWAV([]byte("ok")))
	}))
	defer srv.Close()

	c, err := NewAzureClient("key", "westeurope", testLog(), WithEndpoint(srv.URL), WithVoice("en-GB-SoniaNeural"))
	require.NoError(t, err)

	wav, err := c.Synthesize(context.Background(), "Salt & Vinegar chips")
	require.NoError(t, err)
	assert.NotEmpty(t, wav)
	assert.Contains(t, gotBody, "Salt &amp; Vinegar")
	assert.Contains(t, gotBody, "en-GB-SoniaNeural")
	assert.Equal(t, DefaultAudioFormat, gotFormat)
}

func TestAzureErrors(t *testing.T) {
	_, err := NewAzureClient("", "", testLog())
	assert.ErrorIs(t, err, ErrMissingCredentials)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := NewAzureClient("key", "westeurope", testLog(), WithEndpoint(srv.URL))
	require.NoError(t, err)
	_, err = c.Synthesize(context.Background(), "hello")
	assert.ErrorContains(t, err, "429")
}
