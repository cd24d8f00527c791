package speech

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/ottofry/internal/logger"
)

// OtoOut is the AudioOut for the system sound device. Only one clip
// plays at a time; the Mouth serialises calls to Play.
type OtoOut struct {
	dev    *oto.Context
	format wavFormat
	log    *logger.Logger

	mu     sync.Mutex
	active *oto.Player
}

// NewOtoOut opens the sound device for DefaultAudioFormat clips.
func NewOtoOut(log *logger.Logger) (*OtoOut, error) {
	dev, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   deviceFormat.SampleRate,
		ChannelCount: deviceFormat.Channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("opening sound device: %w", err)
	}
	<-ready

	log.Debug("sound device ready (%s)", deviceFormat)
	return &OtoOut{dev: dev, format: deviceFormat, log: log}, nil
}

// Play blocks until the clip ends, Stop is called or ctx is done. A clip
// in another sample layout is refused rather than played at the wrong
// speed.
func (o *OtoOut) Play(ctx context.Context, clip []byte) error {
	pcm, f, err := decodeWAV(clip)
	if err != nil {
		return err
	}
	if f != o.format {
		return fmt.Errorf("%w: clip is %s, device is %s", ErrFormatMismatch, f, o.format)
	}

	p := o.dev.NewPlayer(bytes.NewReader(pcm))
	o.mu.Lock()
	o.active = p
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.active = nil
		o.mu.Unlock()
	}()

	p.Play()
	poll := time.NewTicker(10 * time.Millisecond)
	defer poll.Stop()
	for p.IsPlaying() {
		select {
		case <-ctx.Done():
			p.Pause()
			_ = p.Close()
			return ctx.Err()
		case <-poll.C:
		}
	}
	return p.Close()
}

// Stop cuts off the clip that is playing, if any.
func (o *OtoOut) Stop() {
	o.mu.Lock()
	p := o.active
	o.mu.Unlock()
	if p != nil {
		p.Pause()
		o.log.Debug("sound device: clip cut off")
	}
}
