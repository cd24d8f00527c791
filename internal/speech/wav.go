package speech

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrFormatMismatch is returned when a clip does not match the output
// device's sample layout.
var ErrFormatMismatch = errors.New("clip format mismatch")

// wavFormat is the part of a WAV "fmt " chunk that playback depends on.
type wavFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

func (f wavFormat) String() string {
	return fmt.Sprintf("%d Hz/%d ch/%d bit", f.SampleRate, f.Channels, f.BitDepth)
}

// deviceFormat is what Azure returns for DefaultAudioFormat.
var deviceFormat = wavFormat{SampleRate: SampleRate, Channels: ChannelCount, BitDepth: BitDepth}

const pcmTag = 1

// decodeWAV walks the RIFF chunks of a clip and returns its PCM payload
// and format. Only uncompressed PCM is accepted.
func decodeWAV(data []byte) ([]byte, wavFormat, error) {
	var f wavFormat
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, f, errors.New("not a RIFF/WAVE clip")
	}

	haveFmt := false
	for pos := 12; pos+8 <= len(data); {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		end := min(body+size, len(data))

		switch id {
		case "fmt ":
			if end-body < 16 {
				return nil, f, errors.New("short fmt chunk")
			}
			if tag := binary.LittleEndian.Uint16(data[body:]); tag != pcmTag {
				return nil, f, fmt.Errorf("unsupported encoding %d, want PCM", tag)
			}
			f.Channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			f.SampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			f.BitDepth = int(binary.LittleEndian.Uint16(data[body+14:]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, f, errors.New("data chunk before fmt chunk")
			}
			return data[body:end], f, nil
		}

		// Chunks are word-aligned.
		pos = body + size + size%2
	}
	return nil, f, errors.New("no data chunk")
}
