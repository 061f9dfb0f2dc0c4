// Package playback turns synthesized audio into sound, either on the local
// speakers or by handing it to browser overlays and waiting for their ack.
package playback

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/hajimehoshi/go-mp3"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/engine"
)

var ErrEmptyClip = errors.New("playback: empty clip")

// Clip is one finished synthesis ready to be played.
type Clip struct {
	ID     string
	Text   string
	Audio  *engine.Audio
	Volume float64
}

func (c Clip) empty() bool {
	return c.Audio == nil || len(c.Audio.Data) == 0
}

// go-mp3 always decodes to 16-bit little endian stereo.
const bytesPerFrame = 4

func decode(data []byte) ([]byte, int, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("playback: mp3 decoder: %w", err)
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, fmt.Errorf("playback: mp3 decode: %w", err)
	}
	return pcm, dec.SampleRate(), nil
}

// Duration reports how long an mp3 payload plays.
func Duration(data []byte) (time.Duration, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("playback: mp3 decoder: %w", err)
	}
	frames := dec.Length() / bytesPerFrame
	if frames <= 0 || dec.SampleRate() <= 0 {
		return 0, errors.New("playback: unknown length")
	}
	return time.Duration(frames) * time.Second / time.Duration(dec.SampleRate()), nil
}

// estimateSpoken guesses speech length from text when the audio can't be
// measured.
func estimateSpoken(text string) time.Duration {
	return time.Second + time.Duration(utf8.RuneCountInString(text))*70*time.Millisecond
}

// resample converts 16-bit stereo pcm between sample rates by linear
// interpolation.
func resample(pcm []byte, from, to int) []byte {
	if from == to || from <= 0 || to <= 0 {
		return pcm
	}
	in := len(pcm) / bytesPerFrame
	if in == 0 {
		return pcm
	}
	outFrames := int(int64(in) * int64(to) / int64(from))
	out := make([]byte, outFrames*bytesPerFrame)
	step := float64(from) / float64(to)
	for i := 0; i < outFrames; i++ {
		pos := float64(i) * step
		j := int(pos)
		frac := pos - float64(j)
		for ch := 0; ch < 2; ch++ {
			a := sample(pcm, j, ch)
			b := a
			if j+1 < in {
				b = sample(pcm, j+1, ch)
			}
			v := int16(float64(a) + (float64(b)-float64(a))*frac)
			off := i*bytesPerFrame + ch*2
			out[off] = byte(v)
			out[off+1] = byte(v >> 8)
		}
	}
	return out
}

func sample(pcm []byte, frame, ch int) int16 {
	off := frame*bytesPerFrame + ch*2
	return int16(uint16(pcm[off]) | uint16(pcm[off+1])<<8)
}
