package playback

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hajimehoshi/oto/v2"
)

const DefaultSampleRate = 44100

// Local plays clips on the machine's default output device. oto allows a
// single context per process, so clips are resampled to one output rate.
type Local struct {
	rate   int
	logger *log.Logger

	playMu sync.Mutex

	initOnce sync.Once
	otoCtx   *oto.Context
	initErr  error
}

func NewLocal(sampleRate int, logger *log.Logger) *Local {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Local{rate: sampleRate, logger: logger.WithPrefix("playback")}
}

func (l *Local) device() (*oto.Context, error) {
	l.initOnce.Do(func() {
		otoCtx, ready, err := oto.NewContext(l.rate, 2, 2)
		if err != nil {
			l.initErr = fmt.Errorf("playback: oto context: %w", err)
			return
		}
		<-ready
		l.otoCtx = otoCtx
	})
	return l.otoCtx, l.initErr
}

// Play blocks until the clip finished or ctx is done.
func (l *Local) Play(ctx context.Context, clip Clip) error {
	if clip.empty() {
		return ErrEmptyClip
	}
	pcm, rate, err := decode(clip.Audio.Data)
	if err != nil {
		return err
	}
	pcm = resample(pcm, rate, l.rate)

	otoCtx, err := l.device()
	if err != nil {
		return err
	}

	l.playMu.Lock()
	defer l.playMu.Unlock()

	player := otoCtx.NewPlayer(bytes.NewReader(pcm))
	defer player.Close()
	player.SetVolume(clip.Volume)
	player.Play()
	l.logger.Debug("playing", "id", clip.ID, "rate", rate)

	ticker := time.NewTicker(15 * time.Millisecond)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
