package playback

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const DefaultAckGrace = 3 * time.Second

// Overlay leaves playback to browser overlays, which receive the audio on
// tts:ready and acknowledge completion with the clip id. A clip counts as done
// once its estimated duration plus Grace passes without an ack.
type Overlay struct {
	grace  time.Duration
	logger *log.Logger

	mu      sync.Mutex
	pending map[string]chan struct{}

	// duration is replaceable in tests.
	duration func(Clip) time.Duration
}

func NewOverlay(grace time.Duration, logger *log.Logger) *Overlay {
	if grace <= 0 {
		grace = DefaultAckGrace
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Overlay{
		grace:    grace,
		logger:   logger.WithPrefix("overlay"),
		pending:  make(map[string]chan struct{}),
		duration: clipDuration,
	}
}

func clipDuration(c Clip) time.Duration {
	if !c.empty() {
		if d, err := Duration(c.Audio.Data); err == nil {
			return d
		}
	}
	return estimateSpoken(c.Text)
}

func (o *Overlay) Play(ctx context.Context, clip Clip) error {
	if clip.empty() {
		return ErrEmptyClip
	}
	done := make(chan struct{})
	o.mu.Lock()
	o.pending[clip.ID] = done
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.pending, clip.ID)
		o.mu.Unlock()
	}()

	timer := time.NewTimer(o.duration(clip) + o.grace)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		o.logger.Warn("no ack from overlay, moving on", "id", clip.ID)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ack marks id as finished. It reports false for unknown or already acked ids.
func (o *Overlay) Ack(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	done, ok := o.pending[id]
	if !ok {
		return false
	}
	delete(o.pending, id)
	close(done)
	return true
}

// Waiting reports whether id is currently awaiting an ack.
func (o *Overlay) Waiting(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.pending[id]
	return ok
}
