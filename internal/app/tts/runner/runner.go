// Package runner drains the TTS priority queue: one request at a time is
// synthesized through the dispatcher, announced to overlays and played.
package runner

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/app/events"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/app/tts/playback"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
	ttsusecase "github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/dispatcher"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/engine"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/queue"
)

var ErrClosed = errors.New("runner: closed")

const (
	// defaultItemDuration seeds wait estimates before anything was played.
	defaultItemDuration = 3 * time.Second
	durationSamples     = 20

	StateIdle     = "idle"
	StateSpeaking = "speaking"
	StateError    = "error"
	StateStopped  = "stopped"
)

type Speaker interface {
	Speak(ctx context.Context, req dispatcher.Request) (*dispatcher.Result, error)
}

type Player interface {
	Play(ctx context.Context, clip playback.Clip) error
}

type Config struct {
	Speaker   Speaker
	Player    Player
	Publisher domain.TTSEventPublisher
	Bus       *events.Bus
	// Registry is optional; it supplies voice labels for events.
	Registry  *engine.Registry
	QueueSize int
	Logger    *log.Logger
}

type Runner struct {
	cfg    Config
	logger *log.Logger
	now    func() time.Time

	mu     sync.Mutex
	cond   *sync.Cond
	wg     sync.WaitGroup
	closed bool
	done   chan struct{}
	once   sync.Once

	queue         *queue.Queue
	opts          ttsusecase.QueueOptions
	current       *queue.Item
	cancelCurrent context.CancelFunc
	skipped       string

	state     string
	lastError string
	durations []time.Duration
}

var _ ttsusecase.Queue = (*Runner)(nil)

func New(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	r := &Runner{
		cfg:    cfg,
		logger: logger.WithPrefix("tts runner"),
		now:    time.Now,
		queue:  queue.New(cfg.QueueSize),
		state:  StateIdle,
		done:   make(chan struct{}),
	}
	r.opts.MaxSize = r.queue.MaxSize()
	r.cond = sync.NewCond(&r.mu)
	return r
}

func (r *Runner) Start(ctx context.Context) {
	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		select {
		case <-ctx.Done():
		case <-r.done:
			return
		}
		r.mu.Lock()
		r.closed = true
		if r.cancelCurrent != nil {
			r.cancelCurrent()
		}
		r.mu.Unlock()
		r.cond.Broadcast()
	}()
	go func() {
		defer r.wg.Done()
		r.run(ctx)
	}()
	r.publishStatus()
}

func (r *Runner) run(ctx context.Context) {
	for {
		item, ok := r.next()
		if !ok {
			return
		}
		r.handle(ctx, item)
	}
}

func (r *Runner) next() (queue.Item, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		if r.closed {
			return queue.Item{}, false
		}
		if item, ok := r.queue.Pop(); ok {
			return item, true
		}
		r.setStateLocked(StateIdle, "")
		r.cond.Wait()
	}
}

func (r *Runner) handle(ctx context.Context, item queue.Item) {
	req := item.Request
	childCtx, cancel := context.WithCancel(ctx)
	r.setCurrent(&item, cancel)
	defer r.clearCurrent(cancel)

	started := r.now()
	res, err := r.cfg.Speaker.Speak(childCtx, dispatcher.Request{
		Text:             req.Text,
		EngineID:         req.EngineID,
		AssignedEngineID: req.AssignedEngineID,
		VoiceID:          req.VoiceID,
		LanguageHint:     req.LanguageHint,
		Speed:            req.Speed,
	})
	if err != nil {
		r.fail(ctx, req, err)
		return
	}

	ev := domain.TTSEvent{
		ID:          req.ID,
		Voice:       res.VoiceID,
		VoiceLabel:  r.voiceLabel(res.EngineID, res.VoiceID),
		Engine:      res.EngineID,
		Fallback:    res.FallbackUsed,
		Text:        req.Text,
		RequestedBy: req.RequesterName,
		Platform:    req.Platform,
		ChannelID:   req.ChannelID,
		Volume:      req.Volume,
		Speed:       req.Speed,
		Timestamp:   r.now(),
		AudioBase64: base64.StdEncoding.EncodeToString(res.Audio.Data),
	}
	if r.cfg.Publisher != nil {
		if err := r.cfg.Publisher.PublishTTSEvent(ctx, ev); err != nil {
			r.logger.Warn("publish ready event", "id", req.ID, "err", err)
		}
	}

	opts := r.options()
	r.publish(events.TopicTTSStarted, events.NewTTSPlaybackDTO(ev, opts.DuckOtherAudio, opts.DuckVolume, 0))
	clip := playback.Clip{ID: req.ID, Text: req.Text, Audio: res.Audio, Volume: req.Volume}
	if r.cfg.Player != nil {
		if err := r.cfg.Player.Play(childCtx, clip); err != nil {
			r.fail(ctx, req, err)
			return
		}
	}

	elapsed := r.now().Sub(started)
	r.recordDuration(elapsed)
	r.publish(events.TopicTTSEnded, events.NewTTSPlaybackDTO(ev, opts.DuckOtherAudio, opts.DuckVolume, elapsed.Milliseconds()))
	r.logger.Info("spoken", "id", req.ID, "user", req.RequesterName, "engine", res.EngineID, "voice", res.VoiceID, "fallback", res.FallbackUsed, "took", elapsed)
}

// fail reports err unless the item was skipped or the runner is stopping.
func (r *Runner) fail(ctx context.Context, req domain.SynthesisRequest, err error) {
	if ctx.Err() != nil || r.abandoned(req.ID) {
		return
	}
	dto := events.TTSErrorDTO{
		ID:          req.ID,
		Text:        req.Text,
		RequestedBy: req.RequesterName,
		Error:       err.Error(),
		At:          r.now().UTC().Format(time.RFC3339Nano),
	}
	var agg *dispatcher.AggregateError
	if errors.As(err, &agg) {
		for _, k := range agg.Kinds() {
			dto.Kinds = append(dto.Kinds, string(k))
		}
		dto.Recommendation = agg.Recommendation
	}
	r.logger.Error("request failed", "id", req.ID, "user", req.RequesterName, "err", err)

	r.mu.Lock()
	r.setStateLocked(StateError, err.Error())
	r.mu.Unlock()
	r.publish(events.TopicTTSError, dto)
}

func (r *Runner) voiceLabel(engineID, voiceID string) string {
	if r.cfg.Registry == nil {
		return voiceID
	}
	e, ok := r.cfg.Registry.Get(engineID)
	if !ok {
		return voiceID
	}
	for _, v := range e.Voices() {
		if v.ID == voiceID && v.Label != "" {
			return v.Label
		}
	}
	return voiceID
}

func (r *Runner) setCurrent(item *queue.Item, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = item
	r.cancelCurrent = cancel
	r.skipped = ""
	r.setStateLocked(StateSpeaking, "")
}

func (r *Runner) clearCurrent(cancel context.CancelFunc) {
	cancel()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = nil
	r.cancelCurrent = nil
	if r.state == StateSpeaking {
		r.setStateLocked(StateIdle, "")
	}
}

// abandoned reports whether id was skipped or the runner closed under it.
func (r *Runner) abandoned(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed || (r.skipped != "" && r.skipped == id)
}

func (r *Runner) options() ttsusecase.QueueOptions {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opts
}

func (r *Runner) recordDuration(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations = append(r.durations, d)
	if len(r.durations) > durationSamples {
		r.durations = r.durations[len(r.durations)-durationSamples:]
	}
}

func (r *Runner) avgDurationLocked() time.Duration {
	if len(r.durations) == 0 {
		return defaultItemDuration
	}
	var sum time.Duration
	for _, d := range r.durations {
		sum += d
	}
	return sum / time.Duration(len(r.durations))
}

// Enqueue adds req and reports its position among pending requests and the
// expected wait.
func (r *Runner) Enqueue(_ context.Context, req domain.SynthesisRequest, priority int) (domain.QueueItem, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return domain.QueueItem{}, ErrClosed
	}
	now := r.now()
	pos, err := r.queue.Push(req, priority, now)
	if err != nil {
		r.mu.Unlock()
		return domain.QueueItem{}, err
	}
	item := toQueueItem(queue.Item{Request: req, Priority: priority, EnqueuedAt: now}, pos, r.avgDurationLocked())
	r.publishStatusLocked()
	r.mu.Unlock()

	r.cond.Signal()
	r.publish(events.TopicTTSEnqueued, item)
	return item, nil
}

// Clear drops pending requests. The request being spoken is left alone.
func (r *Runner) Clear(context.Context) int {
	r.mu.Lock()
	n := r.queue.Clear()
	r.publishStatusLocked()
	r.mu.Unlock()

	r.publish(events.TopicTTSCleared, events.NewTTSClearedDTO(n))
	r.logger.Info("queue cleared", "removed", n)
	return n
}

// Skip aborts the current request. It reports false when nothing is playing.
func (r *Runner) Skip(context.Context) bool {
	r.mu.Lock()
	if r.current == nil || r.cancelCurrent == nil {
		r.mu.Unlock()
		return false
	}
	req := r.current.Request
	r.skipped = req.ID
	r.cancelCurrent()
	r.mu.Unlock()

	r.publish(events.TopicTTSSkipped, events.NewTTSSkippedDTO(req.ID, req.RequesterName))
	r.logger.Info("skipped", "id", req.ID, "user", req.RequesterName)
	return true
}

func (r *Runner) Configure(opts ttsusecase.QueueOptions) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue.SetMaxSize(opts.MaxSize)
	opts.MaxSize = r.queue.MaxSize()
	r.opts = opts
}

func (r *Runner) QueueStatus() ttsusecase.QueueStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	avg := r.avgDurationLocked()
	st := ttsusecase.QueueStatus{
		State:         r.state,
		Length:        r.queue.Len(),
		MaxSize:       r.queue.MaxSize(),
		AvgDurationMs: avg.Milliseconds(),
		LastError:     r.lastError,
		Pending:       []domain.QueueItem{},
	}
	if r.current != nil {
		cur := toQueueItem(*r.current, 0, 0)
		st.Current = &cur
	}
	for i, it := range r.queue.Snapshot() {
		st.Pending = append(st.Pending, toQueueItem(it, i+1, avg))
	}
	return st
}

func (r *Runner) Close() error {
	r.mu.Lock()
	r.closed = true
	if r.cancelCurrent != nil {
		r.cancelCurrent()
	}
	r.queue.Clear()
	r.setStateLocked(StateStopped, "")
	r.cond.Broadcast()
	r.mu.Unlock()

	r.once.Do(func() { close(r.done) })
	r.wg.Wait()
	return nil
}

func toQueueItem(it queue.Item, position int, avg time.Duration) domain.QueueItem {
	return domain.QueueItem{
		Request:         it.Request,
		ID:              it.Request.ID,
		Text:            it.Request.Text,
		Username:        it.Request.RequesterName,
		Source:          it.Request.Source,
		Priority:        it.Priority,
		EnqueuedAt:      it.EnqueuedAt,
		Position:        position,
		EstimatedWaitMs: int64(position) * avg.Milliseconds(),
	}
}

func (r *Runner) setStateLocked(state, lastError string) {
	if strings.TrimSpace(state) == "" {
		state = StateIdle
	}
	r.state = state
	if lastError != "" {
		r.lastError = lastError
	}
	r.publishStatusLocked()
}

func (r *Runner) publishStatusLocked() {
	currentID := ""
	if r.current != nil {
		currentID = r.current.Request.ID
	}
	r.publish(events.TopicTTSStatus, events.NewTTSStatusDTO(r.state, r.queue.Len(), currentID, r.lastError))
}

func (r *Runner) publishStatus() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishStatusLocked()
}

func (r *Runner) publish(topic string, payload any) {
	if r.cfg.Bus != nil {
		r.cfg.Bus.Publish(topic, payload)
	}
}
