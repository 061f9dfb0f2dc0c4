// Package dispatcher turns a speech request into audio, walking the fallback
// chain of engines until one succeeds.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/engine"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/langdetect"
)

type PerformanceMode string

const (
	ModeFast     PerformanceMode = "fast"
	ModeBalanced PerformanceMode = "balanced"
	ModeQuality  PerformanceMode = "quality"
)

func (m PerformanceMode) Timeout() time.Duration {
	switch m {
	case ModeFast:
		return 5 * time.Second
	case ModeQuality:
		return 20 * time.Second
	default:
		return 10 * time.Second
	}
}

func ParsePerformanceMode(s string) (PerformanceMode, error) {
	switch m := PerformanceMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeFast, ModeBalanced, ModeQuality:
		return m, nil
	case "":
		return ModeBalanced, nil
	}
	return "", fmt.Errorf("dispatcher: unknown performance mode %q", s)
}

const (
	DefaultRetries      = 1
	defaultRetryBackoff = 500 * time.Millisecond
)

var ErrNoEngine = errors.New("dispatcher: no engine registered for request")

// LanguageDetector is satisfied by *langdetect.Detector.
type LanguageDetector interface {
	Detect(text string) langdetect.Result
}

type Config struct {
	Registry      *engine.Registry
	Detector      LanguageDetector
	Chains        Chains
	DefaultEngine string
	Mode          PerformanceMode
	// Timeout overrides the per-call timeout of Mode when set.
	Timeout time.Duration
	// Retries is the number of extra calls per engine for retriable failures.
	Retries      int
	RetryBackoff time.Duration
	Logger       *log.Logger
}

type Request struct {
	Text string
	// EngineID overrides every other engine choice when set.
	EngineID         string
	AssignedEngineID string
	VoiceID          string
	LanguageHint     string
	Speed            float64
}

type Result struct {
	Audio        *engine.Audio
	EngineID     string
	VoiceID      string
	FallbackUsed bool
	Attempts     []AttemptRecord
}

type Dispatcher struct {
	registry *engine.Registry
	detector LanguageDetector
	logger   *log.Logger
	backoff  time.Duration
	timeout  time.Duration
	now      func() time.Time

	mu            sync.RWMutex
	chains        Chains
	defaultEngine string
	mode          PerformanceMode
	retries       int
}

func New(cfg Config) *Dispatcher {
	if cfg.Chains == nil {
		cfg.Chains = DefaultChains()
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeBalanced
	}
	if cfg.DefaultEngine == "" {
		cfg.DefaultEngine = CredentialFreeEngine
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	if cfg.Registry == nil {
		cfg.Registry = engine.NewRegistry()
	}
	if cfg.Detector == nil {
		cfg.Detector = langdetect.New(0)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{
		registry:      cfg.Registry,
		detector:      cfg.Detector,
		logger:        logger.WithPrefix("dispatcher"),
		backoff:       cfg.RetryBackoff,
		timeout:       cfg.Timeout,
		now:           time.Now,
		chains:        cfg.Chains.Normalize(),
		defaultEngine: cfg.DefaultEngine,
		mode:          cfg.Mode,
		retries:       cfg.Retries,
	}
}

func (d *Dispatcher) SetDefaultEngine(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id != "" {
		d.defaultEngine = id
	}
}

func (d *Dispatcher) SetPerformanceMode(m PerformanceMode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mode = m
}

func (d *Dispatcher) SetChains(c Chains) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.chains = c.Normalize()
}

func (d *Dispatcher) Chains() Chains {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(Chains, len(d.chains))
	for k, v := range d.chains {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// PrimaryEngine resolves the first engine for req: override, then the user's
// assigned engine, then the configured default. Unknown ids are skipped.
func (d *Dispatcher) PrimaryEngine(req Request) string {
	d.mu.RLock()
	def := d.defaultEngine
	d.mu.RUnlock()
	for _, id := range []string{req.EngineID, req.AssignedEngineID, def} {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := d.registry.Get(id); ok {
			return id
		}
		d.logger.Warn("unknown engine requested", "engine", id)
	}
	return ""
}

// Speak synthesizes req. When every engine fails it returns an *AggregateError
// holding one record per engine in chain order.
func (d *Dispatcher) Speak(ctx context.Context, req Request) (*Result, error) {
	primary := d.PrimaryEngine(req)
	if primary == "" {
		return nil, ErrNoEngine
	}

	d.mu.RLock()
	order := append([]string{primary}, d.chains.For(primary)...)
	timeout := d.mode.Timeout()
	if d.timeout > 0 {
		timeout = d.timeout
	}
	retries := d.retries
	d.mu.RUnlock()

	lang := req.LanguageHint
	if lang == "" {
		lang = d.detector.Detect(req.Text).Lang
	}

	var attempts []AttemptRecord

	for i, id := range order {
		rec := AttemptRecord{EngineID: id, Timestamp: d.now()}
		e, ok := d.registry.Get(id)
		if !ok || !e.Available() {
			rec.Outcome = OutcomeSkipped
			rec.ErrorMessage = engine.ErrUnavailable.Error()
			attempts = append(attempts, rec)
			d.logger.Debug("engine unavailable", "engine", id)
			continue
		}

		voice := resolveVoice(e, req.VoiceID, lang)
		rec.VoiceID = voice

		start := d.now()
		audio, err := d.callWithRetry(ctx, e, req, voice, lang, timeout, retries)
		rec.Duration = d.now().Sub(start)
		if err == nil {
			rec.Outcome = OutcomeSucceeded
			attempts = append(attempts, rec)
			if i > 0 {
				d.logger.Info("fallback engine used", "primary", primary, "engine", id, "voice", voice)
			}
			return &Result{
				Audio:        audio,
				EngineID:     id,
				VoiceID:      voice,
				FallbackUsed: i > 0,
				Attempts:     attempts,
			}, nil
		}

		rec.Outcome = OutcomeFailed
		rec.ErrorKind = engine.Classify(err)
		rec.ErrorMessage = err.Error()
		attempts = append(attempts, rec)

		if ctx.Err() != nil {
			// skipped or shutting down, do not burn the rest of the chain
			return nil, fmt.Errorf("dispatcher: %w", ctx.Err())
		}
		d.logger.Warn("engine failed", "engine", id, "kind", rec.ErrorKind, "err", err)
	}

	agg := newAggregateError(primary, attempts)
	d.logger.Error("all engines failed", "primary", primary, "kinds", agg.Kinds(), "recommendation", agg.Recommendation)
	return nil, agg
}

func (d *Dispatcher) callWithRetry(ctx context.Context, e engine.Engine, req Request, voice, lang string, timeout time.Duration, retries int) (*engine.Audio, error) {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * d.backoff
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			d.logger.Debug("retrying engine", "engine", e.ID(), "attempt", attempt)
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		audio, err := e.Synthesize(callCtx, req.Text, voice, engine.SynthesisOptions{Speed: req.Speed, Lang: lang})
		cancel()
		if err == nil && (audio == nil || len(audio.Data) == 0) {
			err = engine.ErrEmptyAudio
		}
		if err == nil {
			return audio, nil
		}
		lastErr = err
		if ctx.Err() != nil || !engine.Classify(err).Retriable() {
			break
		}
	}
	return nil, lastErr
}

// resolveVoice keeps voiceID if the engine knows it, otherwise picks the
// engine's voice for the text language, otherwise the engine default.
func resolveVoice(e engine.Engine, voiceID, lang string) string {
	if voiceID != "" && e.HasVoice(voiceID) {
		return voiceID
	}
	if v := e.DefaultVoiceForLanguage(lang); v != "" {
		return v
	}
	return e.DefaultVoice()
}
