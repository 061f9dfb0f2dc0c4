// Package tts is the speech pipeline: it validates chat and dashboard
// submissions, applies permission, rate limit and profanity rules, picks a
// voice and hands the request to the playback queue.
package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/dispatcher"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/engine"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/langdetect"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/permission"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/profanity"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/queue"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/ratelimit"
)

// QueueOptions are the settings the playback queue reacts to.
type QueueOptions struct {
	MaxSize        int
	DuckOtherAudio bool
	DuckVolume     int
}

type QueueStatus struct {
	State         string             `json:"state"`
	Current       *domain.QueueItem  `json:"current,omitempty"`
	Pending       []domain.QueueItem `json:"pending"`
	Length        int                `json:"length"`
	MaxSize       int                `json:"max_size"`
	AvgDurationMs int64              `json:"avg_duration_ms"`
	LastError     string             `json:"last_error,omitempty"`
}

// Queue is the playback queue (implemented by the runner).
type Queue interface {
	Enqueue(ctx context.Context, req domain.SynthesisRequest, priority int) (domain.QueueItem, error)
	Clear(ctx context.Context) int
	Skip(ctx context.Context) bool
	QueueStatus() QueueStatus
	Configure(opts QueueOptions)
}

type SubmitRequest struct {
	UserID       string               `json:"user_id"`
	Username     string               `json:"username"`
	Text         string               `json:"text"`
	VoiceID      string               `json:"voice,omitempty"`
	EngineID     string               `json:"engine,omitempty"`
	Speed        float64              `json:"speed,omitempty"`
	Source       domain.RequestSource `json:"source,omitempty"`
	TeamLevel    int                  `json:"team_level"`
	IsSubscriber bool                 `json:"is_subscriber"`
	Platform     domain.Platform      `json:"platform,omitempty"`
	ChannelID    string               `json:"channel_id,omitempty"`
}

type Config struct {
	Settings    domain.SettingsRepository
	Permissions *permission.Manager
	Limiter     *ratelimit.Limiter
	Filter      *profanity.Filter
	Detector    *langdetect.Detector
	Dispatcher  *dispatcher.Dispatcher
	Registry    *engine.Registry
	Queue       Queue
	// Defaults seed the settings until a dashboard save exists.
	Defaults Settings
	Logger   *log.Logger
}

type Service struct {
	repo        domain.SettingsRepository
	permissions *permission.Manager
	limiter     *ratelimit.Limiter
	filter      *profanity.Filter
	detector    *langdetect.Detector
	dispatcher  *dispatcher.Dispatcher
	registry    *engine.Registry
	logger      *log.Logger
	now         func() time.Time

	mu       sync.RWMutex
	queue    Queue
	settings Settings
}

func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	defaults := cfg.Defaults
	if defaults.DefaultEngine == "" {
		defaults = DefaultSettings()
	}
	if cfg.Registry == nil {
		cfg.Registry = engine.NewRegistry()
	}
	if cfg.Detector == nil {
		cfg.Detector = langdetect.New(0)
	}
	if cfg.Permissions == nil {
		cfg.Permissions = permission.NewManager(permission.Config{Logger: logger})
	}
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.New(defaults.RateLimit, time.Duration(defaults.RateLimitWindow)*time.Second, 0)
	}
	if cfg.Filter == nil {
		cfg.Filter = profanity.New(profanity.Config{})
	}
	if cfg.Dispatcher == nil {
		cfg.Dispatcher = dispatcher.New(dispatcher.Config{Registry: cfg.Registry, Detector: cfg.Detector, Logger: logger})
	}
	s := &Service{
		repo:        cfg.Settings,
		permissions: cfg.Permissions,
		limiter:     cfg.Limiter,
		filter:      cfg.Filter,
		detector:    cfg.Detector,
		dispatcher:  cfg.Dispatcher,
		registry:    cfg.Registry,
		logger:      logger.WithPrefix("tts"),
		now:         time.Now,
		queue:       cfg.Queue,
		settings:    defaults,
	}
	s.apply(defaults)
	return s
}

// Load reads persisted settings on top of the defaults.
func (s *Service) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	raw, err := s.repo.GetSetting(ctx, settingsKey)
	if err != nil {
		return fmt.Errorf("tts: load settings: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	s.mu.RLock()
	merged := s.settings
	s.mu.RUnlock()
	// env keys stay in effect unless the dashboard stored its own
	envKeys := merged.APIKeys
	if err := json.Unmarshal([]byte(raw), &merged); err != nil {
		return fmt.Errorf("tts: decode settings: %w", err)
	}
	merged.APIKeys = fillKeys(merged.APIKeys, envKeys)
	if err := merged.Validate(); err != nil {
		s.logger.Warn("stored settings invalid, keeping defaults", "err", err)
		return nil
	}

	s.mu.Lock()
	s.settings = merged
	s.mu.Unlock()
	s.apply(merged)
	s.logger.Info("settings loaded", "engine", merged.DefaultEngine, "voice", merged.DefaultVoice)
	return nil
}

func (s *Service) SetQueue(q Queue) {
	s.mu.Lock()
	s.queue = q
	settings := s.settings
	s.mu.Unlock()
	if q != nil {
		q.Configure(queueOptions(settings))
	}
}

// Config returns the current settings with API keys redacted.
func (s *Service) Config() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Redacted()
}

func (s *Service) settingsSnapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// SetConfig validates, persists and applies next. Redacted API keys keep
// their stored value.
func (s *Service) SetConfig(ctx context.Context, next Settings) (Settings, error) {
	current := s.settingsSnapshot()
	next.APIKeys = mergeKeys(current.APIKeys, next.APIKeys)
	next.FallbackChains = copyChains(next.FallbackChains)
	if err := next.Validate(); err != nil {
		return current.Redacted(), err
	}

	if s.repo != nil {
		raw, err := json.Marshal(next)
		if err != nil {
			return current.Redacted(), fmt.Errorf("tts: encode settings: %w", err)
		}
		if err := s.repo.SetSetting(ctx, settingsKey, string(raw)); err != nil {
			return current.Redacted(), fmt.Errorf("tts: save settings: %w", err)
		}
	}

	s.mu.Lock()
	s.settings = next
	s.mu.Unlock()
	s.apply(next)
	s.logger.Info("settings updated", "engine", next.DefaultEngine, "voice", next.DefaultVoice, "mode", next.PerformanceMode)
	return next.Redacted(), nil
}

// UpdateConfig applies mutate to a copy of the current settings and saves it.
func (s *Service) UpdateConfig(ctx context.Context, mutate func(*Settings)) (Settings, error) {
	next := s.settingsSnapshot()
	next.FallbackChains = copyChains(next.FallbackChains)
	mutate(&next)
	return s.SetConfig(ctx, next)
}

func (s *Service) apply(st Settings) {
	s.limiter.SetLimits(st.RateLimit, time.Duration(st.RateLimitWindow)*time.Second)

	mode, _ := profanity.ParseMode(st.ProfanityFilter)
	strategy, _ := profanity.ParseStrategy(st.ProfanityStrategy)
	s.filter.Configure(mode, strategy, st.ProfanityReplacement)

	perf, _ := dispatcher.ParsePerformanceMode(st.PerformanceMode)
	s.dispatcher.SetPerformanceMode(perf)
	s.dispatcher.SetDefaultEngine(st.DefaultEngine)
	if len(st.FallbackChains) > 0 {
		chains := dispatcher.DefaultChains()
		for primary, chain := range st.FallbackChains {
			chains[primary] = chain
		}
		s.dispatcher.SetChains(chains)
	} else {
		s.dispatcher.SetChains(dispatcher.DefaultChains())
	}

	for id, key := range st.APIKeys.byEngine() {
		s.registry.SetAPIKey(id, key)
	}

	s.mu.RLock()
	q := s.queue
	s.mu.RUnlock()
	if q != nil {
		q.Configure(queueOptions(st))
	}
}

func queueOptions(st Settings) QueueOptions {
	return QueueOptions{MaxSize: st.MaxQueueSize, DuckOtherAudio: st.DuckOtherAudio, DuckVolume: st.DuckVolume}
}

func (s *Service) Enabled() bool {
	return s.settingsSnapshot().Enabled
}

func (s *Service) EnabledForChat() bool {
	st := s.settingsSnapshot()
	return st.Enabled && st.EnabledForChat
}

func (s *Service) SetEnabled(ctx context.Context, enabled bool) error {
	_, err := s.UpdateConfig(ctx, func(st *Settings) { st.Enabled = enabled })
	return err
}

// Submit runs the admission pipeline and enqueues the request. Rejections
// happen before any provider is called.
func (s *Service) Submit(ctx context.Context, in SubmitRequest) (domain.QueueItem, error) {
	st := s.settingsSnapshot()
	if in.Source == "" {
		in.Source = domain.SourceChat
	}
	if !in.Source.Valid() {
		return domain.QueueItem{}, fmt.Errorf("%w: unknown source %q", ErrValidation, in.Source)
	}
	if !st.Enabled {
		return domain.QueueItem{}, ErrDisabled
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return domain.QueueItem{}, ErrEmptyText
	}
	in.UserID = strings.TrimSpace(in.UserID)
	if in.UserID == "" {
		in.UserID = strings.ToLower(strings.TrimSpace(in.Username))
	}
	if in.UserID == "" {
		return domain.QueueItem{}, fmt.Errorf("%w: missing user", ErrValidation)
	}

	perm, err := s.permissions.Get(ctx, in.UserID)
	if err != nil {
		return domain.QueueItem{}, err
	}

	counted := false
	// dashboard submissions skip viewer-facing checks
	if in.Source != domain.SourceManual {
		res, err := s.permissions.CheckPermission(ctx, in.UserID, in.Username, in.TeamLevel, st.TeamMinLevel)
		if err != nil {
			return domain.QueueItem{}, err
		}
		if !res.Allowed {
			s.logger.Info("denied", "user", in.Username, "reason", res.Reason)
			return domain.QueueItem{}, &PermissionError{Reason: res.Reason}
		}
		if !s.limiter.Allow(in.UserID) {
			s.logger.Info("rate limited", "user", in.Username)
			return domain.QueueItem{}, ErrRateLimited
		}
		counted = true
	}

	text = truncate(text, st.MaxTextLength)

	lang := ""
	if perm != nil {
		lang = perm.LanguagePreference
	}
	if lang == "" {
		lang = s.detector.Detect(text).Lang
	}

	filtered := s.filter.Filter(text, lang)
	switch filtered.Action {
	case profanity.ActionDrop:
		s.logger.Info("dropped by profanity filter", "user", in.Username, "matches", len(filtered.Matches))
		return domain.QueueItem{}, ErrFiltered
	case profanity.ActionReplace:
		// replacements can grow the text past the cap
		text = truncate(strings.TrimSpace(filtered.Filtered), st.MaxTextLength)
		if text == "" {
			return domain.QueueItem{}, ErrEmptyText
		}
	}

	req := s.buildRequest(in, text, lang, perm, st)

	s.mu.RLock()
	q := s.queue
	s.mu.RUnlock()
	if q == nil {
		return domain.QueueItem{}, ErrNoQueue
	}

	item, err := q.Enqueue(ctx, req, queue.Priority(in.TeamLevel, in.IsSubscriber, in.Source))
	if err != nil {
		if counted {
			s.limiter.Undo(in.UserID)
		}
		return domain.QueueItem{}, err
	}
	s.logger.Debug("enqueued", "id", item.ID, "user", in.Username, "position", item.Position, "engine", req.EngineID, "voice", req.VoiceID)
	return item, nil
}

func (s *Service) buildRequest(in SubmitRequest, text, lang string, perm *domain.UserPermission, st Settings) domain.SynthesisRequest {
	req := domain.SynthesisRequest{
		ID:            uuid.NewString(),
		Text:          text,
		RequesterID:   in.UserID,
		RequesterName: in.Username,
		EngineID:      strings.TrimSpace(in.EngineID),
		VoiceID:       strings.TrimSpace(in.VoiceID),
		Speed:         in.Speed,
		Source:        in.Source,
		TeamLevel:     in.TeamLevel,
		IsSubscriber:  in.IsSubscriber,
		Platform:      in.Platform,
		ChannelID:     in.ChannelID,
		CreatedAt:     s.now(),
	}
	if req.Speed <= 0 {
		req.Speed = st.Speed
	}

	gain := 1.0
	if perm != nil {
		req.AssignedEngineID = perm.AssignedEngineID
		req.LanguageHint = perm.LanguagePreference
		if req.VoiceID == "" {
			req.VoiceID = perm.AssignedVoiceID
		}
		if perm.VolumeGain > 0 {
			gain = perm.VolumeGain
		}
	}
	req.Volume = clamp(float64(st.Volume)/100*gain, 0, 1)

	if req.VoiceID == "" {
		req.VoiceID = s.pickVoice(req, lang, st)
	}
	return req
}

// pickVoice keeps the configured default voice when the primary engine has it
// and it fits the text language; otherwise it routes by language.
func (s *Service) pickVoice(req domain.SynthesisRequest, lang string, st Settings) string {
	primary := s.dispatcher.PrimaryEngine(dispatcher.Request{EngineID: req.EngineID, AssignedEngineID: req.AssignedEngineID})
	e, ok := s.registry.Get(primary)
	if !ok {
		return st.DefaultVoice
	}
	def, hasDef := voiceOf(e, st.DefaultVoice)
	fits := hasDef && (def.Lang == "multi" || engine.BaseLanguage(def.Lang) == engine.BaseLanguage(lang))
	switch {
	case hasDef && (fits || !st.AutoLanguageDetection):
		return def.ID
	case st.AutoLanguageDetection:
		if v := e.DefaultVoiceForLanguage(lang); v != "" {
			return v
		}
	}
	if hasDef {
		return def.ID
	}
	return e.DefaultVoice()
}

func voiceOf(e engine.Engine, id string) (engine.Voice, bool) {
	for _, v := range e.Voices() {
		if v.ID == id {
			return v, true
		}
	}
	return engine.Voice{}, false
}

// Voices returns the catalog of every engine with its availability.
func (s *Service) Voices() []engine.Descriptor {
	return s.registry.Catalog()
}

// FindVoice looks voiceID up across engines, preferring engineID when set.
func (s *Service) FindVoice(voiceID, engineID string) (engine.Voice, string, bool) {
	ids := s.registry.IDs()
	if engineID != "" {
		ids = append([]string{engineID}, ids...)
	}
	for _, id := range ids {
		e, ok := s.registry.Get(id)
		if !ok {
			continue
		}
		for _, v := range e.Voices() {
			if strings.EqualFold(v.ID, voiceID) {
				return v, id, true
			}
		}
	}
	return engine.Voice{}, "", false
}

func (s *Service) QueueStatus() QueueStatus {
	s.mu.RLock()
	q := s.queue
	s.mu.RUnlock()
	if q == nil {
		return QueueStatus{State: "unavailable"}
	}
	return q.QueueStatus()
}

// ClearQueue drops pending requests; the one being spoken keeps playing.
func (s *Service) ClearQueue(ctx context.Context) (int, error) {
	s.mu.RLock()
	q := s.queue
	s.mu.RUnlock()
	if q == nil {
		return 0, ErrNoQueue
	}
	return q.Clear(ctx), nil
}

// SkipCurrent aborts the request being synthesized or played.
func (s *Service) SkipCurrent(ctx context.Context) (bool, error) {
	s.mu.RLock()
	q := s.queue
	s.mu.RUnlock()
	if q == nil {
		return false, ErrNoQueue
	}
	return q.Skip(ctx), nil
}

func truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	return strings.TrimSpace(string([]rune(text)[:max]))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func fillKeys(stored, env APIKeys) APIKeys {
	if stored.ElevenLabs == "" {
		stored.ElevenLabs = env.ElevenLabs
	}
	if stored.Google == "" {
		stored.Google = env.Google
	}
	if stored.Speechify == "" {
		stored.Speechify = env.Speechify
	}
	return stored
}
