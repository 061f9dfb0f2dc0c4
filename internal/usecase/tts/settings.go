package tts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/dispatcher"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/engine"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/profanity"
)

const settingsKey = "tts_config"

const maskedPrefix = "****"

type APIKeys struct {
	ElevenLabs string `json:"elevenlabs,omitempty"`
	Google     string `json:"google,omitempty"`
	Speechify  string `json:"speechify,omitempty"`
}

func (k APIKeys) byEngine() map[string]string {
	return map[string]string{
		engine.IDElevenLabs: k.ElevenLabs,
		engine.IDGoogle:     k.Google,
		engine.IDSpeechify:  k.Speechify,
	}
}

// Settings is the runtime TTS configuration. It is persisted as JSON and
// editable from the dashboard.
type Settings struct {
	Enabled               bool                `json:"enabled"`
	EnabledForChat        bool                `json:"enabledForChat"`
	DefaultEngine         string              `json:"defaultEngine"`
	DefaultVoice          string              `json:"defaultVoice"`
	Volume                int                 `json:"volume"`
	Speed                 float64             `json:"speed"`
	TeamMinLevel          int                 `json:"teamMinLevel"`
	RateLimit             int                 `json:"rateLimit"`
	RateLimitWindow       int                 `json:"rateLimitWindow"`
	MaxQueueSize          int                 `json:"maxQueueSize"`
	MaxTextLength         int                 `json:"maxTextLength"`
	ProfanityFilter       string              `json:"profanityFilter"`
	ProfanityStrategy     string              `json:"profanityStrategy"`
	ProfanityReplacement  string              `json:"profanityReplacement,omitempty"`
	DuckOtherAudio        bool                `json:"duckOtherAudio"`
	DuckVolume            int                 `json:"duckVolume"`
	AutoLanguageDetection bool                `json:"autoLanguageDetection"`
	PerformanceMode       string              `json:"performanceMode"`
	APIKeys               APIKeys             `json:"apiKeys"`
	FallbackChains        map[string][]string `json:"fallbackChains,omitempty"`
}

func DefaultSettings() Settings {
	return Settings{
		Enabled:               true,
		EnabledForChat:        true,
		DefaultEngine:         engine.IDTikTok,
		DefaultVoice:          "en_us_001",
		Volume:                80,
		Speed:                 1.0,
		TeamMinLevel:          0,
		RateLimit:             3,
		RateLimitWindow:       60,
		MaxQueueSize:          100,
		MaxTextLength:         300,
		ProfanityFilter:       string(profanity.ModeModerate),
		ProfanityStrategy:     string(profanity.StrategyAsterisk),
		DuckOtherAudio:        false,
		DuckVolume:            30,
		AutoLanguageDetection: true,
		PerformanceMode:       string(dispatcher.ModeBalanced),
	}
}

func (s Settings) Validate() error {
	var errs []error
	if s.DefaultEngine == "" {
		errs = append(errs, errors.New("defaultEngine is required"))
	}
	if s.Volume < 0 || s.Volume > 100 {
		errs = append(errs, fmt.Errorf("volume %d out of range [0,100]", s.Volume))
	}
	if s.Speed < 0.25 || s.Speed > 4 {
		errs = append(errs, fmt.Errorf("speed %.2f out of range [0.25,4]", s.Speed))
	}
	if s.TeamMinLevel < 0 {
		errs = append(errs, errors.New("teamMinLevel must be >= 0"))
	}
	if s.RateLimit < 0 {
		errs = append(errs, errors.New("rateLimit must be >= 0"))
	}
	if s.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("rateLimitWindow must be > 0"))
	}
	if s.MaxQueueSize <= 0 {
		errs = append(errs, errors.New("maxQueueSize must be > 0"))
	}
	if s.MaxTextLength <= 0 {
		errs = append(errs, errors.New("maxTextLength must be > 0"))
	}
	if s.DuckVolume < 0 || s.DuckVolume > 100 {
		errs = append(errs, fmt.Errorf("duckVolume %d out of range [0,100]", s.DuckVolume))
	}
	if _, err := profanity.ParseMode(s.ProfanityFilter); err != nil {
		errs = append(errs, err)
	}
	if _, err := profanity.ParseStrategy(s.ProfanityStrategy); err != nil {
		errs = append(errs, err)
	}
	if _, err := dispatcher.ParsePerformanceMode(s.PerformanceMode); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

// Redacted hides API keys for display.
func (s Settings) Redacted() Settings {
	s.APIKeys = APIKeys{
		ElevenLabs: mask(s.APIKeys.ElevenLabs),
		Google:     mask(s.APIKeys.Google),
		Speechify:  mask(s.APIKeys.Speechify),
	}
	s.FallbackChains = copyChains(s.FallbackChains)
	return s
}

// mergeKeys keeps the stored key when the incoming one is the redacted form.
func mergeKeys(current, incoming APIKeys) APIKeys {
	pick := func(cur, in string) string {
		if strings.HasPrefix(in, maskedPrefix) {
			return cur
		}
		return strings.TrimSpace(in)
	}
	return APIKeys{
		ElevenLabs: pick(current.ElevenLabs, incoming.ElevenLabs),
		Google:     pick(current.Google, incoming.Google),
		Speechify:  pick(current.Speechify, incoming.Speechify),
	}
}

func mask(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return maskedPrefix
	}
	return maskedPrefix + key[len(key)-4:]
}

func copyChains(c map[string][]string) map[string][]string {
	if c == nil {
		return nil
	}
	out := make(map[string][]string, len(c))
	for k, v := range c {
		out[k] = append([]string(nil), v...)
	}
	return out
}
