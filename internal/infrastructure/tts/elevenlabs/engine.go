// Package elevenlabs adapts the ElevenLabs text-to-speech API.
package elevenlabs

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/hegedustibor/htgo-tts/voices"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/infrastructure/tts/httpx"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/engine"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	defaultModel   = "eleven_multilingual_v2"
	voiceRachel    = "21m00Tcm4TlvDq8ikWAM"
	voiceAdam      = "pNInz6obpgDQGcFMFdBE"
	voiceBella     = "EXAVITQu4vr4xnSDxMaL"
	voiceAntoni    = "ErXwobaYiN019PkySvjV"
)

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

type Engine struct {
	*engine.VoiceCatalog

	baseURL string
	model   string
	client  *http.Client

	mu     sync.RWMutex
	apiKey string
}

var _ engine.KeyedEngine = (*Engine)(nil)

func New(cfg Config) *Engine {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = httpx.DefaultClient()
	}
	// multilingual model: every voice speaks every supported language
	langDefaults := map[string]string{
		voices.English:    voiceRachel,
		voices.German:     voiceRachel,
		voices.Spanish:    voiceRachel,
		voices.French:     voiceRachel,
		voices.Portuguese: voiceRachel,
	}
	return &Engine{
		VoiceCatalog: engine.NewVoiceCatalog(voiceRachel, langDefaults,
			engine.Voice{ID: voiceRachel, Label: "Rachel", Lang: "multi", Gender: "female"},
			engine.Voice{ID: voiceBella, Label: "Bella", Lang: "multi", Gender: "female"},
			engine.Voice{ID: voiceAdam, Label: "Adam", Lang: "multi", Gender: "male"},
			engine.Voice{ID: voiceAntoni, Label: "Antoni", Lang: "multi", Gender: "male"},
		),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  cfg.HTTPClient,
		apiKey:  strings.TrimSpace(cfg.APIKey),
	}
}

func (e *Engine) ID() string          { return engine.IDElevenLabs }
func (e *Engine) DisplayName() string { return "ElevenLabs" }

func (e *Engine) Available() bool {
	return e.key() != ""
}

func (e *Engine) SetAPIKey(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.apiKey = strings.TrimSpace(key)
}

func (e *Engine) key() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.apiKey
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed,omitempty"`
}

type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

func (e *Engine) Synthesize(ctx context.Context, text, voiceID string, opts engine.SynthesisOptions) (*engine.Audio, error) {
	key := e.key()
	if key == "" {
		return nil, engine.ErrUnavailable
	}
	if voiceID == "" {
		voiceID = e.DefaultVoice()
	}
	body := synthesizeRequest{
		Text:    text,
		ModelID: e.model,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Speed:           clampSpeed(opts.Speed),
		},
	}
	endpoint := e.baseURL + "/v1/text-to-speech/" + url.PathEscape(voiceID) + "?output_format=mp3_44100_128"
	data, _, err := httpx.PostJSON(ctx, e.client, engine.IDElevenLabs, endpoint, map[string]string{
		"xi-api-key": key,
		"Accept":     "audio/mpeg",
	}, body)
	if err != nil {
		return nil, err
	}
	return &engine.Audio{Data: data, ContentType: "audio/mpeg"}, nil
}

// ElevenLabs accepts 0.7-1.2.
func clampSpeed(s float64) float64 {
	switch {
	case s <= 0:
		return 0
	case s < 0.7:
		return 0.7
	case s > 1.2:
		return 1.2
	}
	return s
}
