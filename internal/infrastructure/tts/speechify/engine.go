// Package speechify adapts the Speechify text-to-speech API.
package speechify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/hegedustibor/htgo-tts/voices"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/infrastructure/tts/httpx"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/engine"
)

const (
	defaultBaseURL = "https://api.sws.speechify.com"
	defaultModel   = "simba-multilingual"
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
	return &Engine{
		VoiceCatalog: engine.NewVoiceCatalog("george",
			map[string]string{
				voices.English:    "george",
				voices.German:     "frederick",
				voices.Spanish:    "sofia",
				voices.French:     "lucien",
				voices.Portuguese: "manuela",
			},
			engine.Voice{ID: "george", Label: "George", Lang: "en", Gender: "male"},
			engine.Voice{ID: "henry", Label: "Henry", Lang: "en", Gender: "male"},
			engine.Voice{ID: "carly", Label: "Carly", Lang: "en", Gender: "female"},
			engine.Voice{ID: "frederick", Label: "Frederick", Lang: "de", Gender: "male"},
			engine.Voice{ID: "sofia", Label: "Sofia", Lang: "es", Gender: "female"},
			engine.Voice{ID: "lucien", Label: "Lucien", Lang: "fr", Gender: "male"},
			engine.Voice{ID: "manuela", Label: "Manuela", Lang: "pt", Gender: "female"},
		),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  cfg.HTTPClient,
		apiKey:  strings.TrimSpace(cfg.APIKey),
	}
}

func (e *Engine) ID() string          { return engine.IDSpeechify }
func (e *Engine) DisplayName() string { return "Speechify" }

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

type speechRequest struct {
	Input       string `json:"input"`
	VoiceID     string `json:"voice_id"`
	Model       string `json:"model,omitempty"`
	Language    string `json:"language,omitempty"`
	AudioFormat string `json:"audio_format"`
}

type speechResponse struct {
	AudioData   string `json:"audio_data"`
	AudioFormat string `json:"audio_format"`
}

func (e *Engine) Synthesize(ctx context.Context, text, voiceID string, opts engine.SynthesisOptions) (*engine.Audio, error) {
	key := e.key()
	if key == "" {
		return nil, engine.ErrUnavailable
	}
	if voiceID == "" {
		voiceID = e.DefaultVoice()
	}
	body := speechRequest{
		Input:       text,
		VoiceID:     voiceID,
		Model:       e.model,
		AudioFormat: "mp3",
	}
	if lang := engine.BaseLanguage(opts.Lang); lang != "" {
		body.Language = lang
	}
	data, _, err := httpx.PostJSON(ctx, e.client, engine.IDSpeechify, e.baseURL+"/v1/audio/speech", map[string]string{
		"Authorization": "Bearer " + key,
	}, body)
	if err != nil {
		return nil, err
	}
	var resp speechResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("speechify: decode response: %w", err)
	}
	audio, err := base64.StdEncoding.DecodeString(resp.AudioData)
	if err != nil {
		return nil, fmt.Errorf("speechify: decode audio: %w", err)
	}
	return &engine.Audio{Data: audio, ContentType: "audio/mpeg"}, nil
}
