// Package google adapts the Google Cloud Text-to-Speech REST API.
package google

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hegedustibor/htgo-tts/voices"
	"golang.org/x/time/rate"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/infrastructure/tts/httpx"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/engine"
)

const (
	defaultBaseURL           = "https://texttospeech.googleapis.com"
	defaultRequestsPerMinute = 300
)

type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	// RequestsPerMinute caps outbound calls (defaults to 300).
	RequestsPerMinute int
}

type Engine struct {
	*engine.VoiceCatalog

	baseURL string
	client  *http.Client
	limiter *rate.Limiter

	mu     sync.RWMutex
	apiKey string
}

var _ engine.KeyedEngine = (*Engine)(nil)

func New(cfg Config) *Engine {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = httpx.DefaultClient()
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = defaultRequestsPerMinute
	}
	return &Engine{
		VoiceCatalog: engine.NewVoiceCatalog("en-US-Wavenet-C",
			map[string]string{
				voices.English:    "en-US-Wavenet-C",
				voices.German:     "de-DE-Wavenet-B",
				voices.Spanish:    "es-ES-Wavenet-C",
				voices.French:     "fr-FR-Wavenet-A",
				voices.Portuguese: "pt-BR-Wavenet-A",
				"it":              "it-IT-Wavenet-A",
				"nl":              "nl-NL-Wavenet-A",
				"pl":              "pl-PL-Wavenet-A",
				"ja":              "ja-JP-Wavenet-B",
			},
			engine.Voice{ID: "en-US-Wavenet-C", Label: "English (US) C", Lang: "en-US", Gender: "female"},
			engine.Voice{ID: "en-US-Wavenet-D", Label: "English (US) D", Lang: "en-US", Gender: "male"},
			engine.Voice{ID: "en-GB-Wavenet-A", Label: "English (UK) A", Lang: "en-GB", Gender: "female"},
			engine.Voice{ID: "de-DE-Wavenet-B", Label: "Deutsch B", Lang: "de-DE", Gender: "male"},
			engine.Voice{ID: "de-DE-Wavenet-C", Label: "Deutsch C", Lang: "de-DE", Gender: "female"},
			engine.Voice{ID: "es-ES-Wavenet-C", Label: "Español C", Lang: "es-ES", Gender: "female"},
			engine.Voice{ID: "fr-FR-Wavenet-A", Label: "Français A", Lang: "fr-FR", Gender: "female"},
			engine.Voice{ID: "pt-BR-Wavenet-A", Label: "Português A", Lang: "pt-BR", Gender: "female"},
			engine.Voice{ID: "it-IT-Wavenet-A", Label: "Italiano A", Lang: "it-IT", Gender: "female"},
			engine.Voice{ID: "nl-NL-Wavenet-A", Label: "Nederlands A", Lang: "nl-NL", Gender: "female"},
			engine.Voice{ID: "pl-PL-Wavenet-A", Label: "Polski A", Lang: "pl-PL", Gender: "female"},
			engine.Voice{ID: "ja-JP-Wavenet-B", Label: "日本語 B", Lang: "ja-JP", Gender: "female"},
		),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  cfg.HTTPClient,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 5),
		apiKey:  strings.TrimSpace(cfg.APIKey),
	}
}

func (e *Engine) ID() string          { return engine.IDGoogle }
func (e *Engine) DisplayName() string { return "Google Cloud TTS" }

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

type synthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string  `json:"audioEncoding"`
		SpeakingRate  float64 `json:"speakingRate,omitempty"`
	} `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

func (e *Engine) Synthesize(ctx context.Context, text, voiceID string, opts engine.SynthesisOptions) (*engine.Audio, error) {
	key := e.key()
	if key == "" {
		return nil, engine.ErrUnavailable
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("google: rate limiter: %w", err)
	}
	if voiceID == "" {
		voiceID = e.DefaultVoice()
	}

	var body synthesizeRequest
	body.Input.Text = text
	body.Voice.Name = voiceID
	body.Voice.LanguageCode = languageCode(voiceID)
	body.AudioConfig.AudioEncoding = "MP3"
	if opts.Speed > 0 {
		body.AudioConfig.SpeakingRate = opts.Speed
	}

	endpoint := e.baseURL + "/v1/text:synthesize?key=" + url.QueryEscape(key)
	data, _, err := httpx.PostJSON(ctx, e.client, engine.IDGoogle, endpoint, nil, body)
	if err != nil {
		return nil, err
	}
	var resp synthesizeResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("google: decode response: %w", err)
	}
	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("google: decode audio: %w", err)
	}
	return &engine.Audio{Data: audio, ContentType: "audio/mpeg"}, nil
}

// languageCode extracts "de-DE" from "de-DE-Wavenet-B".
func languageCode(voiceID string) string {
	parts := strings.SplitN(voiceID, "-", 3)
	if len(parts) < 2 {
		return "en-US"
	}
	return parts[0] + "-" + parts[1]
}
