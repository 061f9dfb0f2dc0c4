// Package tiktok adapts the public TikTok voice proxy. It needs no credentials
// and therefore closes every fallback chain.
package tiktok

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hegedustibor/htgo-tts/voices"
	"golang.org/x/time/rate"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/infrastructure/tts/httpx"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/engine"
)

const (
	DefaultEndpoint          = "https://tiktok-tts.weilnet.workers.dev/api/generation"
	defaultRequestsPerMinute = 30
	// the proxy rejects longer input
	maxChunkRunes = 300
)

var errProxy = errors.New("tiktok: proxy reported failure")

type Config struct {
	// Endpoint of the proxy; empty uses DefaultEndpoint.
	Endpoint          string
	HTTPClient        *http.Client
	RequestsPerMinute int
	Disabled          bool
}

type Engine struct {
	*engine.VoiceCatalog

	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	disabled bool
}

var _ engine.Engine = (*Engine)(nil)

func New(cfg Config) *Engine {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = httpx.DefaultClient()
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = defaultRequestsPerMinute
	}
	return &Engine{
		VoiceCatalog: engine.NewVoiceCatalog("en_us_001",
			map[string]string{
				voices.English:    "en_us_001",
				voices.German:     "de_001",
				voices.Spanish:    "es_002",
				voices.French:     "fr_001",
				voices.Portuguese: "br_003",
				"id":              "id_001",
				"ja":              "jp_001",
				"ko":              "kr_002",
			},
			engine.Voice{ID: "en_us_001", Label: "English US Female", Lang: "en", Gender: "female"},
			engine.Voice{ID: "en_us_006", Label: "English US Male 1", Lang: "en", Gender: "male"},
			engine.Voice{ID: "en_us_ghostface", Label: "Ghost Face", Lang: "en", Gender: "male"},
			engine.Voice{ID: "en_us_stormtrooper", Label: "Stormtrooper", Lang: "en", Gender: "male"},
			engine.Voice{ID: "en_uk_001", Label: "English UK Male", Lang: "en", Gender: "male"},
			engine.Voice{ID: "de_001", Label: "Deutsch Female", Lang: "de", Gender: "female"},
			engine.Voice{ID: "de_002", Label: "Deutsch Male", Lang: "de", Gender: "male"},
			engine.Voice{ID: "es_002", Label: "Español Male", Lang: "es", Gender: "male"},
			engine.Voice{ID: "fr_001", Label: "Français Male", Lang: "fr", Gender: "male"},
			engine.Voice{ID: "br_003", Label: "Português Female", Lang: "pt", Gender: "female"},
			engine.Voice{ID: "id_001", Label: "Indonesian Female", Lang: "id", Gender: "female"},
			engine.Voice{ID: "jp_001", Label: "Japanese Female", Lang: "ja", Gender: "female"},
			engine.Voice{ID: "kr_002", Label: "Korean Male", Lang: "ko", Gender: "male"},
		),
		endpoint: cfg.Endpoint,
		client:   cfg.HTTPClient,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 3),
		disabled: cfg.Disabled,
	}
}

func (e *Engine) ID() string          { return engine.IDTikTok }
func (e *Engine) DisplayName() string { return "TikTok" }
func (e *Engine) Available() bool     { return !e.disabled }

type generationRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

type generationResponse struct {
	Success bool   `json:"success"`
	Data    string `json:"data"`
	Error   string `json:"error"`
}

// Synthesize splits long text into proxy-sized chunks and concatenates the MP3
// frames.
func (e *Engine) Synthesize(ctx context.Context, text, voiceID string, _ engine.SynthesisOptions) (*engine.Audio, error) {
	if e.disabled {
		return nil, engine.ErrUnavailable
	}
	if voiceID == "" {
		voiceID = e.DefaultVoice()
	}
	var out []byte
	for _, chunk := range splitText(text, maxChunkRunes) {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("tiktok: rate limiter: %w", err)
		}
		data, _, err := httpx.PostJSON(ctx, e.client, engine.IDTikTok, e.endpoint, nil, generationRequest{Text: chunk, Voice: voiceID})
		if err != nil {
			return nil, err
		}
		var resp generationResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("tiktok: decode response: %w", err)
		}
		if !resp.Success {
			return nil, fmt.Errorf("%w: %s", errProxy, resp.Error)
		}
		audio, err := base64.StdEncoding.DecodeString(resp.Data)
		if err != nil {
			return nil, fmt.Errorf("tiktok: decode audio: %w", err)
		}
		out = append(out, audio...)
	}
	return &engine.Audio{Data: out, ContentType: "audio/mpeg"}, nil
}

// splitText cuts text into pieces of at most limit runes, preferring spaces.
func splitText(text string, limit int) []string {
	runes := []rune(strings.TrimSpace(text))
	var chunks []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i] == ' ' {
				cut = i
				break
			}
		}
		chunks = append(chunks, strings.TrimSpace(string(runes[:cut])))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, strings.TrimSpace(string(runes)))
	}
	return chunks
}
