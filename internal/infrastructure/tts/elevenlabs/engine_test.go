package elevenlabs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/engine"
)

func TestSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-speech/"+voiceAdam {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "secret" {
			t.Errorf("missing api key header")
		}
		var req synthesizeRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Text != "hello" || req.ModelID != defaultModel || req.VoiceSettings.Speed != 1.2 {
			t.Errorf("unexpected body %+v", req)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("mp3"))
	}))
	defer srv.Close()

	e := New(Config{APIKey: "secret", BaseURL: srv.URL})
	audio, err := e.Synthesize(context.Background(), "hello", voiceAdam, engine.SynthesisOptions{Speed: 2})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio.Data) != "mp3" {
		t.Fatalf("audio = %q", audio.Data)
	}
}

func TestQuotaFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota_exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	e := New(Config{APIKey: "secret", BaseURL: srv.URL})
	_, err := e.Synthesize(context.Background(), "hello", "", engine.SynthesisOptions{})
	if engine.Classify(err) != engine.KindQuota {
		t.Fatalf("kind = %q", engine.Classify(err))
	}
}

func TestMultilingualDefaults(t *testing.T) {
	e := New(Config{})
	if e.Available() {
		t.Fatalf("engine without key should be unavailable")
	}
	if got := e.DefaultVoiceForLanguage("de"); got != voiceRachel {
		t.Fatalf("de voice = %q", got)
	}
}
