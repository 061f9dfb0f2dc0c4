package google

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/engine"
)

func TestSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text:synthesize" || r.URL.Query().Get("key") != "secret" {
			t.Errorf("unexpected request %s", r.URL)
		}
		var req synthesizeRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Voice.Name != "de-DE-Wavenet-B" || req.Voice.LanguageCode != "de-DE" || req.AudioConfig.AudioEncoding != "MP3" {
			t.Errorf("unexpected body %+v", req)
		}
		if req.AudioConfig.SpeakingRate != 1.25 {
			t.Errorf("speaking rate = %v", req.AudioConfig.SpeakingRate)
		}
		json.NewEncoder(w).Encode(synthesizeResponse{AudioContent: base64.StdEncoding.EncodeToString([]byte("mp3"))})
	}))
	defer srv.Close()

	e := New(Config{APIKey: "secret", BaseURL: srv.URL})
	audio, err := e.Synthesize(context.Background(), "Hallo", "de-DE-Wavenet-B", engine.SynthesisOptions{Speed: 1.25})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio.Data) != "mp3" {
		t.Fatalf("audio = %q", audio.Data)
	}
}

func TestAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	e := New(Config{APIKey: "bad", BaseURL: srv.URL})
	_, err := e.Synthesize(context.Background(), "hi", "", engine.SynthesisOptions{})
	if engine.Classify(err) != engine.KindAuth {
		t.Fatalf("kind = %q", engine.Classify(err))
	}
}

func TestAvailability(t *testing.T) {
	e := New(Config{})
	if e.Available() {
		t.Fatalf("engine without key should be unavailable")
	}
	e.SetAPIKey(" key ")
	if !e.Available() {
		t.Fatalf("engine with key should be available")
	}
	if got := e.DefaultVoiceForLanguage("pt"); got != "pt-BR-Wavenet-A" {
		t.Fatalf("pt voice = %q", got)
	}
}

func TestLanguageCode(t *testing.T) {
	if got := languageCode("en-GB-Wavenet-A"); got != "en-GB" {
		t.Fatalf("got %q", got)
	}
	if got := languageCode("weird"); got != "en-US" {
		t.Fatalf("got %q", got)
	}
}
