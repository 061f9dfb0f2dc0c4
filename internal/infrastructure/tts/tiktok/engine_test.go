package tiktok

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/engine"
)

func TestSynthesizeChunksAndJoins(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []generationRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		mu.Lock()
		calls = append(calls, req)
		mu.Unlock()
		json.NewEncoder(w).Encode(generationResponse{Success: true, Data: base64.StdEncoding.EncodeToString([]byte("mp3"))})
	}))
	defer srv.Close()

	e := New(Config{Endpoint: srv.URL, RequestsPerMinute: 6000})
	text := strings.Repeat("palabra ", 80)
	audio, err := e.Synthesize(context.Background(), text, "es_002", engine.SynthesisOptions{})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(calls) != 3 {
		t.Fatalf("calls = %d, want 3 chunks", len(calls))
	}
	for _, c := range calls {
		if c.Voice != "es_002" || len([]rune(c.Text)) > maxChunkRunes {
			t.Fatalf("bad chunk %+v", c)
		}
	}
	if string(audio.Data) != "mp3mp3mp3" {
		t.Fatalf("audio = %q", audio.Data)
	}
}

func TestSynthesizeProxyFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generationResponse{Success: false, Error: "voice not found"})
	}))
	defer srv.Close()

	e := New(Config{Endpoint: srv.URL})
	_, err := e.Synthesize(context.Background(), "hi", "", engine.SynthesisOptions{})
	if !errors.Is(err, errProxy) {
		t.Fatalf("err = %v", err)
	}
}

func TestSynthesizeStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	e := New(Config{Endpoint: srv.URL})
	_, err := e.Synthesize(context.Background(), "hi", "", engine.SynthesisOptions{})
	if engine.Classify(err) != engine.KindServer {
		t.Fatalf("kind = %q (%v)", engine.Classify(err), err)
	}
}

func TestDisabled(t *testing.T) {
	e := New(Config{Disabled: true})
	if e.Available() {
		t.Fatalf("disabled engine must be unavailable")
	}
	if _, err := e.Synthesize(context.Background(), "hi", "", engine.SynthesisOptions{}); !errors.Is(err, engine.ErrUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestSplitText(t *testing.T) {
	if got := splitText("  short  ", 10); len(got) != 1 || got[0] != "short" {
		t.Fatalf("got %q", got)
	}
	got := splitText("aaaa bbbb cccc", 9)
	if len(got) != 2 || got[0] != "aaaa bbbb" || got[1] != "cccc" {
		t.Fatalf("got %q", got)
	}
	if got := splitText("", 10); len(got) != 0 {
		t.Fatalf("got %q", got)
	}
}
