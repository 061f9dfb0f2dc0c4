package ws

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
	ttsusecase "github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/engine"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/permission"
)

type fakeTTS struct {
	submitted []ttsusecase.SubmitRequest
	submitErr error
	actions   []ttsusecase.UserAction
	settings  ttsusecase.Settings
	cleared   int
	skipped   bool
}

func (f *fakeTTS) Submit(_ context.Context, req ttsusecase.SubmitRequest) (domain.QueueItem, error) {
	if f.submitErr != nil {
		return domain.QueueItem{}, f.submitErr
	}
	f.submitted = append(f.submitted, req)
	return domain.QueueItem{ID: "req-1", Text: req.Text, Position: 2, EstimatedWaitMs: 6000}, nil
}

func (f *fakeTTS) Voices() []engine.Descriptor {
	return []engine.Descriptor{{ID: engine.IDTikTok, Available: true, DefaultVoice: "en_us_001"}}
}

func (f *fakeTTS) QueueStatus() ttsusecase.QueueStatus {
	return ttsusecase.QueueStatus{State: "idle", Length: 1, MaxSize: 100}
}

func (f *fakeTTS) ClearQueue(context.Context) (int, error) { return f.cleared, nil }

func (f *fakeTTS) SkipCurrent(context.Context) (bool, error) { return f.skipped, nil }

func (f *fakeTTS) Users(context.Context) ([]*domain.UserPermission, error) {
	return []*domain.UserPermission{{UserID: "u1", Username: "ana", AllowTTS: true}}, nil
}

func (f *fakeTTS) ManageUser(_ context.Context, a ttsusecase.UserAction) (*domain.UserPermission, error) {
	f.actions = append(f.actions, a)
	switch a.Action {
	case ttsusecase.UserDelete:
		return nil, nil
	case ttsusecase.UserAssignVoice:
		if a.VoiceID == "nope" {
			return nil, ttsusecase.ErrValidation
		}
	}
	return &domain.UserPermission{UserID: a.UserID, AssignedVoiceID: a.VoiceID}, nil
}

func (f *fakeTTS) Config() ttsusecase.Settings { return f.settings.Redacted() }

func (f *fakeTTS) SetConfig(_ context.Context, next ttsusecase.Settings) (ttsusecase.Settings, error) {
	if err := next.Validate(); err != nil {
		return f.settings.Redacted(), err
	}
	f.settings = next
	return next.Redacted(), nil
}

func newAPIServer(t *testing.T, svc *fakeTTS) *httptest.Server {
	t.Helper()
	s := NewServer(Config{TTS: svc, Logger: log.New(io.Discard)})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		json.Unmarshal(raw, &out)
	}
	return resp, out
}

func TestSpeakDefaultsToManual(t *testing.T) {
	svc := &fakeTTS{settings: ttsusecase.DefaultSettings()}
	srv := newAPIServer(t, svc)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/tts/speak", `{"text":"hola chat"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["position"].(float64) != 2 || body["estimated_wait_ms"].(float64) != 6000 {
		t.Fatalf("body = %v", body)
	}
	got := svc.submitted[0]
	if got.Source != domain.SourceManual || got.UserID != dashboardUser || got.Platform != domain.PlatformWeb {
		t.Fatalf("submitted = %+v", got)
	}
}

func TestSpeakErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ttsusecase.ErrEmptyText, http.StatusBadRequest},
		{&ttsusecase.PermissionError{Reason: permission.ReasonBlacklisted}, http.StatusForbidden},
		{ttsusecase.ErrRateLimited, http.StatusTooManyRequests},
		{ttsusecase.ErrFiltered, http.StatusUnprocessableEntity},
		{ttsusecase.ErrQueueFull, http.StatusServiceUnavailable},
		{ttsusecase.ErrDisabled, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		svc := &fakeTTS{submitErr: tc.err}
		srv := newAPIServer(t, svc)
		resp, body := do(t, http.MethodPost, srv.URL+"/api/tts/speak", `{"text":"x","source":"chat","user_id":"u"}`)
		if resp.StatusCode != tc.want {
			t.Fatalf("%v: status = %d, want %d", tc.err, resp.StatusCode, tc.want)
		}
		if body["error"] == "" {
			t.Fatalf("%v: missing error body", tc.err)
		}
	}

	srv := newAPIServer(t, &fakeTTS{})
	if resp, _ := do(t, http.MethodPost, srv.URL+"/api/tts/speak", `{`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad json status = %d", resp.StatusCode)
	}
}

func TestQueueEndpoints(t *testing.T) {
	svc := &fakeTTS{cleared: 3, skipped: true}
	srv := newAPIServer(t, svc)

	if resp, body := do(t, http.MethodGet, srv.URL+"/api/tts/queue", ""); resp.StatusCode != http.StatusOK || body["max_size"].(float64) != 100 {
		t.Fatalf("queue status = %d %v", resp.StatusCode, body)
	}
	if _, body := do(t, http.MethodPost, srv.URL+"/api/tts/queue/clear", ""); body["removed"].(float64) != 3 {
		t.Fatalf("clear = %v", body)
	}
	if _, body := do(t, http.MethodPost, srv.URL+"/api/tts/queue/skip", ""); body["skipped"] != true {
		t.Fatalf("skip = %v", body)
	}
	if _, body := do(t, http.MethodGet, srv.URL+"/api/tts/voices", ""); len(body["engines"].([]any)) != 1 {
		t.Fatalf("voices = %v", body)
	}
}

func TestUserEndpoints(t *testing.T) {
	svc := &fakeTTS{}
	srv := newAPIServer(t, svc)

	if _, body := do(t, http.MethodGet, srv.URL+"/api/tts/users", ""); len(body["users"].([]any)) != 1 {
		t.Fatalf("users = %v", body)
	}

	resp, body := do(t, http.MethodPost, srv.URL+"/api/tts/users", `{"action":"assign_voice","user_id":"u1","voice_id":"de_001"}`)
	if resp.StatusCode != http.StatusOK || body["assigned_voice_id"] != "de_001" {
		t.Fatalf("assign = %d %v", resp.StatusCode, body)
	}
	if resp, _ := do(t, http.MethodPost, srv.URL+"/api/tts/users", `{"action":"assign_voice","user_id":"u1","voice_id":"nope"}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid voice status = %d", resp.StatusCode)
	}
	if resp, _ := do(t, http.MethodDelete, srv.URL+"/api/tts/users/u1", ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	last := svc.actions[len(svc.actions)-1]
	if last.Action != ttsusecase.UserDelete || last.UserID != "u1" {
		t.Fatalf("last action = %+v", last)
	}
}

func TestConfigEndpoints(t *testing.T) {
	st := ttsusecase.DefaultSettings()
	st.APIKeys.Google = "secret-google-key"
	svc := &fakeTTS{settings: st}
	srv := newAPIServer(t, svc)

	_, body := do(t, http.MethodGet, srv.URL+"/api/tts/config", "")
	keys := body["apiKeys"].(map[string]any)
	if keys["google"] != "****-key" {
		t.Fatalf("key should be redacted: %v", keys)
	}

	resp, body := do(t, http.MethodPut, srv.URL+"/api/tts/config", `{"volume":42}`)
	if resp.StatusCode != http.StatusOK || body["volume"].(float64) != 42 {
		t.Fatalf("put = %d %v", resp.StatusCode, body)
	}
	if svc.settings.DefaultEngine != engine.IDTikTok {
		t.Fatalf("omitted fields must keep their value: %+v", svc.settings)
	}

	if resp, _ := do(t, http.MethodPut, srv.URL+"/api/tts/config", `{"volume":420}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid config status = %d", resp.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newAPIServer(t, &fakeTTS{})
	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/tts/speak", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent || resp.Header.Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("preflight = %d %v", resp.StatusCode, resp.Header)
	}
}

func TestMissingService(t *testing.T) {
	s := NewServer(Config{Logger: log.New(io.Discard)})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	if resp, _ := do(t, http.MethodGet, srv.URL+"/api/tts/queue", ""); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
