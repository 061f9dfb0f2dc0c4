package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"unauthorized", &StatusError{Engine: "x", StatusCode: 401}, KindAuth},
		{"forbidden", &StatusError{Engine: "x", StatusCode: 403}, KindAuth},
		{"quota", &StatusError{Engine: "x", StatusCode: 429}, KindQuota},
		{"not found", &StatusError{Engine: "x", StatusCode: 404}, KindNotFound},
		{"bad request", &StatusError{Engine: "x", StatusCode: 422}, KindBadRequest},
		{"server", &StatusError{Engine: "x", StatusCode: 503}, KindServer},
		{"wrapped status", fmt.Errorf("tiktok: %w", &StatusError{Engine: "x", StatusCode: 500}), KindServer},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), KindTimeout},
		{"canceled", context.Canceled, KindCanceled},
		{"url", &url.Error{Op: "Post", URL: "http://x", Err: errors.New("connection refused")}, KindNetwork},
		{"other", errors.New("boom"), KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Fatalf("Classify(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}

func TestRetriable(t *testing.T) {
	for _, k := range []ErrorKind{KindNetwork, KindTimeout, KindServer} {
		if !k.Retriable() {
			t.Fatalf("%s should be retriable", k)
		}
	}
	for _, k := range []ErrorKind{KindAuth, KindQuota, KindNotFound, KindBadRequest, KindCanceled, KindUnknown} {
		if k.Retriable() {
			t.Fatalf("%s should not be retriable", k)
		}
	}
}

func TestVoiceCatalog(t *testing.T) {
	c := NewVoiceCatalog("en_us_001", map[string]string{"de": "de_001", "en-US": "en_us_001"},
		Voice{ID: "en_us_001", Lang: "en"},
		Voice{ID: "de_001", Lang: "de"},
	)
	if !c.HasVoice("de_001") || c.HasVoice("fr_001") {
		t.Fatalf("unexpected HasVoice results")
	}
	if got := c.DefaultVoiceForLanguage("de-DE"); got != "de_001" {
		t.Fatalf("DefaultVoiceForLanguage(de-DE) = %q", got)
	}
	if got := c.DefaultVoiceForLanguage("en"); got != "en_us_001" {
		t.Fatalf("DefaultVoiceForLanguage(en) = %q", got)
	}
	if got := c.DefaultVoiceForLanguage("ja"); got != "" {
		t.Fatalf("DefaultVoiceForLanguage(ja) = %q, want empty", got)
	}
}

type keyed struct {
	*VoiceCatalog
	key string
}

func (k *keyed) ID() string           { return "keyed" }
func (k *keyed) DisplayName() string  { return "Keyed" }
func (k *keyed) Available() bool      { return k.key != "" }
func (k *keyed) SetAPIKey(key string) { k.key = key }
func (k *keyed) Synthesize(context.Context, string, string, SynthesisOptions) (*Audio, error) {
	return nil, nil
}

func TestRegistry(t *testing.T) {
	k := &keyed{VoiceCatalog: NewVoiceCatalog("v", nil, Voice{ID: "v"})}
	r := NewRegistry(k)

	if _, ok := r.Get("missing"); ok {
		t.Fatalf("expected missing engine")
	}
	if r.Catalog()[0].Available {
		t.Fatalf("engine without key should be unavailable")
	}
	if !r.SetAPIKey("keyed", "secret") {
		t.Fatalf("SetAPIKey should reach keyed engine")
	}
	if !r.Catalog()[0].Available {
		t.Fatalf("engine with key should be available")
	}
	if r.SetAPIKey("missing", "x") {
		t.Fatalf("SetAPIKey on unknown engine should fail")
	}
}
