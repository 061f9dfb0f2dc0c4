package langdetect

import (
	"context"
	"strings"
	"testing"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/engine"
)

func TestDetectGerman(t *testing.T) {
	d := New(0)
	res := d.Detect("Guten Morgen, wie geht es dir heute und was hast du heute alles vor?")
	if res.Lang != "de" {
		t.Fatalf("lang = %q, want de", res.Lang)
	}
	if !res.Detected {
		t.Fatalf("expected detected result")
	}
	if res.Confidence < 0.8 {
		t.Fatalf("confidence = %v, want >= 0.8", res.Confidence)
	}
}

func TestDetectUnknownFallsBackToEnglish(t *testing.T) {
	d := New(0)
	for _, text := range []string{"", "   ", "1234 !!! ???", "🎉🎉🎉"} {
		res := d.Detect(text)
		if res.Lang != DefaultLanguage || res.Detected {
			t.Fatalf("Detect(%q) = %+v, want undetected en", text, res)
		}
	}
}

func TestDetectShortChatIsUndetected(t *testing.T) {
	d := New(0)
	for _, text := range []string{"hello", "pog", "xD haha", "lol", "gg wp", "KEKW KEKW"} {
		res := d.Detect(text)
		if res.Lang != DefaultLanguage || res.Detected || res.Confidence != 0 {
			t.Fatalf("Detect(%q) = %+v, want undetected en", text, res)
		}
	}
}

func TestCountLetters(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0}, {"xD haha", 6}, {"12 ab!", 2}, {"größe", 5},
	}
	for _, tc := range cases {
		if got := countLetters(tc.in); got != tc.want {
			t.Fatalf("countLetters(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestLengthConfidence(t *testing.T) {
	cases := []struct {
		n    int
		want float64
	}{
		{0, 0.3}, {9, 0.3}, {10, 0.5}, {19, 0.5}, {20, 0.7}, {49, 0.7}, {50, 0.8}, {99, 0.8}, {100, 0.9}, {500, 0.9},
	}
	for _, tc := range cases {
		if got := lengthConfidence(tc.n); got != tc.want {
			t.Fatalf("lengthConfidence(%d) = %v, want %v", tc.n, got, tc.want)
		}
	}
}

func TestCacheKeyUsesPrefix(t *testing.T) {
	d := New(10)
	base := strings.Repeat("hello world this is a long english sentence ", 5)
	d.Detect(base + "tail one")
	d.Detect(base + "tail two")
	if d.Len() != 1 {
		t.Fatalf("cache len = %d, want 1 (shared 100-rune prefix)", d.Len())
	}
}

func TestCacheIsBounded(t *testing.T) {
	d := New(3)
	for _, s := range []string{"one", "two", "three", "four", "five"} {
		d.Detect(s)
	}
	if d.Len() != 3 {
		t.Fatalf("cache len = %d, want 3", d.Len())
	}
}

func TestDetectAndGetVoice(t *testing.T) {
	cat := engine.NewVoiceCatalog("en_us_001", map[string]string{"de": "de_001"},
		engine.Voice{ID: "en_us_001", Lang: "en"}, engine.Voice{ID: "de_001", Lang: "de"})
	e := &catalogEngine{VoiceCatalog: cat}
	d := New(0)

	voice, res := d.DetectAndGetVoice("Guten Morgen, wie geht es dir heute und was hast du heute alles vor?", e)
	if voice != "de_001" || res.Lang != "de" {
		t.Fatalf("got voice %q lang %q", voice, res.Lang)
	}
	voice, _ = d.DetectAndGetVoice("???", e)
	if voice != "en_us_001" {
		t.Fatalf("fallback voice = %q, want engine default", voice)
	}
}

type catalogEngine struct {
	*engine.VoiceCatalog
}

func (catalogEngine) ID() string          { return "cat" }
func (catalogEngine) DisplayName() string { return "cat" }
func (catalogEngine) Available() bool     { return true }
func (catalogEngine) Synthesize(_ context.Context, _, _ string, _ engine.SynthesisOptions) (*engine.Audio, error) {
	return nil, nil
}
