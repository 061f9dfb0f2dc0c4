// Package langdetect guesses the language of chat text so the dispatcher can
// route it to a matching voice.
package langdetect

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/engine"
)

const (
	DefaultLanguage  = "en"
	defaultCacheSize = 1000
	cacheKeyRunes    = 100

	// minLetters is the shortest input the classifier is asked about.
	minLetters = 10
	// Below longTextRunes the classifier's own confidence must reach
	// reliableConfidence; short chat lines are too often mislabelled.
	longTextRunes      = 50
	reliableConfidence = 0.8
)

type Result struct {
	Lang       string  `json:"lang"`
	Confidence float64 `json:"confidence"`
	Detected   bool    `json:"detected"`
}

// supported restricts the classifier to languages the engines have voices for.
var supported = map[whatlanggo.Lang]bool{
	whatlanggo.Eng: true,
	whatlanggo.Deu: true,
	whatlanggo.Spa: true,
	whatlanggo.Fra: true,
	whatlanggo.Por: true,
	whatlanggo.Ita: true,
	whatlanggo.Nld: true,
	whatlanggo.Pol: true,
	whatlanggo.Tur: true,
	whatlanggo.Rus: true,
	whatlanggo.Jpn: true,
	whatlanggo.Kor: true,
	whatlanggo.Cmn: true,
}

type Detector struct {
	cache *lru.Cache[string, Result]
	opts  whatlanggo.Options
}

func New(cacheSize int) *Detector {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, Result](cacheSize)
	if err != nil {
		// only fails for size <= 0
		panic(err)
	}
	return &Detector{
		cache: cache,
		opts:  whatlanggo.Options{Whitelist: supported},
	}
}

// Detect never fails: unrecognised input yields DefaultLanguage with Detected=false.
func (d *Detector) Detect(text string) Result {
	text = strings.TrimSpace(text)
	key := cacheKey(text)
	if res, ok := d.cache.Get(key); ok {
		return res
	}
	res := d.detect(text)
	d.cache.Add(key, res)
	return res
}

func (d *Detector) detect(text string) Result {
	undetected := Result{Lang: DefaultLanguage, Confidence: 0, Detected: false}
	if countLetters(text) < minLetters {
		return undetected
	}
	info := whatlanggo.DetectWithOptions(text, d.opts)
	if info.Lang < 0 || !supported[info.Lang] || info.Confidence <= 0 {
		return undetected
	}
	n := utf8.RuneCountInString(text)
	if n < longTextRunes && info.Confidence < reliableConfidence {
		return undetected
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return undetected
	}
	return Result{Lang: code, Confidence: lengthConfidence(n), Detected: true}
}

// DetectAndGetVoice returns the engine's voice for the detected language, or
// the engine default when it has none.
func (d *Detector) DetectAndGetVoice(text string, e engine.Engine) (string, Result) {
	res := d.Detect(text)
	if e == nil {
		return "", res
	}
	if voice := e.DefaultVoiceForLanguage(res.Lang); voice != "" {
		return voice, res
	}
	return e.DefaultVoice(), res
}

func (d *Detector) Len() int {
	return d.cache.Len()
}

func lengthConfidence(n int) float64 {
	switch {
	case n < 10:
		return 0.3
	case n < 20:
		return 0.5
	case n < 50:
		return 0.7
	case n < 100:
		return 0.8
	}
	return 0.9
}

func cacheKey(text string) string {
	if utf8.RuneCountInString(text) <= cacheKeyRunes {
		return text
	}
	return string([]rune(text)[:cacheKeyRunes])
}

func countLetters(text string) int {
	n := 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
