// Package enginetest provides a scriptable engine for tests.
package enginetest

import (
	"context"
	"sync"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/engine"
)

type Call struct {
	Text    string
	VoiceID string
	Opts    engine.SynthesisOptions
}

// Fake is an in-memory engine. Errs are returned in order, one per call; once
// exhausted Synthesize succeeds with Audio.
type Fake struct {
	*engine.VoiceCatalog

	IDValue     string
	Unavailable bool
	Errs        []error
	Audio       []byte
	// Block makes Synthesize wait for ctx cancellation.
	Block bool

	mu    sync.Mutex
	calls []Call
}

func New(id string, catalog *engine.VoiceCatalog) *Fake {
	if catalog == nil {
		catalog = engine.NewVoiceCatalog(id+"-default", nil, engine.Voice{ID: id + "-default", Lang: "en"})
	}
	return &Fake{VoiceCatalog: catalog, IDValue: id, Audio: []byte("audio-" + id)}
}

func (f *Fake) ID() string          { return f.IDValue }
func (f *Fake) DisplayName() string { return f.IDValue }
func (f *Fake) Available() bool     { return !f.Unavailable }

func (f *Fake) Synthesize(ctx context.Context, text, voiceID string, opts engine.SynthesisOptions) (*engine.Audio, error) {
	f.mu.Lock()
	n := len(f.calls)
	f.calls = append(f.calls, Call{Text: text, VoiceID: voiceID, Opts: opts})
	var err error
	if n < len(f.Errs) {
		err = f.Errs[n]
	}
	block := f.Block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return &engine.Audio{Data: append([]byte(nil), f.Audio...), ContentType: "audio/mpeg"}, nil
}

func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

var _ engine.Engine = (*Fake)(nil)
