// Package engine defines the contract every speech provider adapter fulfils
// and the registry the dispatcher resolves engines from.
package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// Engine ids known to the bot.
const (
	IDElevenLabs = "elevenlabs"
	IDGoogle     = "google"
	IDSpeechify  = "speechify"
	IDTikTok     = "tiktok"
)

var (
	ErrUnavailable   = errors.New("engine: unavailable")
	ErrUnknownEngine = errors.New("engine: unknown engine")
	ErrEmptyAudio    = errors.New("engine: empty audio")
)

type Audio struct {
	Data        []byte
	ContentType string
}

type SynthesisOptions struct {
	Speed float64
	// Lang is the resolved language of the text, if known.
	Lang string
}

// Engine is a speech provider. Available reports whether the engine has what it
// needs (credentials, endpoint) to be attempted at all.
type Engine interface {
	ID() string
	DisplayName() string
	Available() bool
	Voices() []Voice
	HasVoice(voiceID string) bool
	DefaultVoice() string
	DefaultVoiceForLanguage(lang string) string
	Synthesize(ctx context.Context, text, voiceID string, opts SynthesisOptions) (*Audio, error)
}

// KeyedEngine is implemented by engines that need an API key.
type KeyedEngine interface {
	Engine
	SetAPIKey(key string)
}

type Descriptor struct {
	ID           string  `json:"id"`
	DisplayName  string  `json:"display_name"`
	Available    bool    `json:"available"`
	DefaultVoice string  `json:"default_voice"`
	Voices       []Voice `json:"voices"`
}

func Describe(e Engine) Descriptor {
	return Descriptor{
		ID:           e.ID(),
		DisplayName:  e.DisplayName(),
		Available:    e.Available(),
		DefaultVoice: e.DefaultVoice(),
		Voices:       e.Voices(),
	}
}

type Registry struct {
	mu      sync.RWMutex
	engines map[string]Engine
}

func NewRegistry(engines ...Engine) *Registry {
	r := &Registry{engines: make(map[string]Engine, len(engines))}
	for _, e := range engines {
		r.Register(e)
	}
	return r
}

func (r *Registry) Register(e Engine) {
	if e == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[e.ID()] = e
}

func (r *Registry) Get(id string) (Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[id]
	return e, ok
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.engines))
	for id := range r.engines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Catalog describes every registered engine, sorted by id.
func (r *Registry) Catalog() []Descriptor {
	ids := r.IDs()
	out := make([]Descriptor, 0, len(ids))
	for _, id := range ids {
		if e, ok := r.Get(id); ok {
			out = append(out, Describe(e))
		}
	}
	return out
}

// SetAPIKey forwards a key to the engine if it accepts one.
func (r *Registry) SetAPIKey(id, key string) bool {
	e, ok := r.Get(id)
	if !ok {
		return false
	}
	keyed, ok := e.(KeyedEngine)
	if !ok {
		return false
	}
	keyed.SetAPIKey(key)
	return true
}
