package engine

import "strings"

type Voice struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Lang   string `json:"lang"`
	Gender string `json:"gender,omitempty"`
}

// VoiceCatalog is the static voice table shared by the provider adapters.
type VoiceCatalog struct {
	voices       []Voice
	byID         map[string]Voice
	byLang       map[string]string
	defaultVoice string
}

// NewVoiceCatalog builds a catalog. langDefaults maps a base language code to
// the voice used when text in that language arrives with an incompatible voice.
func NewVoiceCatalog(defaultVoice string, langDefaults map[string]string, voices ...Voice) *VoiceCatalog {
	c := &VoiceCatalog{
		voices:       append([]Voice(nil), voices...),
		byID:         make(map[string]Voice, len(voices)),
		byLang:       make(map[string]string, len(langDefaults)),
		defaultVoice: defaultVoice,
	}
	for _, v := range voices {
		c.byID[v.ID] = v
	}
	for lang, id := range langDefaults {
		c.byLang[BaseLanguage(lang)] = id
	}
	return c
}

func (c *VoiceCatalog) Voices() []Voice {
	return append([]Voice(nil), c.voices...)
}

func (c *VoiceCatalog) HasVoice(id string) bool {
	_, ok := c.byID[id]
	return ok
}

func (c *VoiceCatalog) Voice(id string) (Voice, bool) {
	v, ok := c.byID[id]
	return v, ok
}

func (c *VoiceCatalog) DefaultVoice() string {
	return c.defaultVoice
}

// DefaultVoiceForLanguage returns "" when the catalog has no voice for lang.
func (c *VoiceCatalog) DefaultVoiceForLanguage(lang string) string {
	return c.byLang[BaseLanguage(lang)]
}

// BaseLanguage reduces "en-US" or "pt_br" to "en" / "pt".
func BaseLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if idx := strings.IndexAny(lang, "-_"); idx > 0 {
		return lang[:idx]
	}
	return lang
}
