package dispatcher

import (
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/engine"
)

// CredentialFreeEngine needs no API key and closes every chain.
const CredentialFreeEngine = engine.IDTikTok

// Chains maps a primary engine id to the ordered engines tried after it.
type Chains map[string][]string

func DefaultChains() Chains {
	return Chains{
		engine.IDSpeechify:  {engine.IDElevenLabs, engine.IDGoogle, engine.IDTikTok},
		engine.IDGoogle:     {engine.IDElevenLabs, engine.IDSpeechify, engine.IDTikTok},
		engine.IDElevenLabs: {engine.IDSpeechify, engine.IDGoogle, engine.IDTikTok},
		engine.IDTikTok:     {engine.IDElevenLabs, engine.IDSpeechify, engine.IDGoogle},
	}
}

// Normalize returns a copy in which no chain contains its own primary or a
// duplicate, and every chain for a primary other than the credential-free
// engine ends with it.
func (c Chains) Normalize() Chains {
	out := make(Chains, len(c))
	for primary, chain := range c {
		out[primary] = normalizeChain(primary, chain)
	}
	return out
}

func (c Chains) For(primary string) []string {
	if chain, ok := c[primary]; ok {
		return append([]string(nil), chain...)
	}
	return normalizeChain(primary, nil)
}

func normalizeChain(primary string, chain []string) []string {
	seen := map[string]bool{primary: true}
	out := make([]string, 0, len(chain)+1)
	for _, id := range chain {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	if !seen[CredentialFreeEngine] {
		out = append(out, CredentialFreeEngine)
	}
	return out
}
