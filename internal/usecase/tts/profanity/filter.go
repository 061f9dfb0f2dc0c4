// Package profanity scrubs offensive words from text before it is spoken.
package profanity

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

type Mode string

const (
	ModeOff      Mode = "off"
	ModeModerate Mode = "moderate"
	ModeStrict   Mode = "strict"
)

type Strategy string

const (
	StrategyAsterisk Strategy = "asterisk"
	StrategyBeep     Strategy = "beep"
	StrategyBlank    Strategy = "blank"
	StrategyCustom   Strategy = "custom"
)

type Action string

const (
	ActionPass    Action = "pass"
	ActionReplace Action = "replace"
	ActionDrop    Action = "drop"
)

// CustomLanguage tags words added at runtime without a language.
const CustomLanguage = "custom"

const beepWord = "beep"

// minPrefixLen guards short words from matching inside longer, harmless ones.
const minPrefixLen = 4

type Match struct {
	Word string `json:"word"`
	Lang string `json:"lang"`
}

type Result struct {
	Filtered     string  `json:"filtered"`
	HasProfanity bool    `json:"has_profanity"`
	Matches      []Match `json:"matches,omitempty"`
	Action       Action  `json:"action"`
}

type Config struct {
	Mode        Mode
	Strategy    Strategy
	Replacement string
	// Words extends the built-in lists, keyed by language code.
	Words map[string][]string
}

type Filter struct {
	mu          sync.RWMutex
	mode        Mode
	strategy    Strategy
	replacement string
	words       map[string]map[string]struct{}
	// prefixes holds, per language, the sorted words long enough for the
	// prefix pass.
	prefixes map[string][]string
}

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeOff, ModeModerate, ModeStrict:
		return m, nil
	case "":
		return ModeModerate, nil
	}
	return "", fmt.Errorf("profanity: unknown mode %q", s)
}

func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategyAsterisk, StrategyBeep, StrategyBlank, StrategyCustom:
		return st, nil
	case "":
		return StrategyAsterisk, nil
	}
	return "", fmt.Errorf("profanity: unknown strategy %q", s)
}

func New(cfg Config) *Filter {
	f := &Filter{
		words:    make(map[string]map[string]struct{}),
		prefixes: make(map[string][]string),
	}
	for lang, list := range builtinWords {
		f.addLocked(lang, list)
	}
	for lang, list := range cfg.Words {
		f.addLocked(lang, list)
	}
	f.Configure(cfg.Mode, cfg.Strategy, cfg.Replacement)
	return f
}

func (f *Filter) Configure(mode Mode, strategy Strategy, replacement string) {
	if mode == "" {
		mode = ModeModerate
	}
	if strategy == "" {
		strategy = StrategyAsterisk
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode = mode
	f.strategy = strategy
	f.replacement = replacement
}

func (f *Filter) Mode() Mode {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.mode
}

// AddWords extends the list for lang. An empty lang stores the words as custom,
// which are checked for every language.
func (f *Filter) AddWords(lang string, words ...string) {
	if lang == "" {
		lang = CustomLanguage
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addLocked(lang, words)
}

func (f *Filter) addLocked(lang string, words []string) {
	lang = baseLanguage(lang)
	set := f.words[lang]
	if set == nil {
		set = make(map[string]struct{}, len(words))
		f.words[lang] = set
	}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	var prefixes []string
	for w := range set {
		if utf8.RuneCountInString(w) >= minPrefixLen {
			prefixes = append(prefixes, w)
		}
	}
	sort.Strings(prefixes)
	f.prefixes[lang] = prefixes
}

// Filter checks text against the lists for lang, English and custom words.
func (f *Filter) Filter(text, lang string) Result {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.mode == ModeOff {
		return Result{Filtered: text, Action: ActionPass}
	}

	langs := f.languagesFor(baseLanguage(lang))
	var (
		matches []Match
		out     strings.Builder
		last    int
	)
	for _, tok := range tokenize(text) {
		word := strings.ToLower(text[tok.start:tok.end])
		matchLang, ok := f.lookup(word, langs)
		if !ok {
			continue
		}
		matches = append(matches, Match{Word: word, Lang: matchLang})
		out.WriteString(text[last:tok.start])
		out.WriteString(f.replace(text[tok.start:tok.end]))
		last = tok.end
	}
	if len(matches) == 0 {
		return Result{Filtered: text, Action: ActionPass}
	}
	out.WriteString(text[last:])

	if f.mode == ModeStrict {
		return Result{HasProfanity: true, Matches: matches, Action: ActionDrop}
	}
	filtered := out.String()
	if f.strategy == StrategyBlank {
		filtered = strings.Join(strings.Fields(filtered), " ")
	}
	return Result{Filtered: filtered, HasProfanity: true, Matches: matches, Action: ActionReplace}
}

func (f *Filter) languagesFor(lang string) []string {
	langs := make([]string, 0, 3)
	if lang != "" {
		langs = append(langs, lang)
	}
	if lang != "en" {
		langs = append(langs, "en")
	}
	langs = append(langs, CustomLanguage)
	return langs
}

func (f *Filter) lookup(word string, langs []string) (string, bool) {
	for _, lang := range langs {
		set := f.words[lang]
		if _, ok := set[word]; ok {
			return lang, true
		}
	}
	// prefix pass catches inflections like "shitty" or "scheißegal"
	for _, lang := range langs {
		for _, bad := range f.prefixes[lang] {
			if strings.HasPrefix(word, bad) {
				return lang, true
			}
		}
	}
	return "", false
}

func (f *Filter) replace(word string) string {
	switch f.strategy {
	case StrategyBeep:
		return beepWord
	case StrategyBlank:
		return ""
	case StrategyCustom:
		return f.replacement
	default:
		return strings.Repeat("*", utf8.RuneCountInString(word))
	}
}

type token struct{ start, end int }

func tokenize(text string) []token {
	var (
		tokens []token
		start  = -1
	)
	for i, r := range text {
		inWord := unicode.IsLetter(r) || unicode.IsDigit(r)
		switch {
		case inWord && start < 0:
			start = i
		case !inWord && start >= 0:
			tokens = append(tokens, token{start, i})
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{start, len(text)})
	}
	return tokens
}

func baseLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if idx := strings.IndexAny(lang, "-_"); idx > 0 {
		return lang[:idx]
	}
	return lang
}
