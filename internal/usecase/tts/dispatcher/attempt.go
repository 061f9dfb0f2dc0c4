package dispatcher

import (
	"fmt"
	"strings"
	"time"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/engine"
)

type Outcome string

const (
	OutcomeSkipped   Outcome = "skipped-unavailable"
	OutcomeFailed    Outcome = "failed"
	OutcomeSucceeded Outcome = "succeeded"
)

type AttemptRecord struct {
	EngineID     string           `json:"engine_id"`
	VoiceID      string           `json:"voice_id,omitempty"`
	Outcome      Outcome          `json:"outcome"`
	ErrorKind    engine.ErrorKind `json:"error_kind,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
	Duration     time.Duration    `json:"duration"`
}

// AggregateError is returned when no engine in the chain produced audio.
type AggregateError struct {
	Primary        string
	Attempts       []AttemptRecord
	Recommendation string
}

func newAggregateError(primary string, attempts []AttemptRecord) *AggregateError {
	e := &AggregateError{Primary: primary, Attempts: attempts}
	e.Recommendation = recommend(attempts)
	return e
}

func (e *AggregateError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Outcome == OutcomeSkipped {
			parts = append(parts, a.EngineID+"=skipped")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s", a.EngineID, a.ErrorKind))
	}
	return fmt.Sprintf("dispatcher: all engines failed (%s)", strings.Join(parts, ", "))
}

// Kinds lists the distinct error kinds of failed attempts in order of appearance.
func (e *AggregateError) Kinds() []engine.ErrorKind {
	var kinds []engine.ErrorKind
	seen := map[engine.ErrorKind]bool{}
	for _, a := range e.Attempts {
		if a.Outcome != OutcomeFailed || seen[a.ErrorKind] {
			continue
		}
		seen[a.ErrorKind] = true
		kinds = append(kinds, a.ErrorKind)
	}
	return kinds
}

func recommend(attempts []AttemptRecord) string {
	var auth, quota, network, skipped []string
	failed := 0
	for _, a := range attempts {
		switch {
		case a.Outcome == OutcomeSkipped:
			skipped = append(skipped, a.EngineID)
			continue
		case a.ErrorKind == engine.KindAuth:
			auth = append(auth, a.EngineID)
		case a.ErrorKind == engine.KindQuota:
			quota = append(quota, a.EngineID)
		case a.ErrorKind == engine.KindNetwork || a.ErrorKind == engine.KindTimeout:
			network = append(network, a.EngineID)
		}
		failed++
	}

	var tips []string
	if failed == 0 {
		return "No engine is configured. Add an API key or enable the TikTok engine."
	}
	if len(auth) > 0 {
		tips = append(tips, "Check the API keys for "+strings.Join(auth, ", ")+".")
	}
	if len(quota) > 0 {
		tips = append(tips, "Quota or rate limit reached on "+strings.Join(quota, ", ")+"; wait or upgrade the plan.")
	}
	if len(network) > 0 {
		tips = append(tips, "Check the network connection; "+strings.Join(network, ", ")+" timed out or was unreachable.")
	}
	if len(skipped) > 0 {
		tips = append(tips, "Configure "+strings.Join(skipped, ", ")+" to widen the fallback chain.")
	}
	if len(tips) == 0 {
		tips = append(tips, "Providers rejected the request; try a different voice or shorter text.")
	}
	return strings.Join(tips, " ")
}
