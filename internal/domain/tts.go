package domain

import (
	"context"
	"time"
)

// RequestSource tells where a speech request came from. It feeds the queue priority.
type RequestSource string

const (
	SourceChat   RequestSource = "chat"
	SourceManual RequestSource = "manual"
	SourceGift   RequestSource = "gift"
)

func (s RequestSource) Valid() bool {
	switch s {
	case SourceChat, SourceManual, SourceGift:
		return true
	}
	return false
}

type SynthesisRequest struct {
	ID            string
	Text          string
	RequesterID   string
	RequesterName string
	VoiceID       string
	EngineID      string
	// AssignedEngineID is the engine stored on the requester's permission row.
	AssignedEngineID string
	LanguageHint     string
	Speed            float64
	Volume           float64
	Source           RequestSource
	TeamLevel        int
	IsSubscriber     bool
	Platform         Platform
	ChannelID        string
	CreatedAt        time.Time
}

type QueueItem struct {
	Request         SynthesisRequest `json:"-"`
	ID              string           `json:"id"`
	Text            string           `json:"text"`
	Username        string           `json:"username"`
	Source          RequestSource    `json:"source"`
	Priority        int              `json:"priority"`
	EnqueuedAt      time.Time        `json:"enqueued_at"`
	Position        int              `json:"position"`
	EstimatedWaitMs int64            `json:"estimated_wait_ms"`
}

type TTSEvent struct {
	ID          string    `json:"id"`
	Voice       string    `json:"voice"`
	VoiceLabel  string    `json:"voice_label,omitempty"`
	Engine      string    `json:"engine"`
	Fallback    bool      `json:"fallback"`
	Text        string    `json:"text"`
	RequestedBy string    `json:"requested_by"`
	Platform    Platform  `json:"platform"`
	ChannelID   string    `json:"channel_id"`
	Volume      float64   `json:"volume"`
	Speed       float64   `json:"speed"`
	Timestamp   time.Time `json:"timestamp"`
	AudioBase64 string    `json:"audio_base64"`
}

type TTSEventPublisher interface {
	PublishTTSEvent(ctx context.Context, event TTSEvent) error
}
