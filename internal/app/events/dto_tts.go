package events

import (
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
)

type TTSStatusDTO struct {
	State       string `json:"state"`
	QueueLength int    `json:"queue_length"`
	CurrentID   string `json:"current_id,omitempty"`
	LastError   string `json:"last_error,omitempty"`
	UpdatedAt   string `json:"updated_at"`
}

func NewTTSStatusDTO(state string, queueLength int, currentID, lastError string) TTSStatusDTO {
	return TTSStatusDTO{
		State:       state,
		QueueLength: queueLength,
		CurrentID:   currentID,
		LastError:   lastError,
		UpdatedAt:   now(),
	}
}

// TTSPlaybackDTO is sent on tts:started and tts:ended. Overlays use the duck
// fields to lower other audio while speech plays.
type TTSPlaybackDTO struct {
	ID             string  `json:"id"`
	Text           string  `json:"text,omitempty"`
	Voice          string  `json:"voice,omitempty"`
	Engine         string  `json:"engine,omitempty"`
	Fallback       bool    `json:"fallback,omitempty"`
	RequestedBy    string  `json:"requested_by,omitempty"`
	Volume         float64 `json:"volume"`
	DuckOtherAudio bool    `json:"duck_other_audio"`
	DuckVolume     int     `json:"duck_volume,omitempty"`
	DurationMs     int64   `json:"duration_ms,omitempty"`
	At             string  `json:"at"`
}

func NewTTSPlaybackDTO(ev domain.TTSEvent, duck bool, duckVolume int, durationMs int64) TTSPlaybackDTO {
	dto := TTSPlaybackDTO{
		ID:             ev.ID,
		Text:           ev.Text,
		Voice:          ev.Voice,
		Engine:         ev.Engine,
		Fallback:       ev.Fallback,
		RequestedBy:    ev.RequestedBy,
		Volume:         ev.Volume,
		DuckOtherAudio: duck,
		DurationMs:     durationMs,
		At:             now(),
	}
	if duck {
		dto.DuckVolume = duckVolume
	}
	return dto
}

type TTSErrorDTO struct {
	ID             string   `json:"id"`
	Text           string   `json:"text,omitempty"`
	RequestedBy    string   `json:"requested_by,omitempty"`
	Error          string   `json:"error"`
	Kinds          []string `json:"kinds,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
	At             string   `json:"at"`
}

type TTSClearedDTO struct {
	Removed int    `json:"removed"`
	At      string `json:"at"`
}

func NewTTSClearedDTO(removed int) TTSClearedDTO {
	return TTSClearedDTO{Removed: removed, At: now()}
}

type TTSSkippedDTO struct {
	ID          string `json:"id"`
	RequestedBy string `json:"requested_by,omitempty"`
	At          string `json:"at"`
}

func NewTTSSkippedDTO(id, requestedBy string) TTSSkippedDTO {
	return TTSSkippedDTO{ID: id, RequestedBy: requestedBy, At: now()}
}
