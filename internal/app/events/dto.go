package events

import (
	"time"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
)

// ChatMessageDTO is the chat payload sent to dashboard clients.
type ChatMessageDTO struct {
	Platform     string `json:"platform"`
	ChannelID    string `json:"channel_id"`
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	Text         string `json:"text"`
	IsPrivate    bool   `json:"is_private"`
	IsSubscriber bool   `json:"is_subscriber"`
	TeamLevel    int    `json:"team_level"`
	Timestamp    string `json:"timestamp"`
}

func NewChatMessageDTO(msg domain.Message) ChatMessageDTO {
	return ChatMessageDTO{
		Platform:     string(msg.Platform),
		ChannelID:    msg.ChannelID,
		UserID:       msg.UserID,
		Username:     msg.Username,
		Text:         msg.Text,
		IsPrivate:    msg.IsPrivate,
		IsSubscriber: msg.IsSubscriber,
		TeamLevel:    msg.ResolveTeamLevel(),
		Timestamp:    now(),
	}
}

// AppErrorDTO reports failures that are not tied to a single request.
type AppErrorDTO struct {
	Source string `json:"source"`
	Error  string `json:"error"`
	At     string `json:"at"`
}

func NewAppErrorDTO(source string, err error) AppErrorDTO {
	return AppErrorDTO{Source: source, Error: errString(err), At: now()}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
