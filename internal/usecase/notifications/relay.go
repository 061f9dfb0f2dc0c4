// Package notifications turns platform events (subs, gifts) into speech requests.
package notifications

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/adeithe/go-twitch/irc"
	"github.com/charmbracelet/log"
	kickchatwrapper "github.com/johanvandegriff/kick-chat-wrapper"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
	ttsusecase "github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts"
)

type Submitter interface {
	Enabled() bool
	Submit(ctx context.Context, req ttsusecase.SubmitRequest) (domain.QueueItem, error)
}

// twitch USERNOTICE msg-id values that carry a viewer message
var twitchGiftTypes = map[string]bool{
	"sub":            true,
	"resub":          true,
	"subgift":        true,
	"submysterygift": true,
}

// Relay reads the message attached to a sub or gift with gift priority.
// Every other event is logged for later ingestion.
type Relay struct {
	speaker Submitter
	logger  *log.Logger
	now     func() time.Time
}

func NewRelay(speaker Submitter, logger *log.Logger) *Relay {
	if logger == nil {
		logger = log.Default()
	}
	return &Relay{
		speaker: speaker,
		logger:  logger.WithPrefix("events"),
		now:     time.Now,
	}
}

func (r *Relay) HandleTwitchUserNotice(ctx context.Context, notice irc.UserNotice) {
	req, ok := FromTwitchNotice(notice)
	if !ok {
		r.logPayload("twitch", map[string]any{
			"event_type": notice.Type,
			"channel":    notice.IRCMessage.Params,
			"message":    notice.Message,
			"raw_tags":   notice.IRCMessage.Tags,
		})
		return
	}
	r.submit(ctx, req)
}

// HandleKickMessage receives every raw chatroom frame; plain chat is ignored here.
func (r *Relay) HandleKickMessage(ctx context.Context, msg kickchatwrapper.ChatMessage) {
	if isKickChat(msg.Type) {
		return
	}
	req, ok := FromKickEvent(msg)
	if !ok {
		r.logPayload("kick", map[string]any{
			"event_type":  msg.Type,
			"chatroom_id": msg.ChatroomID,
			"payload":     msg,
		})
		return
	}
	r.submit(ctx, req)
}

func (r *Relay) submit(ctx context.Context, req ttsusecase.SubmitRequest) {
	if r.speaker == nil || !r.speaker.Enabled() {
		return
	}
	item, err := r.speaker.Submit(ctx, req)
	if err != nil {
		r.logger.Info("gift message not read", "user", req.Username, "platform", req.Platform, "err", err)
		return
	}
	r.logger.Info("gift message queued", "id", item.ID, "user", req.Username, "priority", item.Priority)
}

func (r *Relay) logPayload(source string, payload map[string]any) {
	payload["timestamp"] = r.now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.Debug("platform event", "source", source, "payload", payload)
		return
	}
	r.logger.Debug("platform event", "source", source, "payload", string(data))
}

// FromTwitchNotice maps a sub or gift USERNOTICE with a message to a gift request.
func FromTwitchNotice(notice irc.UserNotice) (ttsusecase.SubmitRequest, bool) {
	text := strings.TrimSpace(notice.Message)
	if text == "" || !twitchGiftTypes[strings.ToLower(notice.Type)] {
		return ttsusecase.SubmitRequest{}, false
	}
	sender := notice.Sender
	level := domain.TeamLevelSubscriber
	switch {
	case sender.IsBroadcaster:
		level = domain.TeamLevelBroadcaster
	case sender.IsModerator:
		level = domain.TeamLevelModerator
	case sender.IsVIP:
		level = domain.TeamLevelVip
	}
	channel := ""
	if len(notice.IRCMessage.Params) > 0 {
		channel = notice.IRCMessage.Params[0]
	}
	return ttsusecase.SubmitRequest{
		UserID:       strconv.FormatInt(sender.ID, 10),
		Username:     sender.DisplayName,
		Text:         text,
		Source:       domain.SourceGift,
		TeamLevel:    level,
		IsSubscriber: true,
		Platform:     domain.PlatformTwitch,
		ChannelID:    channel,
	}, true
}

// FromKickEvent maps Kick subscription and gift frames with content to a gift request.
func FromKickEvent(msg kickchatwrapper.ChatMessage) (ttsusecase.SubmitRequest, bool) {
	kind := strings.ToLower(msg.Type)
	text := strings.TrimSpace(msg.Content)
	if text == "" || !(strings.Contains(kind, "gift") || strings.Contains(kind, "subscription")) {
		return ttsusecase.SubmitRequest{}, false
	}
	return ttsusecase.SubmitRequest{
		UserID:       strconv.Itoa(msg.Sender.ID),
		Username:     msg.Sender.Username,
		Text:         text,
		Source:       domain.SourceGift,
		TeamLevel:    domain.TeamLevelSubscriber,
		IsSubscriber: true,
		Platform:     domain.PlatformKick,
		ChannelID:    strconv.Itoa(msg.ChatroomID),
	}, true
}

func isKickChat(kind string) bool {
	kind = strings.TrimSpace(kind)
	return kind == "" || strings.EqualFold(kind, "chat") || strings.EqualFold(kind, "message")
}
