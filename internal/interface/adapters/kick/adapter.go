// Package kickadapter reads Kick chat over the chatroom websocket and replies
// through the public API.
package kickadapter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	kicksdk "github.com/glichtv/kick-sdk"
	kickchatwrapper "github.com/johanvandegriff/kick-chat-wrapper"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
)

// EventHandler sees every raw chatroom frame (subs, gifts, pins...).
type EventHandler func(ctx context.Context, msg kickchatwrapper.ChatMessage)

type Config struct {
	AccessToken string

	BroadcasterUserID int

	// differs from the user id; see "chatroom":{"id":...} in /api/v2/channels/{slug}
	ChatroomID int

	EventHandler EventHandler
	Logger       *log.Logger
}

type Adapter struct {
	cfg    Config
	logger *log.Logger

	mu      sync.RWMutex
	handler domain.MessageHandler
	sdk     *kicksdk.Client
	ws      *kickchatwrapper.Client
}

func NewAdapter(cfg Config) *Adapter {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Adapter{cfg: cfg, logger: logger.WithPrefix("kick")}
}

func (a *Adapter) SetHandler(h domain.MessageHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handler = h
}

// Start joins the chatroom and blocks until ctx is done.
func (a *Adapter) Start(ctx context.Context) error {
	if err := a.validate(); err != nil {
		return err
	}

	sdkClient := newSDKClient(a.cfg.AccessToken)

	wsClient, err := kickchatwrapper.NewClient()
	if err != nil {
		return fmt.Errorf("kick: creating ws client: %w", err)
	}
	if err := wsClient.JoinChannelByID(a.cfg.ChatroomID); err != nil {
		wsClient.Close()
		return fmt.Errorf("kick: JoinChannelByID: %w", err)
	}

	msgChan := wsClient.ListenForMessages()

	a.mu.Lock()
	a.sdk = sdkClient
	a.ws = wsClient
	a.mu.Unlock()

	a.logger.Info("connected", "chatroom", a.cfg.ChatroomID, "broadcaster", a.cfg.BroadcasterUserID)

	go a.consume(ctx, msgChan)

	<-ctx.Done()

	a.mu.Lock()
	if a.ws != nil {
		a.ws.Close()
		a.ws = nil
	}
	a.mu.Unlock()

	return ctx.Err()
}

func (a *Adapter) validate() error {
	switch {
	case a.cfg.AccessToken == "":
		return errors.New("kick: empty access token")
	case a.cfg.ChatroomID == 0:
		return errors.New("kick: chatroom id not configured")
	case a.cfg.BroadcasterUserID == 0:
		return errors.New("kick: broadcaster user id not configured")
	}
	return nil
}

func (a *Adapter) consume(ctx context.Context, msgChan <-chan kickchatwrapper.ChatMessage) {
	for {
		select {
		case m, ok := <-msgChan:
			if !ok {
				a.logger.Warn("message channel closed")
				return
			}

			if h := a.cfg.EventHandler; h != nil {
				go h(ctx, m)
			}
			if !isChat(m) {
				continue
			}

			a.mu.RLock()
			handler := a.handler
			a.mu.RUnlock()
			if handler == nil {
				continue
			}

			if err := handler(ctx, mapChatMessageToDomain(m, a.cfg.BroadcasterUserID)); err != nil {
				a.logger.Error("handler failed", "user", m.Sender.Username, "err", err)
			}

		case <-ctx.Done():
			return
		}
	}
}

func (a *Adapter) SendMessage(ctx context.Context, platform domain.Platform, channelID, text string) error {
	if platform != domain.PlatformKick {
		return fmt.Errorf("kick: unsupported platform %s", platform)
	}

	a.mu.RLock()
	client := a.sdk
	a.mu.RUnlock()

	if client == nil {
		return errors.New("kick: sdk client not initialised")
	}
	if text == "" {
		return nil
	}

	resp, err := client.Chat().PostMessage(ctx, kicksdk.PostChatMessageInput{
		BroadcasterUserID: a.cfg.BroadcasterUserID,
		Content:           text,
		PosterType:        kicksdk.MessagePosterUser,
	})
	if err != nil {
		return fmt.Errorf("kick: posting chat message: %w", err)
	}

	if !resp.Payload.IsSent {
		meta := resp.ResponseMetadata
		a.logger.Warn("message rejected",
			"status", meta.StatusCode,
			"message_id", resp.Payload.MessageID,
			"kick_message", meta.KickMessage,
			"kick_error", meta.KickError,
			"description", meta.KickErrorDescription,
		)
		return fmt.Errorf("kick: message not accepted (status %d)", meta.StatusCode)
	}

	a.logger.Debug("message delivered", "message_id", resp.Payload.MessageID)
	return nil
}

func (a *Adapter) UpdateAccessToken(token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.cfg.AccessToken = token
	if a.sdk != nil {
		a.sdk = newSDKClient(token)
	}
}

func newSDKClient(token string) *kicksdk.Client {
	return kicksdk.NewClient(
		kicksdk.WithAccessTokens(kicksdk.AccessTokens{
			UserAccessToken: token,
		}),
	)
}

func isChat(m kickchatwrapper.ChatMessage) bool {
	kind := strings.TrimSpace(m.Type)
	return kind == "" || strings.EqualFold(kind, "chat") || strings.EqualFold(kind, "message")
}

func mapChatMessageToDomain(m kickchatwrapper.ChatMessage, broadcasterUserID int) domain.Message {
	sender := m.Sender
	isOwner := sender.ID == broadcasterUserID

	var isMod, isVip, isSub bool
	for _, b := range sender.Identity.Badges {
		switch strings.ToLower(b.Type) {
		case "moderator":
			isMod = true
		case "vip":
			isVip = true
		case "subscriber", "founder", "og":
			isSub = true
		case "broadcaster":
			isOwner = true
		}
	}

	msg := domain.Message{
		Platform:  domain.PlatformKick,
		ChannelID: strconv.Itoa(m.ChatroomID),
		UserID:    strconv.Itoa(sender.ID),
		Username:  sender.Username,
		Text:      m.Content,
		Source:    domain.SourceChat,

		IsPlatformOwner: isOwner,
		IsPlatformAdmin: isOwner,
		IsPlatformMod:   isMod,
		IsPlatformVip:   isVip,
		IsSubscriber:    isSub,
	}
	msg.TeamLevel = msg.ResolveTeamLevel()
	return msg
}
