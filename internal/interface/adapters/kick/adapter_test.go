package kickadapter

import (
	"context"
	"encoding/json"
	"testing"

	kickchatwrapper "github.com/johanvandegriff/kick-chat-wrapper"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
)

// chatFrom decodes a frame shaped like the chatroom websocket payload.
func chatFrom(t *testing.T, id int, badges ...string) kickchatwrapper.ChatMessage {
	t.Helper()
	type badge struct {
		Type string `json:"type"`
	}
	bs := make([]badge, 0, len(badges))
	for _, b := range badges {
		bs = append(bs, badge{Type: b})
	}
	raw, _ := json.Marshal(map[string]any{
		"type":        "message",
		"chatroom_id": 321,
		"content":     "hola",
		"sender": map[string]any{
			"id":       id,
			"username": "lu",
			"identity": map[string]any{"badges": bs},
		},
	})
	var m kickchatwrapper.ChatMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestMapChatMessageToDomain(t *testing.T) {
	cases := []struct {
		name  string
		msg   kickchatwrapper.ChatMessage
		level int
	}{
		{"viewer", chatFrom(t, 5), domain.TeamLevelViewer},
		{"sub", chatFrom(t, 5, "subscriber"), domain.TeamLevelSubscriber},
		{"vip", chatFrom(t, 5, "vip", "subscriber"), domain.TeamLevelVip},
		{"mod", chatFrom(t, 5, "moderator"), domain.TeamLevelModerator},
		{"owner by id", chatFrom(t, 1), domain.TeamLevelBroadcaster},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapChatMessageToDomain(tc.msg, 1)
			if got.TeamLevel != tc.level {
				t.Fatalf("level = %d, want %d", got.TeamLevel, tc.level)
			}
			if got.ChannelID != "321" || got.Platform != domain.PlatformKick {
				t.Fatalf("msg = %+v", got)
			}
		})
	}
}

func TestIsChat(t *testing.T) {
	var m kickchatwrapper.ChatMessage
	for kind, want := range map[string]bool{"": true, "message": true, "Chat": true, "GiftedSubscriptionsEvent": false} {
		m.Type = kind
		if isChat(m) != want {
			t.Fatalf("isChat(%q) != %v", kind, want)
		}
	}
}

func TestStartValidatesConfig(t *testing.T) {
	for _, cfg := range []Config{
		{},
		{AccessToken: "t"},
		{AccessToken: "t", ChatroomID: 2},
	} {
		if err := NewAdapter(cfg).Start(context.Background()); err == nil {
			t.Fatalf("%+v: expected error", cfg)
		}
	}
	if err := NewAdapter(Config{}).SendMessage(context.Background(), domain.PlatformKick, "1", "hola"); err == nil {
		t.Fatal("send before start accepted")
	}
}
