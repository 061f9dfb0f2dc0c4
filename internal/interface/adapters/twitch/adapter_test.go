package twitchadapter

import (
	"context"
	"testing"

	"github.com/adeithe/go-twitch/irc"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
)

func TestMapChatMessageToDomain(t *testing.T) {
	var cm irc.ChatMessage
	cm.Channel = "pupcid"
	cm.Text = "hola chat"
	cm.Sender.ID = 99
	cm.Sender.DisplayName = "Lola"
	cm.Sender.IsSubscriber = true

	msg := mapChatMessageToDomain(cm)
	if msg.Platform != domain.PlatformTwitch || msg.UserID != "99" || msg.ChannelID != "pupcid" {
		t.Fatalf("msg = %+v", msg)
	}
	if msg.TeamLevel != domain.TeamLevelSubscriber || msg.IsPlatformMod {
		t.Fatalf("level = %d", msg.TeamLevel)
	}

	cm.Sender.IsModerator = true
	if got := mapChatMessageToDomain(cm); got.TeamLevel != domain.TeamLevelModerator || got.IsPlatformAdmin {
		t.Fatalf("mod = %+v", got)
	}
}

func TestStartValidatesConfig(t *testing.T) {
	if err := NewAdapter(Config{}).Start(context.Background()); err == nil {
		t.Fatal("expected missing channels error")
	}
	if err := NewAdapter(Config{Channels: []string{"pupcid"}}).Start(context.Background()); err == nil {
		t.Fatal("expected missing credentials error")
	}
}

func TestSendMessageBeforeStart(t *testing.T) {
	a := NewAdapter(Config{})
	if err := a.SendMessage(context.Background(), domain.PlatformKick, "x", "hola"); err == nil {
		t.Fatal("wrong platform accepted")
	}
	if err := a.SendMessage(context.Background(), domain.PlatformTwitch, "x", "hola"); err == nil {
		t.Fatal("send without connection accepted")
	}
}
