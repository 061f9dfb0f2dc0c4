package commands

import (
	"context"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
)

type Command interface {
	Name() string
	Aliases() []string
	SupportsPlatform(p domain.Platform) bool
	Handle(ctx context.Context, c *Context) error
}

type Context struct {
	Message domain.Message
	Out     domain.OutgoingMessagePort

	Raw  string
	Args []string
}

// Reply answers in the channel the command came from.
func (c *Context) Reply(ctx context.Context, text string) error {
	if c.Out == nil {
		return nil
	}
	return c.Out.SendMessage(ctx, c.Message.Platform, c.Message.ChannelID, text)
}

// IsAdmin reports whether the sender moderates the channel.
func (c *Context) IsAdmin() bool {
	m := c.Message
	return m.IsPlatformOwner || m.IsPlatformAdmin || m.IsPlatformMod
}
