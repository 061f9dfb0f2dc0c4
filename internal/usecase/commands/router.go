package commands

import (
	"context"
	"strings"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
)

type Router struct {
	prefix   string
	cmdIndex map[string]Command
	ordered  []Command
}

func NewRouter(prefix string) *Router {
	if prefix == "" {
		prefix = "!"
	}
	return &Router{
		prefix:   prefix,
		cmdIndex: make(map[string]Command),
	}
}

func (r *Router) Register(cmd Command) {
	r.cmdIndex[strings.ToLower(cmd.Name())] = cmd
	for _, alias := range cmd.Aliases() {
		r.cmdIndex[strings.ToLower(alias)] = cmd
	}
	r.ordered = append(r.ordered, cmd)
}

func (r *Router) Prefix() string {
	return r.prefix
}

// IsCommand reports whether text uses the command prefix, known or not.
func (r *Router) IsCommand(text string) bool {
	text = strings.TrimSpace(text)
	return len(text) > len(r.prefix) && strings.HasPrefix(text, r.prefix)
}

// Handle runs the command in msg. It reports false when msg is not a known
// command; unknown commands are left to other bots in the channel.
func (r *Router) Handle(ctx context.Context, msg domain.Message, out domain.OutgoingMessagePort) (bool, error) {
	text := strings.TrimSpace(msg.Text)
	if !r.IsCommand(text) {
		return false, nil
	}

	withoutPrefix := strings.TrimPrefix(text, r.prefix)
	parts := strings.Fields(withoutPrefix)
	if len(parts) == 0 {
		return false, nil
	}

	cmd, ok := r.cmdIndex[strings.ToLower(parts[0])]
	if !ok {
		return false, nil
	}

	cmdCtx := &Context{
		Message: msg,
		Out:     out,
		Raw:     withoutPrefix,
		Args:    parts[1:],
	}
	if !cmd.SupportsPlatform(msg.Platform) {
		return true, cmdCtx.Reply(ctx, "Este comando no está disponible aquí.")
	}
	return true, cmd.Handle(ctx, cmdCtx)
}
