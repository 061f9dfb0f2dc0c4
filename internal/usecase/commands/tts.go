package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
	ttsusecase "github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/engine"
)

// chat platforms cap messages at 500 characters
const maxReplyLen = 450

type TTSController interface {
	Submit(ctx context.Context, req ttsusecase.SubmitRequest) (domain.QueueItem, error)
	Voices() []engine.Descriptor
	FindVoice(voiceID, engineID string) (engine.Voice, string, bool)
	UpdateConfig(ctx context.Context, mutate func(*ttsusecase.Settings)) (ttsusecase.Settings, error)
	SkipCurrent(ctx context.Context) (bool, error)
	ClearQueue(ctx context.Context) (int, error)
}

type TTSCommand struct {
	service TTSController
}

func NewTTSCommand(service TTSController) *TTSCommand {
	return &TTSCommand{service: service}
}

func (c *TTSCommand) Name() string {
	return "tts"
}

func (c *TTSCommand) Aliases() []string {
	return []string{"say"}
}

func (c *TTSCommand) SupportsPlatform(domain.Platform) bool {
	return true
}

func (c *TTSCommand) Handle(ctx context.Context, cmdCtx *Context) error {
	if c.service == nil {
		return nil
	}
	if len(cmdCtx.Args) == 0 {
		return c.usage(ctx, cmdCtx)
	}

	first := strings.TrimSpace(cmdCtx.Args[0])
	lower := strings.ToLower(first)

	switch {
	case lower == "voice:list":
		return c.handleList(ctx, cmdCtx)
	case strings.HasPrefix(lower, "voice:"):
		code := strings.TrimSpace(first[len("voice:"):])
		if code == "" && len(cmdCtx.Args) > 1 {
			code = strings.TrimSpace(cmdCtx.Args[1])
		}
		return c.handleSetVoice(ctx, cmdCtx, code)
	case lower == "skip" && len(cmdCtx.Args) == 1:
		return c.handleSkip(ctx, cmdCtx)
	case lower == "clear" && len(cmdCtx.Args) == 1:
		return c.handleClear(ctx, cmdCtx)
	default:
		return c.handleRequest(ctx, cmdCtx, strings.Join(cmdCtx.Args, " "))
	}
}

func (c *TTSCommand) handleList(ctx context.Context, cmdCtx *Context) error {
	if !cmdCtx.IsAdmin() {
		return nil
	}
	var b strings.Builder
	b.WriteString("Voces disponibles:")
	for _, d := range c.service.Voices() {
		if !d.Available {
			continue
		}
		ids := make([]string, 0, len(d.Voices))
		for _, v := range d.Voices {
			ids = append(ids, v.ID)
		}
		b.WriteString(fmt.Sprintf(" [%s] %s", d.ID, strings.Join(ids, ", ")))
	}
	return cmdCtx.Reply(ctx, clip(b.String(), maxReplyLen))
}

func (c *TTSCommand) handleSetVoice(ctx context.Context, cmdCtx *Context, code string) error {
	if !cmdCtx.IsAdmin() {
		return nil
	}
	if code == "" {
		return c.usage(ctx, cmdCtx)
	}
	voice, engineID, ok := c.service.FindVoice(code, "")
	if !ok {
		return cmdCtx.Reply(ctx, fmt.Sprintf("⚠️ Voz desconocida: %s", code))
	}
	_, err := c.service.UpdateConfig(ctx, func(st *ttsusecase.Settings) {
		st.DefaultVoice = voice.ID
		st.DefaultEngine = engineID
	})
	if err != nil {
		return cmdCtx.Reply(ctx, fmt.Sprintf("⚠️ %v", err))
	}
	label := voice.Label
	if label == "" {
		label = voice.ID
	}
	return cmdCtx.Reply(ctx, fmt.Sprintf("✅ Voz TTS establecida en %s (%s, %s)", voice.ID, label, engineID))
}

func (c *TTSCommand) handleSkip(ctx context.Context, cmdCtx *Context) error {
	if !cmdCtx.IsAdmin() {
		return nil
	}
	skipped, err := c.service.SkipCurrent(ctx)
	if err != nil {
		return cmdCtx.Reply(ctx, fmt.Sprintf("⚠️ %v", err))
	}
	if !skipped {
		return cmdCtx.Reply(ctx, "No hay nada reproduciéndose.")
	}
	return cmdCtx.Reply(ctx, "⏭️ Lectura saltada")
}

func (c *TTSCommand) handleClear(ctx context.Context, cmdCtx *Context) error {
	if !cmdCtx.IsAdmin() {
		return nil
	}
	n, err := c.service.ClearQueue(ctx)
	if err != nil {
		return cmdCtx.Reply(ctx, fmt.Sprintf("⚠️ %v", err))
	}
	return cmdCtx.Reply(ctx, fmt.Sprintf("🧹 Cola vaciada (%d eliminados)", n))
}

func (c *TTSCommand) handleRequest(ctx context.Context, cmdCtx *Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return c.usage(ctx, cmdCtx)
	}
	msg := cmdCtx.Message
	item, err := c.service.Submit(ctx, SubmitFromMessage(msg, text))
	if err != nil {
		if reply := DescribeSubmitError(err); reply != "" {
			return cmdCtx.Reply(ctx, reply)
		}
		return err
	}
	return cmdCtx.Reply(ctx, fmt.Sprintf("🔊 En cola (posición %d)", item.Position))
}

func (c *TTSCommand) usage(ctx context.Context, cmdCtx *Context) error {
	return cmdCtx.Reply(ctx, "Uso: !tts <texto> | !tts voice:list | !tts voice:<id> | !tts skip | !tts clear")
}

// SubmitFromMessage builds a chat submission carrying the sender's standing.
func SubmitFromMessage(msg domain.Message, text string) ttsusecase.SubmitRequest {
	source := msg.Source
	if source == "" {
		source = domain.SourceChat
	}
	return ttsusecase.SubmitRequest{
		UserID:       msg.UserID,
		Username:     msg.Username,
		Text:         text,
		Source:       source,
		TeamLevel:    msg.ResolveTeamLevel(),
		IsSubscriber: msg.IsSubscriber,
		Platform:     msg.Platform,
		ChannelID:    msg.ChannelID,
	}
}

// DescribeSubmitError turns an expected rejection into a chat reply. It returns
// "" for unexpected errors.
func DescribeSubmitError(err error) string {
	switch {
	case errors.Is(err, ttsusecase.ErrDisabled):
		return "🔇 El TTS está desactivado."
	case errors.Is(err, ttsusecase.ErrPermissionDenied):
		return "🚫 No tienes permiso para usar el TTS."
	case errors.Is(err, ttsusecase.ErrRateLimited):
		return "⏳ Espera un momento antes de enviar otro TTS."
	case errors.Is(err, ttsusecase.ErrQueueFull):
		return "📛 La cola de TTS está llena, inténtalo más tarde."
	case errors.Is(err, ttsusecase.ErrFiltered):
		return "🚫 Mensaje bloqueado por el filtro."
	case errors.Is(err, ttsusecase.ErrValidation):
		return "⚠️ Mensaje no válido."
	}
	return ""
}

func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
