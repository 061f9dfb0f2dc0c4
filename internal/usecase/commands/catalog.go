package commands

import (
	"context"
	"strings"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
)

// CommandDescriptor describes a builtin command for chat help and the CLI.
type CommandDescriptor struct {
	Name        string
	Description string
	Usage       string
	AdminOnly   bool
}

func BuiltinCommandCatalog() []CommandDescriptor {
	return []CommandDescriptor{
		{
			Name:        "ping",
			Description: "Responde con «pong» para probar la conexión del bot.",
			Usage:       "!ping",
		},
		{
			Name:        "tts",
			Description: "Lee un mensaje en voz alta.",
			Usage:       "!tts <texto>",
		},
		{
			Name:        "tts voice",
			Description: "Lista las voces o cambia la voz por defecto.",
			Usage:       "!tts voice:list | !tts voice:<id>",
			AdminOnly:   true,
		},
		{
			Name:        "tts skip/clear",
			Description: "Salta la lectura actual o vacía la cola.",
			Usage:       "!tts skip | !tts clear",
			AdminOnly:   true,
		},
		{
			Name:        "help",
			Description: "Muestra los comandos disponibles.",
			Usage:       "!help",
		},
	}
}

type HelpCommand struct{}

func NewHelpCommand() *HelpCommand {
	return &HelpCommand{}
}

func (c *HelpCommand) Name() string                          { return "help" }
func (c *HelpCommand) Aliases() []string                     { return []string{"comandos"} }
func (c *HelpCommand) SupportsPlatform(domain.Platform) bool { return true }

func (c *HelpCommand) Handle(ctx context.Context, cmdCtx *Context) error {
	admin := cmdCtx.IsAdmin()
	usages := make([]string, 0, 8)
	for _, d := range BuiltinCommandCatalog() {
		if d.AdminOnly && !admin {
			continue
		}
		usages = append(usages, d.Usage)
	}
	return cmdCtx.Reply(ctx, "Comandos: "+strings.Join(usages, " | "))
}
