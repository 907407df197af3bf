package ops

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jdelaire/relaybot/core"
)

// HelpOp lists all registered commands.
type HelpOp struct {
	Registry *core.Registry
}

func (h *HelpOp) Description() string { return "List available commands" }

func (h *HelpOp) Execute(_ context.Context, _ core.Command) (string, error) {
	menu := Menu(h.Registry)
	if len(menu) == 0 {
		return "No commands available.", nil
	}

	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, c := range menu {
		fmt.Fprintf(&b, "  /%s - %s\n", c.Command, c.Description)
	}
	return b.String(), nil
}

// Menu describes the registered commands in declaration order, suitable
// for setMyCommands.
func Menu(reg *core.Registry) []tgbotapi.BotCommand {
	kinds := reg.Kinds()
	menu := make([]tgbotapi.BotCommand, 0, len(kinds))
	for _, kind := range kinds {
		h, ok := reg.Lookup(kind)
		if !ok {
			continue
		}
		menu = append(menu, tgbotapi.BotCommand{
			Command:     kind.String(),
			Description: core.DescriptionOf(kind, h),
		})
	}
	return menu
}
