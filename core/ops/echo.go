package ops

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jdelaire/relaybot/core"
)

// EchoOp replies with the text that followed the command.
type EchoOp struct{}

func (e *EchoOp) Description() string { return "Echo text back" }
func (e *EchoOp) ParseMode() string   { return tgbotapi.ModeMarkdownV2 }

func (e *EchoOp) Execute(_ context.Context, cmd core.Command) (string, error) {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, cmd.Text()), nil
}
