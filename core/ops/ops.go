package ops

import (
	"context"
	"errors"

	"github.com/jdelaire/relaybot/core"
)

// ErrVideoNotConfigured is returned by VideoOp when no file is configured.
var ErrVideoNotConfigured = errors.New("video path not configured")

// Sender delivers replies to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text, parseMode string) error
	SendVideo(ctx context.Context, chatID int64, path, caption string) error
}

// Op produces a text reply for a command.
type Op interface {
	Description() string
	Execute(ctx context.Context, cmd core.Command) (string, error)
}

// Reply adapts an Op to core.Handler by sending its result back to the
// originating chat.
type Reply struct {
	Op     Op
	Sender Sender
}

func (r *Reply) Description() string { return r.Op.Description() }

func (r *Reply) Handle(ctx context.Context, cmd core.Command) error {
	text, err := r.Op.Execute(ctx, cmd)
	if err != nil {
		return err
	}
	if text == "" {
		return nil
	}
	return r.Sender.SendMessage(ctx, cmd.ChatID(), text, ParseModeOf(r.Op))
}
