package ops

import (
	"context"
	"fmt"

	"github.com/jdelaire/relaybot/core"
)

// VideoOp uploads a configured video file to the chat. The first URL in the
// command becomes the caption.
type VideoOp struct {
	Path   string
	Sender Sender
}

func (v *VideoOp) Description() string { return "Send the configured video" }

func (v *VideoOp) Handle(ctx context.Context, cmd core.Command) error {
	if v.Path == "" {
		return ErrVideoNotConfigured
	}
	var caption string
	if len(cmd.Args) > 0 {
		caption = cmd.Args[0]
	}
	if err := v.Sender.SendVideo(ctx, cmd.ChatID(), v.Path, caption); err != nil {
		return fmt.Errorf("send video: %w", err)
	}
	return nil
}
