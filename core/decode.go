package core

import (
	"log/slog"
	"unicode/utf16"
)

// Decoder extracts a Command from a message's entities.
type Decoder struct {
	logger *slog.Logger
}

// NewDecoder creates a Decoder. A nil logger uses slog.Default.
func NewDecoder(logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{logger: logger}
}

// Decide scans msg.Entities in order. Every bot_command entity overwrites
// the resolved kind, so the last one wins; every url entity is appended to
// Args. It reports false when the message has no entities or the final
// kind is unknown. The result depends only on msg.Text and msg.Entities.
func (d *Decoder) Decide(msg Message) (Command, bool) {
	if len(msg.Entities) == 0 {
		return Command{}, false
	}

	kind := CommandUnknown
	var args []string
	for _, e := range msg.Entities {
		switch e.Kind {
		case EntityBotCommand:
			if msg.Text == "" {
				d.logger.Warn("bot command entity without text", "chat_id", msg.Chat.ID)
				continue
			}
			token, ok := sliceUTF16(msg.Text, e.Offset, e.Length)
			if !ok {
				d.logger.Warn("bot command entity out of range",
					"chat_id", msg.Chat.ID, "offset", e.Offset, "length", e.Length)
				continue
			}
			kind = ParseBotCommand(token)
			if kind == CommandUnknown {
				d.logger.Info("unknown command", "token", token, "chat_id", msg.Chat.ID)
			}
		case EntityURL:
			if msg.Text == "" {
				d.logger.Warn("url entity without text", "chat_id", msg.Chat.ID)
				continue
			}
			u, ok := sliceUTF16(msg.Text, e.Offset, e.Length)
			if !ok {
				d.logger.Warn("url entity out of range",
					"chat_id", msg.Chat.ID, "offset", e.Offset, "length", e.Length)
				continue
			}
			args = append(args, u)
		default:
			d.logger.Debug("entity ignored", "kind", string(e.Kind), "known", e.Kind.Known())
		}
	}

	if kind == CommandUnknown {
		return Command{}, false
	}
	return Command{Kind: kind, Args: args, Message: msg}, true
}

// sliceUTF16 returns text[offset:offset+length] with both bounds measured in
// UTF-16 code units. It reports false for ranges outside the text.
func sliceUTF16(text string, offset, length int32) (string, bool) {
	if offset < 0 || length < 0 {
		return "", false
	}
	units := utf16.Encode([]rune(text))
	end := int64(offset) + int64(length)
	if end > int64(len(units)) {
		return "", false
	}
	return string(utf16.Decode(units[offset:end])), true
}
