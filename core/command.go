package core

import (
	"strings"
	"unicode/utf16"
)

// BotCommand is a recognized command kind.
type BotCommand int

const (
	CommandUnknown BotCommand = iota
	CommandEcho
	CommandVideo
	CommandHelp
	CommandStats
)

var commandTokens = map[string]BotCommand{
	"echo":  CommandEcho,
	"video": CommandVideo,
	"help":  CommandHelp,
	"stats": CommandStats,
}

// String returns the command token without the leading slash.
func (c BotCommand) String() string {
	switch c {
	case CommandEcho:
		return "echo"
	case CommandVideo:
		return "video"
	case CommandHelp:
		return "help"
	case CommandStats:
		return "stats"
	default:
		return "unknown"
	}
}

// ParseBotCommand maps a raw command token such as "/Echo@my_bot" to its
// kind. Unrecognized tokens map to CommandUnknown.
func ParseBotCommand(token string) BotCommand {
	token = strings.TrimLeft(token, "/")
	if at := strings.IndexByte(token, '@'); at != -1 {
		token = token[:at]
	}
	if kind, ok := commandTokens[strings.ToLower(token)]; ok {
		return kind
	}
	return CommandUnknown
}

// Command is a decoded request addressed to one handler. It owns the
// message it was decoded from.
type Command struct {
	// ID and UpdateID are assigned by the pipeline once the command is
	// accepted for delivery.
	ID       string
	UpdateID int64

	Kind    BotCommand
	Args    []string
	Message Message
}

// ChatID returns the chat the command came from.
func (c Command) ChatID() int64 {
	return c.Message.Chat.ID
}

// Text returns the message text following the last command token, trimmed.
// When nothing follows the token, or the message carries no usable command
// entity, the full text is returned.
func (c Command) Text() string {
	text := c.Message.Text
	end := -1
	for _, e := range c.Message.Entities {
		if e.Kind != EntityBotCommand {
			continue
		}
		if _, ok := sliceUTF16(text, e.Offset, e.Length); ok {
			end = int(e.Offset + e.Length)
		}
	}
	if end < 0 {
		return text
	}

	units := utf16.Encode([]rune(text))
	rest := strings.TrimSpace(string(utf16.Decode(units[end:])))
	if rest == "" {
		return text
	}
	return rest
}
