package ops

// Formatter is an optional interface ops implement when their reply uses
// a Telegram parse mode. Ops that don't implement it reply in plain text.
type Formatter interface {
	ParseMode() string
}

// ParseModeOf returns the op's parse mode, or "" for plain text.
func ParseModeOf(op Op) string {
	if f, ok := op.(Formatter); ok {
		return f.ParseMode()
	}
	return ""
}
