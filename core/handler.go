package core

import "context"

// Handler executes one kind of command. Handlers are shared between
// dispatches and may be invoked concurrently.
type Handler interface {
	Handle(ctx context.Context, cmd Command) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, cmd Command) error

func (f HandlerFunc) Handle(ctx context.Context, cmd Command) error { return f(ctx, cmd) }

// Describer is an optional interface handlers implement to describe
// themselves in the command menu.
type Describer interface {
	Description() string
}

// DescriptionOf returns the handler's description, or the command token
// when the handler does not implement Describer.
func DescriptionOf(kind BotCommand, h Handler) string {
	if d, ok := h.(Describer); ok {
		return d.Description()
	}
	return kind.String()
}
