package core

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
)

// Outcome is the result of routing one command.
type Outcome int

const (
	OutcomeHandled Outcome = iota
	OutcomeFailed
	OutcomeNoHandler
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHandled:
		return "handled"
	case OutcomeFailed:
		return "failed"
	case OutcomeNoHandler:
		return "no_handler"
	case OutcomeRejected:
		return "rejected"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Registry maps command kinds to handlers. Lookups share a read lock;
// Register takes the write lock and excludes all lookups while it runs.
type Registry struct {
	mu       sync.RWMutex
	handlers map[BotCommand]Handler
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		handlers: make(map[BotCommand]Handler),
		logger:   logger,
	}
}

// Register inserts or replaces the handler for kind. Dispatches already
// holding the previous handler finish with it.
func (r *Registry) Register(kind BotCommand, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[kind]; exists {
		r.logger.Info("replacing handler", "command", kind.String())
	}
	r.handlers[kind] = h
}

// Lookup returns the handler registered for kind.
func (r *Registry) Lookup(kind BotCommand) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[kind]
	return h, ok
}

// Kinds returns the registered command kinds in declaration order.
func (r *Registry) Kinds() []BotCommand {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]BotCommand, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Dispatch invokes the handler registered for cmd.Kind and waits for it.
// An unregistered kind is logged and dropped. A handler error or panic is
// returned with OutcomeFailed and never escapes as a panic.
func (r *Registry) Dispatch(ctx context.Context, cmd Command) (Outcome, error) {
	h, ok := r.Lookup(cmd.Kind)
	if !ok {
		r.logger.Warn("no handler", "command", cmd.Kind.String(), "command_id", cmd.ID, "chat_id", cmd.ChatID())
		return OutcomeNoHandler, nil
	}

	if err := invoke(ctx, h, cmd); err != nil {
		return OutcomeFailed, err
	}
	return OutcomeHandled, nil
}

func invoke(ctx context.Context, h Handler, cmd Command) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panic: %v\n%s", p, debug.Stack())
		}
	}()
	return h.Handle(ctx, cmd)
}
