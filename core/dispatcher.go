package core

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jdelaire/relaybot/core/policy"
	"github.com/jdelaire/relaybot/core/ratelimit"
)

const defaultHandlerTimeout = 60 * time.Second

// DispatchRecord describes how one command was routed.
type DispatchRecord struct {
	CommandID string
	UpdateID  int64
	ChatID    int64
	Kind      BotCommand
	Outcome   Outcome
	Error     string
	At        time.Time
}

// Recorder persists dispatch records.
type Recorder interface {
	Record(ctx context.Context, rec DispatchRecord) error
}

// Dispatcher consumes decoded commands and routes them through the registry.
type Dispatcher struct {
	registry *Registry
	policy   *policy.Policy
	limiter  *ratelimit.Limiter
	recorder Recorder
	logger   *slog.Logger
	timeout  time.Duration
	now      func() time.Time

	handled   atomic.Int64
	failed    atomic.Int64
	unrouted  atomic.Int64
	rejected  atomic.Int64
	abandoned atomic.Int64
}

// NewDispatcher creates a Dispatcher over registry.
func NewDispatcher(registry *Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry: registry,
		logger:   logger,
		timeout:  defaultHandlerTimeout,
		now:      time.Now,
	}
}

// WithPolicy rejects commands from chats the policy does not allow.
func (d *Dispatcher) WithPolicy(p *policy.Policy) *Dispatcher {
	d.policy = p
	return d
}

// WithLimiter rejects commands from chats that exceed their rate budget.
func (d *Dispatcher) WithLimiter(l *ratelimit.Limiter) *Dispatcher {
	d.limiter = l
	return d
}

// WithRecorder journals every routed command.
func (d *Dispatcher) WithRecorder(r Recorder) *Dispatcher {
	d.recorder = r
	return d
}

// WithHandlerTimeout bounds a single handler call. Zero disables the bound.
func (d *Dispatcher) WithHandlerTimeout(timeout time.Duration) *Dispatcher {
	d.timeout = timeout
	return d
}

// Run receives from in until ctx is cancelled. Commands left in the queue
// are not dispatched; the queue owner reports them through Abandon.
func (d *Dispatcher) Run(ctx context.Context, in <-chan Command) {
	d.logger.Info("dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopped")
			return
		case cmd := <-in:
			d.Dispatch(ctx, cmd)
		}
	}
}

// Dispatch routes one command. The handler runs on a context detached from
// ctx's cancellation so shutdown does not interrupt it mid-call.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) Outcome {
	rec := DispatchRecord{
		CommandID: cmd.ID,
		UpdateID:  cmd.UpdateID,
		ChatID:    cmd.ChatID(),
		Kind:      cmd.Kind,
	}

	if err := d.admit(cmd.ChatID()); err != nil {
		d.logger.Info("command rejected", "command", cmd.Kind.String(), "chat_id", cmd.ChatID(), "error", err)
		d.rejected.Add(1)
		rec.Outcome = OutcomeRejected
		rec.Error = err.Error()
		d.record(ctx, rec)
		return OutcomeRejected
	}

	hctx := context.WithoutCancel(ctx)
	if d.timeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(hctx, d.timeout)
		defer cancel()
	}

	start := d.now()
	outcome, err := d.registry.Dispatch(hctx, cmd)
	rec.Outcome = outcome

	switch outcome {
	case OutcomeHandled:
		d.handled.Add(1)
		d.logger.Info("command handled", "command", cmd.Kind.String(), "command_id", cmd.ID,
			"chat_id", cmd.ChatID(), "duration", d.now().Sub(start))
	case OutcomeFailed:
		d.failed.Add(1)
		rec.Error = err.Error()
		d.logger.Error("handler failed", "command", cmd.Kind.String(), "command_id", cmd.ID,
			"chat_id", cmd.ChatID(), "error", err)
	case OutcomeNoHandler:
		d.unrouted.Add(1)
	}

	d.record(ctx, rec)
	return outcome
}

// Abandon counts n queued commands that will never be dispatched.
func (d *Dispatcher) Abandon(n int) {
	if n <= 0 {
		return
	}
	d.abandoned.Add(int64(n))
	d.logger.Warn("dropping queued commands on shutdown", "count", n)
}

// admit checks the allowlist before the rate limiter so refused chats do
// not consume budget.
func (d *Dispatcher) admit(chatID int64) error {
	if d.policy != nil {
		if err := d.policy.Allow(chatID); err != nil {
			return err
		}
	}
	if d.limiter != nil {
		return d.limiter.Allow(chatID)
	}
	return nil
}

func (d *Dispatcher) record(ctx context.Context, rec DispatchRecord) {
	if d.recorder == nil {
		return
	}
	rec.At = d.now()
	if err := d.recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		d.logger.Warn("journal write failed", "command_id", rec.CommandID, "error", err)
	}
}

// DispatchStats counts routed commands by outcome.
type DispatchStats struct {
	Handled   int64 `json:"handled"`
	Failed    int64 `json:"failed"`
	NoHandler int64 `json:"no_handler"`
	Rejected  int64 `json:"rejected"`
	Abandoned int64 `json:"abandoned"`
}

// Stats returns a snapshot of the dispatch counters.
func (d *Dispatcher) Stats() DispatchStats {
	return DispatchStats{
		Handled:   d.handled.Load(),
		Failed:    d.failed.Load(),
		NoHandler: d.unrouted.Load(),
		Rejected:  d.rejected.Load(),
		Abandoned: d.abandoned.Load(),
	}
}
