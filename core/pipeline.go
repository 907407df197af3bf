package core

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// DefaultQueueSize is the capacity of the channel between ingestion and
// dispatch.
const DefaultQueueSize = 100

// UpdateSource yields updates one at a time. Next blocks until an update is
// available and reports false once ctx is cancelled.
type UpdateSource interface {
	Next(ctx context.Context) (Update, bool)
}

// Pipeline connects an update source to a dispatcher through a bounded
// queue. Ingestion owns the cursor; dispatch owns handler invocation.
type Pipeline struct {
	source     UpdateSource
	cursor     *Cursor
	decoder    *Decoder
	dispatcher *Dispatcher
	queue      chan Command
	logger     *slog.Logger

	received atomic.Int64
	decoded  atomic.Int64
	enqueued atomic.Int64
	dropped  atomic.Int64
}

// NewPipeline wires source, decoder and dispatcher. cursor must be the same
// cursor the source reads its offset from.
func NewPipeline(source UpdateSource, cursor *Cursor, decoder *Decoder, dispatcher *Dispatcher, queueSize int, logger *slog.Logger) *Pipeline {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:     source,
		cursor:     cursor,
		decoder:    decoder,
		dispatcher: dispatcher,
		queue:      make(chan Command, queueSize),
		logger:     logger,
	}
}

// Run starts the dispatch task and runs ingestion until ctx is cancelled.
// It returns after both tasks have stopped.
func (p *Pipeline) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.dispatcher.Run(ctx, p.queue)
	}()

	p.ingest(ctx)
	wg.Wait()
	p.dispatcher.Abandon(p.drain())
	return nil
}

// drain empties the queue once both tasks have stopped and reports how many
// commands were left.
func (p *Pipeline) drain() int {
	n := 0
	for {
		select {
		case <-p.queue:
			n++
		default:
			return n
		}
	}
}

func (p *Pipeline) ingest(ctx context.Context) {
	p.logger.Info("ingestion started", "offset", p.cursor.Value())
	for {
		u, ok := p.source.Next(ctx)
		if !ok {
			p.logger.Info("ingestion stopped", "offset", p.cursor.Value())
			return
		}
		p.received.Add(1)

		// Advance before decoding: an update that fails to decode is still consumed.
		offset := p.cursor.Advance(u.ID)

		msg := u.Payload()
		if msg == nil {
			p.logger.Debug("update without message", "update_id", u.ID, "offset", offset)
			continue
		}

		cmd, ok := p.decoder.Decide(*msg)
		if !ok {
			p.logger.Debug("no command", "update_id", u.ID, "chat_id", msg.Chat.ID)
			continue
		}
		p.decoded.Add(1)
		cmd.ID = uuid.NewString()
		cmd.UpdateID = u.ID

		if !p.enqueue(ctx, cmd) {
			p.logger.Info("ingestion stopped", "offset", p.cursor.Value())
			return
		}
	}
}

// enqueue blocks while the queue is full. It reports false only when ctx is
// cancelled before the command could be queued.
func (p *Pipeline) enqueue(ctx context.Context, cmd Command) bool {
	select {
	case p.queue <- cmd:
		p.enqueued.Add(1)
		p.logger.Debug("command enqueued", "command", cmd.Kind.String(), "command_id", cmd.ID,
			"update_id", cmd.UpdateID, "queued", len(p.queue))
		return true
	case <-ctx.Done():
		p.dropped.Add(1)
		p.logger.Warn("command dropped on shutdown", "command", cmd.Kind.String(), "command_id", cmd.ID)
		return false
	}
}

// Snapshot is a point-in-time view of pipeline progress.
type Snapshot struct {
	Offset   int64         `json:"offset"`
	Received int64         `json:"received"`
	Decoded  int64         `json:"decoded"`
	Enqueued int64         `json:"enqueued"`
	Dropped  int64         `json:"dropped"`
	Queued   int           `json:"queued"`
	Dispatch DispatchStats `json:"dispatch"`
}

// Snapshot returns current counters. Safe to call from any goroutine.
func (p *Pipeline) Snapshot() Snapshot {
	return Snapshot{
		Offset:   p.cursor.Value(),
		Received: p.received.Load(),
		Decoded:  p.decoded.Load(),
		Enqueued: p.enqueued.Load(),
		Dropped:  p.dropped.Load(),
		Queued:   len(p.queue),
		Dispatch: p.dispatcher.Stats(),
	}
}
