package telegram_receiver

import (
	"context"
	"log/slog"
	"time"

	"github.com/jdelaire/relaybot/core"
)

const (
	DefaultPollTimeout = 30
	defaultRetryPause  = time.Second
)

// Stream turns repeated getUpdates round-trips into a pull iterator. It
// reads the request offset from cursor and never writes it; the consumer
// advances the cursor as it takes updates. A Stream holds at most one
// round-trip's worth of updates.
type Stream struct {
	poller     *Poller
	cursor     *core.Cursor
	timeout    int
	retryPause time.Duration
	logger     *slog.Logger

	pending []core.Update
	trips   int64
}

// NewStream creates a stream that long-polls with timeoutSeconds.
func NewStream(poller *Poller, cursor *core.Cursor, timeoutSeconds int, logger *slog.Logger) *Stream {
	if timeoutSeconds <= 0 {
		timeoutSeconds = DefaultPollTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{
		poller:     poller,
		cursor:     cursor,
		timeout:    timeoutSeconds,
		retryPause: defaultRetryPause,
		logger:     logger,
	}
}

// WithRetryPause sets the fixed wait after a failed round-trip.
func (s *Stream) WithRetryPause(d time.Duration) *Stream {
	s.retryPause = d
	return s
}

// Next returns the next update in upstream order. When the current batch is
// exhausted it performs one round-trip; an empty round-trip is followed by
// another. Next reports false once ctx is cancelled.
func (s *Stream) Next(ctx context.Context) (core.Update, bool) {
	for len(s.pending) == 0 {
		if ctx.Err() != nil {
			return core.Update{}, false
		}

		s.trips++
		updates, err := s.poller.Fetch(ctx, s.cursor.Value(), s.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return core.Update{}, false
			}
			select {
			case <-time.After(s.retryPause):
			case <-ctx.Done():
				return core.Update{}, false
			}
			continue
		}
		if len(updates) > 0 {
			s.logger.Debug("received updates", "count", len(updates), "offset", s.cursor.Value())
		}
		s.pending = updates
	}

	u := s.pending[0]
	s.pending = s.pending[1:]
	return u, true
}

// RoundTrips returns how many getUpdates calls the stream has issued.
func (s *Stream) RoundTrips() int64 {
	return s.trips
}
