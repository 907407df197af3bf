package ops

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/jdelaire/relaybot/core"
)

var startTime = time.Now()

// StatsSource exposes pipeline counters.
type StatsSource interface {
	Snapshot() core.Snapshot
}

// Summarizer reports journaled outcome counts for one chat.
type Summarizer interface {
	Summary(ctx context.Context, chatID int64) (map[string]int64, error)
}

// StatsOp reports uptime, pipeline counters and, when a journal is
// configured, the outcomes recorded for the requesting chat.
type StatsOp struct {
	Source  StatsSource
	Journal Summarizer
}

func (s *StatsOp) Description() string { return "Show bot statistics" }

func (s *StatsOp) Execute(ctx context.Context, cmd core.Command) (string, error) {
	uptime := time.Since(startTime).Truncate(time.Second)

	var b strings.Builder
	fmt.Fprintf(&b, "Status: OK\nUptime: %s\nGo: %s\nGoroutines: %d",
		uptime, runtime.Version(), runtime.NumGoroutine())

	if s.Source != nil {
		snap := s.Source.Snapshot()
		fmt.Fprintf(&b, "\nOffset: %d\nReceived: %d\nDecoded: %d\nQueued: %d",
			snap.Offset, snap.Received, snap.Decoded, snap.Queued)
		d := snap.Dispatch
		fmt.Fprintf(&b, "\nHandled: %d\nFailed: %d\nNo handler: %d\nRejected: %d",
			d.Handled, d.Failed, d.NoHandler, d.Rejected)
	}

	if s.Journal != nil {
		counts, err := s.Journal.Summary(ctx, cmd.ChatID())
		if err != nil {
			return "", fmt.Errorf("journal summary: %w", err)
		}
		outcomes := make([]string, 0, len(counts))
		for o := range counts {
			outcomes = append(outcomes, o)
		}
		sort.Strings(outcomes)
		b.WriteString("\nThis chat:")
		if len(outcomes) == 0 {
			b.WriteString(" none")
		}
		for _, o := range outcomes {
			fmt.Fprintf(&b, " %s=%d", o, counts[o])
		}
	}
	return b.String(), nil
}
