package journal

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jdelaire/relaybot/core"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := OpenMemory()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func record(chatID int64, id string, outcome core.Outcome) core.DispatchRecord {
	return core.DispatchRecord{
		CommandID: id,
		UpdateID:  42,
		ChatID:    chatID,
		Kind:      core.CommandEcho,
		Outcome:   outcome,
		At:        time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestRecordAndSummary(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	for i, o := range []core.Outcome{core.OutcomeHandled, core.OutcomeHandled, core.OutcomeFailed} {
		if err := j.Record(ctx, record(1, string(rune('a'+i)), o)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	j.Record(ctx, record(2, "z", core.OutcomeRejected))

	got, err := j.Summary(ctx, 1)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if got["handled"] != 2 || got["failed"] != 1 || len(got) != 2 {
		t.Errorf("summary = %v", got)
	}

	other, _ := j.Summary(ctx, 2)
	if other["rejected"] != 1 || len(other) != 1 {
		t.Errorf("chat 2 summary = %v", other)
	}
}

func TestSummaryEmpty(t *testing.T) {
	got, err := newTestJournal(t).Summary(context.Background(), 99)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("summary = %v, want empty", got)
	}
}

func TestRecent(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	rec := record(7, "first", core.OutcomeHandled)
	j.Record(ctx, rec)
	rec = record(7, "second", core.OutcomeFailed)
	rec.Error = "boom"
	j.Record(ctx, rec)

	entries, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	e := entries[0]
	if e.CommandID != "second" || e.Outcome != "failed" || e.Error != "boom" || e.Command != "echo" {
		t.Errorf("newest entry = %+v", e)
	}
	if !e.At.Equal(rec.At) {
		t.Errorf("at = %v, want %v", e.At, rec.At)
	}
}

func TestConcurrentRecord(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := j.Record(ctx, record(5, "c", core.OutcomeHandled)); err != nil {
				t.Errorf("record: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := j.Summary(ctx, 5)
	if got["handled"] != 20 {
		t.Errorf("handled = %d, want 20", got["handled"])
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "relaybot.db")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := j.Record(context.Background(), record(1, "x", core.OutcomeNoHandler)); err != nil {
		t.Fatalf("record: %v", err)
	}
	j.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, _ := reopened.Summary(context.Background(), 1)
	if got["no_handler"] != 1 {
		t.Errorf("summary after reopen = %v", got)
	}
}

var _ core.Recorder = (*Journal)(nil)
