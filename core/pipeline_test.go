package core

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"
)

// sliceSource yields a fixed list of updates, then blocks until cancelled.
type sliceSource struct {
	mu      sync.Mutex
	updates []Update
}

func (s *sliceSource) Next(ctx context.Context) (Update, bool) {
	s.mu.Lock()
	if len(s.updates) > 0 {
		u := s.updates[0]
		s.updates = s.updates[1:]
		s.mu.Unlock()
		return u, true
	}
	s.mu.Unlock()
	<-ctx.Done()
	return Update{}, false
}

func echoUpdate(id int64, text string, entities ...Entity) Update {
	msg := textMessage(text, entities...)
	return Update{ID: id, Message: &msg}
}

func TestPipelineConcreteScenario(t *testing.T) {
	got := make(chan Command, 1)
	reg := NewRegistry(testLogger())
	reg.Register(CommandEcho, HandlerFunc(func(_ context.Context, cmd Command) error {
		got <- cmd
		return nil
	}))

	cursor := NewCursor(0)
	src := &sliceSource{updates: []Update{
		echoUpdate(42, "/echo hello https://x.test",
			Entity{Kind: EntityBotCommand, Offset: 0, Length: 5},
			Entity{Kind: EntityURL, Offset: 12, Length: 14},
		),
	}}
	p := NewPipeline(src, cursor, NewDecoder(testLogger()), NewDispatcher(reg, testLogger()), 4, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- p.Run(ctx) }()

	select {
	case cmd := <-got:
		if cmd.Kind != CommandEcho {
			t.Errorf("kind = %v, want echo", cmd.Kind)
		}
		if !reflect.DeepEqual(cmd.Args, []string{"https://x.test"}) {
			t.Errorf("args = %q", cmd.Args)
		}
		if cmd.UpdateID != 42 || cmd.ID == "" {
			t.Errorf("update_id = %d id = %q", cmd.UpdateID, cmd.ID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not invoked")
	}

	if cursor.Value() != 43 {
		t.Errorf("cursor = %d, want 43", cursor.Value())
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop after cancellation")
	}
}

func TestPipelineAdvancesCursorForSkippedUpdates(t *testing.T) {
	cursor := NewCursor(0)
	src := &sliceSource{updates: []Update{
		{ID: 7},
		echoUpdate(8, "plain text"),
		echoUpdate(9, "/start", Entity{Kind: EntityBotCommand, Offset: 0, Length: 6}),
	}}
	p := NewPipeline(src, cursor, NewDecoder(testLogger()), NewDispatcher(NewRegistry(testLogger()), testLogger()), 4, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.After(5 * time.Second)
	for cursor.Value() != 10 {
		select {
		case <-deadline:
			t.Fatalf("cursor = %d, want 10", cursor.Value())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	snap := p.Snapshot()
	if snap.Received != 3 || snap.Decoded != 0 || snap.Enqueued != 0 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestPipelinePreservesOrder(t *testing.T) {
	const n = 50
	var mu sync.Mutex
	var order []int64
	all := make(chan struct{})

	reg := NewRegistry(testLogger())
	reg.Register(CommandEcho, HandlerFunc(func(_ context.Context, cmd Command) error {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, cmd.UpdateID)
		if len(order) == n {
			close(all)
		}
		return nil
	}))

	var updates []Update
	for i := int64(1); i <= n; i++ {
		updates = append(updates, echoUpdate(i, "/echo", Entity{Kind: EntityBotCommand, Offset: 0, Length: 5}))
	}
	p := NewPipeline(&sliceSource{updates: updates}, NewCursor(0), NewDecoder(testLogger()),
		NewDispatcher(reg, testLogger()), 3, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	select {
	case <-all:
	case <-time.After(5 * time.Second):
		t.Fatal("not all commands were dispatched")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, id := range order {
		if id != int64(i+1) {
			t.Fatalf("order[%d] = %d, want %d", i, id, i+1)
		}
	}
}

func TestEnqueueBlocksWhenFull(t *testing.T) {
	const capacity = 2
	p := NewPipeline(nil, NewCursor(0), NewDecoder(testLogger()),
		NewDispatcher(NewRegistry(testLogger()), testLogger()), capacity, testLogger())
	ctx := context.Background()

	for i := 0; i < capacity; i++ {
		if !p.enqueue(ctx, Command{Kind: CommandEcho, UpdateID: int64(i)}) {
			t.Fatalf("enqueue %d failed", i)
		}
	}

	result := make(chan bool)
	go func() { result <- p.enqueue(ctx, Command{Kind: CommandEcho, UpdateID: capacity}) }()

	select {
	case <-result:
		t.Fatal("enqueue returned while the queue was full")
	case <-time.After(100 * time.Millisecond):
	}

	first := <-p.queue
	if first.UpdateID != 0 {
		t.Errorf("dequeued update %d, want 0", first.UpdateID)
	}

	select {
	case ok := <-result:
		if !ok {
			t.Fatal("blocked enqueue reported failure")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("enqueue did not resume after capacity freed")
	}

	snap := p.Snapshot()
	if snap.Enqueued != capacity+1 || snap.Dropped != 0 || snap.Queued != capacity {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestEnqueueGivesUpOnShutdown(t *testing.T) {
	p := NewPipeline(nil, NewCursor(0), NewDecoder(testLogger()),
		NewDispatcher(NewRegistry(testLogger()), testLogger()), 1, testLogger())
	p.enqueue(context.Background(), Command{Kind: CommandEcho})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if p.enqueue(ctx, Command{Kind: CommandEcho}) {
		t.Fatal("enqueue succeeded on a full queue after cancellation")
	}
	if p.Snapshot().Dropped != 1 {
		t.Errorf("dropped = %d, want 1", p.Snapshot().Dropped)
	}
}

func TestPipelineShutdownAccountsForEveryCommand(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	reg := NewRegistry(testLogger())
	reg.Register(CommandEcho, HandlerFunc(func(_ context.Context, _ Command) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	}))

	var updates []Update
	for i := int64(1); i <= 4; i++ {
		updates = append(updates, echoUpdate(i, "/echo", Entity{Kind: EntityBotCommand, Offset: 0, Length: 5}))
	}
	p := NewPipeline(&sliceSource{updates: updates}, NewCursor(0), NewDecoder(testLogger()),
		NewDispatcher(reg, testLogger()), 8, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("handler never started")
	}
	deadline := time.After(5 * time.Second)
	for p.Snapshot().Enqueued != 4 {
		select {
		case <-deadline:
			t.Fatalf("enqueued = %d, want 4", p.Snapshot().Enqueued)
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	close(release)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop after cancellation")
	}

	snap := p.Snapshot()
	d := snap.Dispatch
	if total := d.Handled + d.Failed + d.NoHandler + d.Rejected + d.Abandoned; total != snap.Enqueued {
		t.Errorf("dispatch total = %d, enqueued = %d (%+v)", total, snap.Enqueued, snap)
	}
	if snap.Queued != 0 {
		t.Errorf("queued = %d after shutdown, want 0", snap.Queued)
	}
}
