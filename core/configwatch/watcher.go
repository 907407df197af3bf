package configwatch

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher polls files by modification time and size and invokes a
// callback when either changes.
type Watcher struct {
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	entries []*watchEntry
}

type fingerprint struct {
	modTime time.Time
	size    int64
}

type watchEntry struct {
	path string
	seen fingerprint
	cb   func(path string)
}

// New creates a Watcher that polls at the given interval.
func New(interval time.Duration, logger *slog.Logger) *Watcher {
	return &Watcher{
		interval: interval,
		logger:   logger,
	}
}

// Watch registers cb for path. The file does not need to exist yet; its
// first appearance counts as a change.
func (w *Watcher) Watch(path string, cb func(path string)) {
	fp, _ := stat(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, &watchEntry{path: path, seen: fp, cb: cb})
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, e := range w.changed() {
				w.logger.Info("config file changed", "path", e.path)
				e.cb(e.path)
			}
		}
	}
}

// changed updates fingerprints and returns the entries whose file moved.
// Callbacks run outside the lock so they may call Watch.
func (w *Watcher) changed() []*watchEntry {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []*watchEntry
	for _, e := range w.entries {
		fp, ok := stat(e.path)
		// A missing file may be mid-save.
		if !ok || fp == e.seen {
			continue
		}
		e.seen = fp
		out = append(out, e)
	}
	return out
}

func stat(path string) (fingerprint, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return fingerprint{}, false
	}
	return fingerprint{modTime: info.ModTime(), size: info.Size()}, true
}
