package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

type record struct {
	hits     []time.Time
	lockedAt time.Time
}

// Limiter throttles chats that send more than max commands within window.
// A throttled chat is refused for lockout, after which its history resets.
type Limiter struct {
	max     int
	window  time.Duration
	lockout time.Duration

	mu      sync.Mutex
	records map[int64]*record
	now     func() time.Time
}

// New creates a limiter.
func New(max int, window, lockout time.Duration) *Limiter {
	return &Limiter{
		max:     max,
		window:  window,
		lockout: lockout,
		records: make(map[int64]*record),
		now:     time.Now,
	}
}

// Allow records a command from chatID and returns an error if the chat is
// locked out or has just exceeded its budget.
func (l *Limiter) Allow(chatID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	r := l.records[chatID]
	if r == nil {
		r = &record{}
		l.records[chatID] = r
	}

	if !r.lockedAt.IsZero() {
		if elapsed := now.Sub(r.lockedAt); elapsed < l.lockout {
			return fmt.Errorf("rate limited: try again in %s", (l.lockout - elapsed).Truncate(time.Second))
		}
		*r = record{}
	}

	cutoff := now.Add(-l.window)
	fresh := r.hits[:0]
	for _, t := range r.hits {
		if t.After(cutoff) {
			fresh = append(fresh, t)
		}
	}
	r.hits = append(fresh, now)

	if len(r.hits) > l.max {
		r.lockedAt = now
		r.hits = nil
		return fmt.Errorf("rate limited: more than %d commands in %s", l.max, l.window)
	}
	return nil
}

// Reset clears all state for a chat.
func (l *Limiter) Reset(chatID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, chatID)
}

// Tracked returns how many chats currently hold limiter state.
func (l *Limiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
