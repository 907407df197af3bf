package policy

import (
	"fmt"
	"sync"
)

// Policy restricts which chats may issue commands. A policy built from an
// empty allowlist admits every chat.
type Policy struct {
	mu      sync.RWMutex
	allowed map[int64]bool
}

// New creates a Policy that authorizes only the given chat IDs.
func New(chatIDs []int64) *Policy {
	allowed := make(map[int64]bool, len(chatIDs))
	for _, id := range chatIDs {
		allowed[id] = true
	}
	return &Policy{allowed: allowed}
}

// Allow returns an error if chatID is not on the allowlist.
func (p *Policy) Allow(chatID int64) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.allowed) == 0 || p.allowed[chatID] {
		return nil
	}
	return fmt.Errorf("unauthorized chat: %d", chatID)
}

// Restricted reports whether the policy filters chats at all.
func (p *Policy) Restricted() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.allowed) > 0
}

// Replace swaps the allowlist. Checks already in progress finish against
// the previous list.
func (p *Policy) Replace(chatIDs []int64) {
	allowed := make(map[int64]bool, len(chatIDs))
	for _, id := range chatIDs {
		allowed[id] = true
	}
	p.mu.Lock()
	p.allowed = allowed
	p.mu.Unlock()
}
