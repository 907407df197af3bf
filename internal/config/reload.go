package config

import (
	"log/slog"
	"sync"

	"github.com/jdelaire/relaybot/core/policy"
)

// Reloader applies the settings that may change while the bot runs. Only
// the chat allowlist is live; other keys take effect on restart.
type Reloader struct {
	policy *policy.Policy
	logger *slog.Logger

	mu      sync.Mutex
	current []int64
}

// NewReloader creates a reloader for p, which was built from initial.
func NewReloader(p *policy.Policy, initial []int64, logger *slog.Logger) *Reloader {
	return &Reloader{
		policy:  p,
		logger:  logger,
		current: append([]int64(nil), initial...),
	}
}

// Reload re-reads the config file at path. A file that fails to load or
// validate leaves the running settings unchanged.
func (r *Reloader) Reload(path string) {
	cfg, err := Load(path)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		r.logger.Error("reload config failed", "path", path, "error", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if sameChats(r.current, cfg.AllowedChats) {
		r.logger.Debug("allowlist unchanged", "path", path)
		return
	}
	r.policy.Replace(cfg.AllowedChats)
	r.current = append([]int64(nil), cfg.AllowedChats...)
	r.logger.Info("allowlist reloaded", "chats", len(cfg.AllowedChats))
}

func sameChats(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[int64]int, len(a))
	for _, id := range a {
		seen[id]++
	}
	for _, id := range b {
		if seen[id] == 0 {
			return false
		}
		seen[id]--
	}
	return true
}
