package telegram_receiver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jdelaire/relaybot/core"
)

// Poller performs single getUpdates round-trips.
type Poller struct {
	transport core.Transport
	token     string
	baseURL   string
	logger    *slog.Logger
}

// NewPoller creates a Poller for the given bot token.
func NewPoller(transport core.Transport, token string, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		transport: transport,
		token:     token,
		baseURL:   core.DefaultBaseURL,
		logger:    logger,
	}
}

// WithBaseURL overrides the Bot API base URL (for testing).
func (p *Poller) WithBaseURL(url string) *Poller {
	p.baseURL = url
	return p
}

// URL returns the getUpdates request URL for offset and timeout.
func (p *Poller) URL(offset int64, timeoutSeconds int) string {
	return fmt.Sprintf("%s?offset=%d&timeout=%d",
		core.Endpoint(p.baseURL, p.token, "getUpdates"), offset, timeoutSeconds)
}

// Fetch performs one long-poll round-trip. Failures are logged here and
// yield no updates; the returned error only tells the caller the round-trip
// did not succeed. Updates below offset are discarded as redeliveries. Fetch
// never changes the offset itself.
func (p *Poller) Fetch(ctx context.Context, offset int64, timeoutSeconds int) ([]core.Update, error) {
	body, err := p.transport.Get(ctx, p.URL(offset, timeoutSeconds))
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("poll error", "offset", offset, "error", err)
		}
		return nil, err
	}

	var resp tgbotapi.APIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		p.logger.Error("decode response", "offset", offset, "error", err, "body", truncate(body))
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !resp.Ok {
		p.logger.Warn("getUpdates not ok", "offset", offset, "code", resp.ErrorCode, "description", resp.Description)
		return nil, &tgbotapi.Error{Code: resp.ErrorCode, Message: resp.Description}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(resp.Result, &items); err != nil {
		p.logger.Error("decode updates", "offset", offset, "error", err, "body", truncate(resp.Result))
		return nil, fmt.Errorf("decode updates: %w", err)
	}

	updates := make([]core.Update, 0, len(items))
	for _, raw := range items {
		u, ok := p.decodeUpdate(raw)
		if !ok {
			continue
		}
		if u.ID < offset {
			p.logger.Debug("skipping redelivered update", "update_id", u.ID, "offset", offset)
			continue
		}
		updates = append(updates, u)
	}
	return updates, nil
}

// decodeUpdate isolates a malformed item from the rest of the batch. An
// item whose body cannot be decoded but whose id can is returned empty so
// the cursor still moves past it.
func (p *Poller) decodeUpdate(raw json.RawMessage) (core.Update, bool) {
	var u core.Update
	err := json.Unmarshal(raw, &u)
	if err == nil {
		return u, true
	}

	var head struct {
		UpdateID *int64 `json:"update_id"`
	}
	if json.Unmarshal(raw, &head) != nil || head.UpdateID == nil {
		p.logger.Error("dropping unreadable update", "error", err, "body", truncate(raw))
		return core.Update{}, false
	}
	p.logger.Warn("update body unreadable, skipping", "update_id", *head.UpdateID, "error", err)
	return core.Update{ID: *head.UpdateID}, true
}

func truncate(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
