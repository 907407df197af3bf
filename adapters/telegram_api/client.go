package telegram_api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/jdelaire/relaybot/core"
)

// Client calls Bot API methods that send or describe things.
type Client struct {
	transport core.Transport
	token     string
	baseURL   string
}

// New creates a client for the given bot token.
func New(transport core.Transport, token string) *Client {
	return &Client{
		transport: transport,
		token:     token,
		baseURL:   core.DefaultBaseURL,
	}
}

// WithBaseURL sets a custom base URL (for testing).
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// GetMe returns the bot's own identity. Only an envelope with ok set to
// true counts as success.
func (c *Client) GetMe(ctx context.Context) (*tgbotapi.User, error) {
	body, err := c.transport.Get(ctx, c.endpoint("getMe"))
	if err != nil {
		return nil, fmt.Errorf("getMe: %w", err)
	}
	resp, err := decodeEnvelope(body)
	if err != nil {
		return nil, fmt.Errorf("getMe: %w", err)
	}

	var me tgbotapi.User
	if err := json.Unmarshal(resp.Result, &me); err != nil {
		return nil, fmt.Errorf("getMe: decode user: %w", err)
	}
	return &me, nil
}

type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// SendMessage posts text to chatID. parseMode may be empty for plain text.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text, parseMode string) error {
	payload, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text, ParseMode: parseMode})
	if err != nil {
		return fmt.Errorf("encode sendMessage: %w", err)
	}
	body, err := c.transport.Post(ctx, c.endpoint("sendMessage"), payload)
	if err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}
	if _, err := decodeEnvelope(body); err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}
	return nil
}

// SendVideo uploads the file at path to chatID. The file travels as its own
// multipart part referenced from the video field by attach://<name>.
func (c *Client) SendVideo(ctx context.Context, chatID int64, path, caption string) error {
	part := uuid.NewString()
	fields := map[string]string{
		"chat_id": strconv.FormatInt(chatID, 10),
		"video":   "attach://" + part,
	}
	if caption != "" {
		fields["caption"] = caption
	}

	body, err := c.transport.PostMultipart(ctx, c.endpoint("sendVideo"), fields, &core.FilePart{Field: part, Path: path})
	if err != nil {
		return fmt.Errorf("sendVideo: %w", err)
	}
	if _, err := decodeEnvelope(body); err != nil {
		return fmt.Errorf("sendVideo: %w", err)
	}
	return nil
}

// SetMyCommands publishes the command menu shown by Telegram clients.
func (c *Client) SetMyCommands(ctx context.Context, commands []tgbotapi.BotCommand) error {
	payload, err := json.Marshal(map[string]any{"commands": commands})
	if err != nil {
		return fmt.Errorf("encode setMyCommands: %w", err)
	}
	body, err := c.transport.Post(ctx, c.endpoint("setMyCommands"), payload)
	if err != nil {
		return fmt.Errorf("setMyCommands: %w", err)
	}
	if _, err := decodeEnvelope(body); err != nil {
		return fmt.Errorf("setMyCommands: %w", err)
	}
	return nil
}

func (c *Client) endpoint(method string) string {
	return core.Endpoint(c.baseURL, c.token, method)
}

func decodeEnvelope(body []byte) (*tgbotapi.APIResponse, error) {
	var resp tgbotapi.APIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !resp.Ok {
		return nil, &tgbotapi.Error{Code: resp.ErrorCode, Message: resp.Description}
	}
	return &resp, nil
}
