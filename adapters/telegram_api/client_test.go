package telegram_api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jdelaire/relaybot/adapters/httptransport"
)

func newTestClient(url string) *Client {
	return New(httptransport.New(5*time.Second), "test-token").WithBaseURL(url)
}

func TestGetMe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/getMe" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"ok":true,"result":{"id":99,"is_bot":true,"first_name":"Relay","username":"relay_bot"}}`))
	}))
	defer server.Close()

	me, err := newTestClient(server.URL).GetMe(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if me.ID != 99 || me.UserName != "relay_bot" || !me.IsBot {
		t.Errorf("unexpected user: %+v", me)
	}
}

func TestGetMeNotOK(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"ok":false,"error_code":401,"description":"Unauthorized"}`},
		{"ok false with 200", http.StatusOK, `{"ok":false,"error_code":500,"description":"internal"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).GetMe(context.Background())
			var apiErr *tgbotapi.Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *tgbotapi.Error", err)
			}
		})
	}
}

func TestSendMessage(t *testing.T) {
	var got sendMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendMessage") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).SendMessage(context.Background(), 12345, "hello \\!", tgbotapi.ModeMarkdownV2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ChatID != 12345 || got.Text != "hello \\!" || got.ParseMode != "MarkdownV2" {
		t.Errorf("unexpected request: %+v", got)
	}
}

func TestSendMessageAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).SendMessage(context.Background(), 1, "hi", "")
	if err == nil {
		t.Fatal("expected error for API error response")
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSendMessageNetworkError(t *testing.T) {
	err := newTestClient("http://127.0.0.1:1").SendMessage(context.Background(), 1, "hi", "")
	if err == nil {
		t.Fatal("expected error for network failure")
	}
}

func TestSendVideo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("frames"), 0o600); err != nil {
		t.Fatal(err)
	}

	var chatID, video, caption, content string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendVideo") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		chatID = r.FormValue("chat_id")
		video = r.FormValue("video")
		caption = r.FormValue("caption")

		name := strings.TrimPrefix(video, "attach://")
		f, _, err := r.FormFile(name)
		if err != nil {
			t.Errorf("attachment %q missing: %v", name, err)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		content = string(b)
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).SendVideo(context.Background(), 77, path, "https://x.test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chatID != "77" || caption != "https://x.test" {
		t.Errorf("chat_id=%q caption=%q", chatID, caption)
	}
	if !strings.HasPrefix(video, "attach://") || len(video) <= len("attach://") {
		t.Errorf("video = %q, want attach reference", video)
	}
	if content != "frames" {
		t.Errorf("content = %q", content)
	}
}

func TestSetMyCommands(t *testing.T) {
	var got struct {
		Commands []tgbotapi.BotCommand `json:"commands"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).SetMyCommands(context.Background(), []tgbotapi.BotCommand{
		{Command: "echo", Description: "Echo text back"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Commands) != 1 || got.Commands[0].Command != "echo" {
		t.Errorf("commands = %+v", got.Commands)
	}
}

func TestBotTokenInURL(t *testing.T) {
	var requestedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer server.Close()

	New(httptransport.New(5*time.Second), "123:ABC").WithBaseURL(server.URL).
		SendMessage(context.Background(), 1, "x", "")

	if requestedPath != "/bot123:ABC/sendMessage" {
		t.Errorf("path = %q", requestedPath)
	}
}
