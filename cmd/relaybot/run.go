package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"github.com/jdelaire/relaybot/adapters/httptransport"
	"github.com/jdelaire/relaybot/adapters/telegram_api"
	"github.com/jdelaire/relaybot/adapters/telegram_receiver"
	"github.com/jdelaire/relaybot/core"
	"github.com/jdelaire/relaybot/core/configwatch"
	"github.com/jdelaire/relaybot/core/ops"
	"github.com/jdelaire/relaybot/core/policy"
	"github.com/jdelaire/relaybot/core/ratelimit"
	"github.com/jdelaire/relaybot/internal/config"
	"github.com/jdelaire/relaybot/internal/journal"
	"github.com/jdelaire/relaybot/internal/status"
)

// pollGrace pads the HTTP timeout beyond the long-poll timeout so the
// server, not the client, ends an idle poll.
const pollGrace = 10 * time.Second

// startupCallTimeout bounds the getMe and setMyCommands calls made before
// ingestion starts.
const startupCallTimeout = 15 * time.Second

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll Telegram and dispatch commands until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			token, err := resolveToken()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			interrupts := make(chan os.Signal, 1)
			signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(interrupts)
			go func() {
				select {
				case sig := <-interrupts:
					logger.Info("shutting down", "signal", sig.String())
					cancel()
				case <-ctx.Done():
				}
			}()

			configPath, _ := cmd.Flags().GetString("config")
			return runBot(ctx, cfg, configPath, token, logger)
		},
	}
}

// runBot wires the pipeline and blocks until ctx is cancelled. configPath
// is watched for allowlist changes; empty disables watching.
func runBot(ctx context.Context, cfg *config.Config, configPath, token string, logger *slog.Logger) error {
	transport := httptransport.New(time.Duration(cfg.PollTimeout)*time.Second + pollGrace)
	// Uploads are bounded by the handler timeout, not by the client.
	api := telegram_api.New(httptransport.New(0), token).WithBaseURL(cfg.BaseURL)

	botName, err := identify(ctx, api, logger)
	if err != nil {
		return err
	}

	var jrnl *journal.Journal
	if cfg.JournalPath != "" {
		jrnl, err = journal.Open(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer jrnl.Close()
	}

	registry := core.NewRegistry(logger)
	allow := policy.New(cfg.AllowedChats)
	dispatcher := core.NewDispatcher(registry, logger).
		WithHandlerTimeout(cfg.HandlerTimeout).
		WithPolicy(allow)
	if allow.Restricted() {
		logger.Info("chat allowlist enabled", "chats", len(cfg.AllowedChats))
	}
	if cfg.RateLimit > 0 {
		dispatcher.WithLimiter(ratelimit.New(cfg.RateLimit, cfg.RateWindow, cfg.RateLockout))
	}
	if jrnl != nil {
		dispatcher.WithRecorder(jrnl)
	}

	cursor := core.NewCursor(0)
	poller := telegram_receiver.NewPoller(transport, token, logger).WithBaseURL(cfg.BaseURL)
	stream := telegram_receiver.NewStream(poller, cursor, cfg.PollTimeout, logger).WithRetryPause(cfg.RetryPause)
	pipeline := core.NewPipeline(stream, cursor, core.NewDecoder(logger), dispatcher, cfg.QueueSize, logger)

	stats := &ops.StatsOp{Source: pipeline}
	if jrnl != nil {
		stats.Journal = jrnl
	}
	registry.Register(core.CommandEcho, &ops.Reply{Op: &ops.EchoOp{}, Sender: api})
	registry.Register(core.CommandVideo, &ops.VideoOp{Path: cfg.VideoPath, Sender: api})
	registry.Register(core.CommandHelp, &ops.Reply{Op: &ops.HelpOp{Registry: registry}, Sender: api})
	registry.Register(core.CommandStats, &ops.Reply{Op: stats, Sender: api})

	if cfg.RegisterCommands {
		menuCtx, cancel := context.WithTimeout(ctx, startupCallTimeout)
		if err := api.SetMyCommands(menuCtx, ops.Menu(registry)); err != nil {
			logger.Warn("command menu not published", "error", err)
		}
		cancel()
	}

	if cfg.WatchInterval > 0 && configPath != "" {
		reloader := config.NewReloader(allow, cfg.AllowedChats, logger)
		watcher := configwatch.New(cfg.WatchInterval, logger)
		watcher.Watch(configPath, reloader.Reload)
		go watcher.Run(ctx)
	}

	if cfg.StatusAddr != "" {
		var history status.History
		if jrnl != nil {
			history = jrnl
		}
		srv := status.New(cfg.StatusAddr, pipeline, history, logger).WithBotName(botName)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("status server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	err = pipeline.Run(ctx)
	snap := pipeline.Snapshot()
	logger.Info("stopped", "offset", snap.Offset, "received", snap.Received,
		"handled", snap.Dispatch.Handled, "failed", snap.Dispatch.Failed, "abandoned", snap.Dispatch.Abandoned)
	return err
}

// identify logs the bot identity. Only a rejected token is fatal; any other
// getMe failure is logged and startup continues with an empty bot name.
func identify(ctx context.Context, api *telegram_api.Client, logger *slog.Logger) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, startupCallTimeout)
	defer cancel()

	me, err := api.GetMe(ctx)
	if err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
			return "", fmt.Errorf("verify token: %w", err)
		}
		logger.Warn("bot identity unavailable", "error", err)
		return "", nil
	}
	logger.Info("authenticated", "bot", me.UserName, "bot_id", me.ID)
	return me.UserName, nil
}
