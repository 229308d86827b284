package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quailyquaily/blazerai/internal/chathistory"
	"github.com/quailyquaily/blazerai/internal/relay"
	"github.com/quailyquaily/blazerai/llm"
)

// Runtime is the bot ingestion loop. It is the only writer of its history
// store and of the update cursor.
type Runtime struct {
	opts      RunOptions
	api       *telegramAPI
	sender    *Sender
	store     *chathistory.Store
	responder *relay.Responder
	logger    *slog.Logger

	// cursor is the highest update_id already consumed.
	cursor int64
}

func NewRuntime(opts RunOptions, store *chathistory.Store, responder *relay.Responder, logger *slog.Logger) (*Runtime, error) {
	opts = normalizeRunOptions(opts)
	if opts.BotToken == "" {
		return nil, fmt.Errorf("missing telegram.bot_token (set via --telegram-bot-token or TELEGRAM_BOT_TOKEN)")
	}
	if store == nil {
		return nil, fmt.Errorf("history store is required")
	}
	if responder == nil {
		return nil, fmt.Errorf("responder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	api := newTelegramAPI(opts.HTTPClient, opts.BaseURL, opts.BotToken)
	return &Runtime{
		opts:      opts,
		api:       api,
		sender:    newSender(api, opts.ParseMode, logger),
		store:     store,
		responder: responder,
		logger:    logger,
	}, nil
}

// Cursor is not synchronized; read it from the goroutine driving the loop.
func (r *Runtime) Cursor() int64 {
	return r.cursor
}

// Run polls until ctx is cancelled. Every cycle sleeps PollInterval before the
// next fetch, whatever the outcome of the previous one.
func (r *Runtime) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	r.logger.Info("telegram_start",
		"base_url", r.opts.BaseURL,
		"poll_timeout", r.opts.PollTimeout.String(),
		"poll_interval", r.opts.PollInterval.String(),
		"web_app_configured", r.opts.WebAppURL != "",
		"history_max_turns", r.store.MaxTurns(),
		"conversations", len(r.store.Conversations()),
	)
	for {
		if err := r.PollOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				r.logStop()
				return nil
			}
			if isTelegramPollTimeoutError(err) {
				r.logger.Debug("telegram_get_updates_timeout", "error", err.Error())
			} else {
				r.logger.Warn("telegram_get_updates_error", "error", err.Error())
			}
		}

		timer := time.NewTimer(r.opts.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.logStop()
			return nil
		case <-timer.C:
		}
	}
}

func (r *Runtime) logStop() {
	r.logger.Info("telegram_stop",
		"reason", "context_canceled",
		"cursor", r.cursor,
		"conversations", len(r.store.Conversations()),
	)
}

// PollOnce fetches one batch and dispatches it in order. The cursor moves
// past each update before it is handled, so an update is never fetched twice
// even if handling it fails.
func (r *Runtime) PollOnce(ctx context.Context) error {
	updates, err := r.api.getUpdates(ctx, r.cursor+1, r.opts.PollTimeout)
	if err != nil {
		return err
	}
	for _, u := range updates {
		if u.UpdateID > r.cursor {
			r.cursor = u.UpdateID
		}
		r.dispatch(ctx, u)
	}
	return nil
}

func (r *Runtime) dispatch(ctx context.Context, u telegramUpdate) {
	msg := u.Message
	if msg == nil || msg.Chat == nil {
		r.logger.Debug("telegram_update_skipped", "update_id", u.UpdateID, "reason", "no_message")
		return
	}
	chatID := msg.Chat.ID
	text := msg.Text
	if strings.TrimSpace(text) == "" {
		r.logger.Debug("telegram_update_skipped", "update_id", u.UpdateID, "chat_id", chatID, "reason", "no_text")
		return
	}

	cmdWord, _ := splitCommand(text)
	if normalizeSlashCommand(cmdWord) == commandStart {
		r.store.Reset(chatID)
		r.logger.Info("telegram_session_reset", "chat_id", chatID, "update_id", u.UpdateID)
		r.sender.Send(ctx, chatID, r.opts.Greeting, webAppKeyboard(r.opts.WebAppButtonText, r.opts.WebAppURL))
		return
	}

	r.store.Append(chatID, llm.UserTurn(text))
	history := r.store.GetOrCreate(chatID)
	reply := r.responder.Reply(ctx, history)
	r.sender.Send(ctx, chatID, reply, nil)
	// Record what was actually sent so history matches the chat.
	r.store.Append(chatID, llm.ModelTurn(reply))
	r.logger.Debug("telegram_reply_done", "chat_id", chatID, "update_id", u.UpdateID, "history_turns", r.store.Len(chatID))
}
