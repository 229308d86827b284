package telegram

import (
	"context"
	"errors"
	"log/slog"
	"unicode/utf8"
)

// maxMessageRunes stays under Telegram's 4096 character cap.
const maxMessageRunes = 4000

// Sender delivers replies to a chat. Delivery is best effort: failures are
// logged and dropped, never retried.
type Sender struct {
	api       *telegramAPI
	parseMode string
	logger    *slog.Logger
}

func newSender(api *telegramAPI, parseMode string, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{api: api, parseMode: parseMode, logger: logger}
}

func (s *Sender) Configured() bool {
	return s != nil && s.api != nil && s.api.token != ""
}

// Send posts text to chatID. controls is forwarded verbatim as reply_markup
// and attached to the last chunk.
func (s *Sender) Send(ctx context.Context, chatID int64, text string, controls any) {
	if !s.Configured() {
		return
	}
	chunks := splitMessage(text, maxMessageRunes)
	for i, chunk := range chunks {
		var markup any
		if i == len(chunks)-1 {
			markup = controls
		}
		if err := s.api.sendMessage(ctx, chatID, chunk, s.parseMode, markup); err != nil {
			attrs := []any{
				"chat_id", chatID,
				"chunk", i + 1,
				"chunks", len(chunks),
				"error", err.Error(),
			}
			var reqErr *telegramRequestError
			if errors.As(err, &reqErr) {
				attrs = append(attrs, "status", reqErr.StatusCode, "error_code", reqErr.ErrorCode)
			}
			s.logger.Warn("telegram_send_error", attrs...)
			return
		}
	}
	s.logger.Debug("telegram_send_ok", "chat_id", chatID, "chunks", len(chunks))
}

func splitMessage(text string, max int) []string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return []string{text}
	}
	var out []string
	runes := []rune(text)
	for len(runes) > 0 {
		n := max
		if n > len(runes) {
			n = len(runes)
		}
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	return out
}
