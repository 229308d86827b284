// Package relay turns typed completion results into the text a chat user sees.
// Every failure maps to a fixed reply so a message is never left unanswered.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/quailyquaily/blazerai/llm"
	"github.com/quailyquaily/blazerai/providers/gemini"
)

const (
	MissingKeyReply  = "The AI service is not configured yet (missing GEMINI_API_KEY). Please try again later."
	UnavailableReply = "Sorry, the AI service is unavailable right now. Please try again in a moment."
)

func ReplyText(res llm.Result, err error) string {
	if err != nil {
		if errors.Is(err, gemini.ErrMissingAPIKey) {
			return MissingKeyReply
		}
		return UnavailableReply
	}
	if strings.TrimSpace(res.Text) == "" {
		return UnavailableReply
	}
	return res.Text
}

type Responder struct {
	client llm.Client
	logger *slog.Logger
}

func NewResponder(client llm.Client, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{client: client, logger: logger}
}

// Reply always returns non-empty text.
func (r *Responder) Reply(ctx context.Context, history []llm.Turn) string {
	if r == nil || r.client == nil {
		return UnavailableReply
	}
	res, err := r.client.Complete(ctx, history)
	if err != nil {
		r.logger.Warn("gemini_complete_error",
			"kind", gemini.ErrorKind(err),
			"turns", len(history),
			"error", err.Error(),
		)
	} else {
		r.logger.Debug("gemini_complete_ok",
			"turns", len(history),
			"finish_reason", res.FinishReason,
			"total_tokens", res.Usage.TotalTokens,
			"duration", res.Duration.String(),
		)
	}
	return ReplyText(res, err)
}
