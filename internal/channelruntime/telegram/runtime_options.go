package telegram

import (
	"net/http"
	"strings"
	"time"
)

const (
	DefaultGreeting         = "Hi! I'm Blazer, an AI assistant. Send me a message to start chatting, or open the web app below."
	DefaultWebAppButtonText = "Open Blazer"
)

type RunOptions struct {
	BotToken         string
	BaseURL          string
	PollTimeout      time.Duration
	PollInterval     time.Duration
	WebAppURL        string
	WebAppButtonText string
	Greeting         string
	ParseMode        string
	HTTPClient       *http.Client
}

func normalizeRunOptions(opts RunOptions) RunOptions {
	opts.BotToken = strings.TrimSpace(opts.BotToken)
	opts.BaseURL = strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	opts.WebAppURL = strings.TrimSpace(opts.WebAppURL)
	opts.WebAppButtonText = strings.TrimSpace(opts.WebAppButtonText)
	opts.Greeting = strings.TrimSpace(opts.Greeting)
	opts.ParseMode = strings.TrimSpace(opts.ParseMode)

	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 1 * time.Second
	}
	if opts.Greeting == "" {
		opts.Greeting = DefaultGreeting
	}
	if opts.WebAppButtonText == "" {
		opts.WebAppButtonText = DefaultWebAppButtonText
	}
	if opts.HTTPClient == nil {
		// Must outlive the long poll.
		opts.HTTPClient = &http.Client{Timeout: opts.PollTimeout + 30*time.Second}
	}
	return opts
}
