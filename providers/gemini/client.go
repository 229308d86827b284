package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quailyquaily/blazerai/llm"
)

const (
	DefaultEndpoint = "https://generativelanguage.googleapis.com"
	DefaultModel    = "gemini-1.5-flash"
)

// GenerationConfig is sent unchanged with every request.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     0.9,
		TopP:            1,
		TopK:            1,
		MaxOutputTokens: 2048,
	}
}

type Config struct {
	Endpoint       string
	APIKey         string
	Model          string
	RequestTimeout time.Duration
	Generation     GenerationConfig
	HTTPClient     *http.Client
}

// Client calls generateContent. It holds no per-conversation state and is
// safe for concurrent use.
type Client struct {
	BaseURL    string
	APIKey     string
	Model      string
	Generation GenerationConfig
	HTTP       *http.Client
}

func New(cfg Config) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if base == "" {
		base = DefaultEndpoint
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.RequestTimeout
		if timeout <= 0 {
			timeout = 90 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		BaseURL:    base,
		APIKey:     strings.TrimSpace(cfg.APIKey),
		Model:      model,
		Generation: cfg.Generation,
		HTTP:       httpClient,
	}
}

func (c *Client) Configured() bool {
	return c != nil && strings.TrimSpace(c.APIKey) != ""
}

type generateContentRequest struct {
	Contents         []llm.Turn       `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content *struct {
			Role  string `json:"role"`
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// GenerateRaw performs one generateContent call and returns the upstream JSON
// body as-is, whatever the upstream status.
func (c *Client) GenerateRaw(ctx context.Context, history []llm.Turn) (json.RawMessage, error) {
	raw, _, err := c.do(ctx, history)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Complete performs one generateContent call and extracts the first
// candidate's first text part.
func (c *Client) Complete(ctx context.Context, history []llm.Turn) (llm.Result, error) {
	start := time.Now()
	raw, status, err := c.do(ctx, history)
	if err != nil {
		return llm.Result{}, err
	}

	var out generateContentResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return llm.Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if status < 200 || status >= 300 {
		httpErr := &HTTPError{StatusCode: status, Body: strings.TrimSpace(string(raw))}
		if out.Error != nil {
			httpErr.Message = strings.TrimSpace(out.Error.Message)
		}
		return llm.Result{}, fmt.Errorf("%w: %w", ErrNoCandidates, httpErr)
	}

	if len(out.Candidates) == 0 || out.Candidates[0].Content == nil ||
		len(out.Candidates[0].Content.Parts) == 0 || out.Candidates[0].Content.Parts[0].Text == nil {
		return llm.Result{}, ErrNoCandidates
	}

	first := out.Candidates[0]
	return llm.Result{
		Text:         *first.Content.Parts[0].Text,
		FinishReason: first.FinishReason,
		Usage: llm.Usage{
			InputTokens:  out.UsageMetadata.PromptTokenCount,
			OutputTokens: out.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  out.UsageMetadata.TotalTokenCount,
		},
		Duration: time.Since(start),
	}, nil
}

func (c *Client) do(ctx context.Context, history []llm.Turn) (json.RawMessage, int, error) {
	if !c.Configured() {
		return nil, 0, ErrMissingAPIKey
	}
	if history == nil {
		history = []llm.Turn{}
	}

	b, err := json.Marshal(generateContentRequest{
		Contents:         history,
		GenerationConfig: c.Generation,
	})
	if err != nil {
		return nil, 0, &TransportError{Op: "encode", Err: err}
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.BaseURL, url.PathEscape(c.Model), url.QueryEscape(c.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, 0, &TransportError{Op: "build", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, 0, &TransportError{Op: "send", Err: redactKey(err, c.APIKey)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &TransportError{Op: "read", Err: err}
	}
	if !json.Valid(raw) {
		return nil, resp.StatusCode, fmt.Errorf("%w: http %d: %s", ErrMalformedResponse, resp.StatusCode, truncate(strings.TrimSpace(string(raw)), 256))
	}
	return json.RawMessage(raw), resp.StatusCode, nil
}

// net/http errors embed the request URL, which carries the key.
func redactKey(err error, key string) error {
	if err == nil || key == "" {
		return err
	}
	msg := err.Error()
	if !strings.Contains(msg, key) && !strings.Contains(msg, url.QueryEscape(key)) {
		return err
	}
	msg = strings.ReplaceAll(msg, url.QueryEscape(key), "REDACTED")
	msg = strings.ReplaceAll(msg, key, "REDACTED")
	return &redactedError{msg: msg, err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
