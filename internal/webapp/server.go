// Package webapp serves the web client: a stateless chat proxy to the
// completion service, a health probe, and the client's static files.
package webapp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quailyquaily/blazerai/llm"
	"github.com/quailyquaily/blazerai/providers/gemini"
)

const maxChatBodyBytes = 4 << 20

// UnavailableError is the /chat error body for every upstream failure other
// than a missing key. Details stay in the log.
const UnavailableError = "AI service unavailable"

// RawGenerator returns the upstream completion payload untouched.
type RawGenerator interface {
	GenerateRaw(ctx context.Context, history []llm.Turn) (json.RawMessage, error)
}

type Options struct {
	Addr      string
	StaticDir string

	// Reported by /health only.
	TelegramConfigured bool
	GeminiConfigured   bool
}

type Server struct {
	opts   Options
	gen    RawGenerator
	logger *slog.Logger
	now    func() time.Time

	httpSrv *http.Server
}

func New(opts Options, gen RawGenerator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	opts.Addr = strings.TrimSpace(opts.Addr)
	opts.StaticDir = strings.TrimSpace(opts.StaticDir)
	s := &Server{opts: opts, gen: gen, logger: logger, now: time.Now}
	s.httpSrv = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleSPA)
	return mux
}

// ListenAndServe blocks until the server stops. A clean Shutdown returns nil.
func (s *Server) ListenAndServe() error {
	s.logger.Info("webapp_start", "addr", s.opts.Addr, "static_dir", s.opts.StaticDir)
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

type chatRequest struct {
	Contents []llm.Turn `json:"contents"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	reqID := "req_" + uuid.NewString()
	w.Header().Set("X-Request-Id", reqID)

	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxChatBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if s.gen == nil {
		writeError(w, http.StatusInternalServerError, UnavailableError)
		return
	}

	start := s.now()
	raw, err := s.gen.GenerateRaw(r.Context(), req.Contents)
	if err != nil {
		s.logger.Warn("webapp_chat_error",
			"request_id", reqID,
			"kind", gemini.ErrorKind(err),
			"turns", len(req.Contents),
			"error", err.Error(),
		)
		writeError(w, http.StatusInternalServerError, chatErrorMessage(err))
		return
	}
	s.logger.Info("webapp_chat_ok",
		"request_id", reqID,
		"turns", len(req.Contents),
		"bytes", len(raw),
		"duration", s.now().Sub(start).String(),
	)
	setNoCacheHeaders(w.Header())
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func chatErrorMessage(err error) string {
	if errors.Is(err, gemini.ErrMissingAPIKey) {
		return gemini.ErrMissingAPIKey.Error()
	}
	return UnavailableError
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":                  true,
		"time":                s.now().Format(time.RFC3339Nano),
		"telegram_configured": s.opts.TelegramConfigured,
		"gemini_configured":   s.opts.GeminiConfigured,
	})
}

// handleSPA serves files under StaticDir and falls back to index.html so
// client-side routes resolve.
func (s *Server) handleSPA(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.opts.StaticDir == "" {
		http.NotFound(w, r)
		return
	}
	rel := strings.TrimPrefix(r.URL.Path, "/")
	if rel == "" {
		http.ServeFile(w, r, filepath.Join(s.opts.StaticDir, "index.html"))
		return
	}

	clean := path.Clean("/" + rel)
	target := filepath.Join(s.opts.StaticDir, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
	if fi, err := os.Stat(target); err == nil && !fi.IsDir() {
		http.ServeFile(w, r, target)
		return
	}
	http.ServeFile(w, r, filepath.Join(s.opts.StaticDir, "index.html"))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	setNoCacheHeaders(w.Header())
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func setNoCacheHeaders(h http.Header) {
	if h == nil {
		return
	}
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(msg)})
}
