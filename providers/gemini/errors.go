package gemini

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingAPIKey     = errors.New("missing GEMINI_API_KEY")
	ErrMalformedResponse = errors.New("gemini: malformed response")
	ErrNoCandidates      = errors.New("gemini: no candidate text in response")
)

// TransportError is a failure to build, send, or read the upstream request.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e == nil {
		return "gemini transport failed"
	}
	if e.Err == nil {
		return "gemini " + e.Op + " failed"
	}
	return fmt.Sprintf("gemini %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

type HTTPError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "gemini request failed"
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return fmt.Sprintf("gemini http %d: %s", e.StatusCode, msg)
	}
	if body := strings.TrimSpace(e.Body); body != "" {
		return fmt.Sprintf("gemini http %d: %s", e.StatusCode, truncate(body, 256))
	}
	return fmt.Sprintf("gemini http %d", e.StatusCode)
}

// ErrorKind names the failure class for logs.
func ErrorKind(err error) string {
	var transportErr *TransportError
	var httpErr *HTTPError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingAPIKey):
		return "missing_api_key"
	case errors.As(err, &transportErr):
		return "transport"
	case errors.As(err, &httpErr):
		return "http_status"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrNoCandidates):
		return "no_candidates"
	default:
		return "unknown"
	}
}
