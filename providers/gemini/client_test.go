package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/quailyquaily/blazerai/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	c := New(Config{
		Endpoint:   srv.URL,
		APIKey:     "KEY",
		Model:      "test-model",
		Generation: DefaultGenerationConfig(),
		HTTPClient: srv.Client(),
	})
	return c, &calls
}

func TestCompleteSendsHistoryAndGenerationConfig(t *testing.T) {
	var got map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "KEY", r.URL.Query().Get("key"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &got))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"hi there"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":2,"totalTokenCount":5}}`))
	})

	res, err := c.Complete(context.Background(), []llm.Turn{llm.UserTurn("hello"), llm.ModelTurn("yo"), llm.UserTurn("again")})
	require.NoError(t, err)
	assert.Equal(t, "hi there", res.Text)
	assert.Equal(t, "STOP", res.FinishReason)
	assert.Equal(t, 5, res.Usage.TotalTokens)

	contents, ok := got["contents"].([]any)
	require.True(t, ok, "contents missing: %#v", got)
	require.Len(t, contents, 3)
	first := contents[0].(map[string]any)
	assert.Equal(t, "user", first["role"])
	assert.Equal(t, "hello", first["parts"].([]any)[0].(map[string]any)["text"])
	assert.Equal(t, "model", contents[1].(map[string]any)["role"])

	gen := got["generationConfig"].(map[string]any)
	assert.EqualValues(t, 0.9, gen["temperature"])
	assert.EqualValues(t, 1, gen["topP"])
	assert.EqualValues(t, 1, gen["topK"])
	assert.EqualValues(t, 2048, gen["maxOutputTokens"])
}

func TestCompleteEmptyHistorySendsEmptyContents(t *testing.T) {
	var body string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := c.Complete(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoCandidates)
	assert.Contains(t, body, `"contents":[]`)
}

func TestCompleteMissingKeyMakesNoCall(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected upstream call")
	})
	c.APIKey = ""

	_, err := c.Complete(context.Background(), []llm.Turn{llm.UserTurn("x")})
	require.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
	assert.Equal(t, "missing_api_key", ErrorKind(err))
}

func TestCompleteMalformedJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	})

	_, err := c.Complete(context.Background(), []llm.Turn{llm.UserTurn("x")})
	require.ErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, "malformed_response", ErrorKind(err))
}

func TestCompleteCandidateWithoutParts(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"finishReason":"SAFETY"}]}`))
	})

	_, err := c.Complete(context.Background(), []llm.Turn{llm.UserTurn("x")})
	require.ErrorIs(t, err, ErrNoCandidates)
}

func TestCompleteUpstreamErrorStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	})

	_, err := c.Complete(context.Background(), []llm.Turn{llm.UserTurn("x")})
	require.ErrorIs(t, err, ErrNoCandidates)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Equal(t, "API key not valid", httpErr.Message)
	assert.Equal(t, "http_status", ErrorKind(err))
}

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{err: nil, want: ""},
		{err: ErrMissingAPIKey, want: "missing_api_key"},
		{err: &TransportError{Op: "send", Err: io.EOF}, want: "transport"},
		{err: fmt.Errorf("%w: %w", ErrNoCandidates, &HTTPError{StatusCode: 503}), want: "http_status"},
		{err: ErrMalformedResponse, want: "malformed_response"},
		{err: ErrNoCandidates, want: "no_candidates"},
		{err: errors.New("other"), want: "unknown"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ErrorKind(tc.err), "err = %v", tc.err)
	}
}

func TestCompleteTransportErrorRedactsKey(t *testing.T) {
	c := New(Config{Endpoint: "http://127.0.0.1:1", APIKey: "SECRETKEY"})

	_, err := c.Complete(context.Background(), []llm.Turn{llm.UserTurn("x")})
	require.Error(t, err)
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr), "err = %v", err)
	assert.Equal(t, "transport", ErrorKind(err))
	assert.False(t, strings.Contains(err.Error(), "SECRETKEY"), "key leaked: %v", err)
}

func TestGenerateRawReturnsBodyVerbatim(t *testing.T) {
	const payload = `{"candidates":[],"promptFeedback":{"blockReason":"OTHER"}}`
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(payload))
	})

	raw, err := c.GenerateRaw(context.Background(), []llm.Turn{})
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(raw))
}

func TestNewDefaults(t *testing.T) {
	c := New(Config{APIKey: " k "})
	assert.Equal(t, DefaultEndpoint, c.BaseURL)
	assert.Equal(t, DefaultModel, c.Model)
	assert.Equal(t, "k", c.APIKey)
	assert.True(t, c.Configured())
	assert.False(t, New(Config{}).Configured())
}
