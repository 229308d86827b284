package telegram

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		in   string
		cmd  string
		rest string
	}{
		{in: "", cmd: "", rest: ""},
		{in: "/start", cmd: "/start", rest: ""},
		{in: "  /start   now please ", cmd: "/start", rest: "now please"},
		{in: "/start\nline two", cmd: "/start", rest: "line two"},
		{in: "hello world", cmd: "hello", rest: "world"},
	}
	for _, tc := range cases {
		cmd, rest := splitCommand(tc.in)
		assert.Equal(t, tc.cmd, cmd, tc.in)
		assert.Equal(t, tc.rest, rest, tc.in)
	}
}

func TestNormalizeSlashCommand(t *testing.T) {
	cases := map[string]string{
		"/start":           "/start",
		"/Start":           "/start",
		"/start@BlazerBot": "/start",
		"start":            "",
		"":                 "",
		"  /help@x  ":      "/help",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeSlashCommand(in), in)
	}
}

func TestWebAppKeyboard(t *testing.T) {
	assert.Nil(t, webAppKeyboard("Open", "  "))

	markup, ok := webAppKeyboard("", "https://example.com").(inlineKeyboardMarkup)
	require.True(t, ok)
	button := markup.InlineKeyboard[0][0]
	assert.Equal(t, "Open app", button.Text)
	require.NotNil(t, button.WebApp)
	assert.Equal(t, "https://example.com", button.WebApp.URL)
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))
	assert.Equal(t, []string{""}, splitMessage("", 10))

	text := strings.Repeat("火", 25)
	got := splitMessage(text, 10)
	require.Len(t, got, 3)
	assert.Equal(t, 10, utf8.RuneCountInString(got[0]))
	assert.Equal(t, 10, utf8.RuneCountInString(got[1]))
	assert.Equal(t, 5, utf8.RuneCountInString(got[2]))
	assert.Equal(t, text, strings.Join(got, ""))
}

func TestSenderWithoutTokenIsNoop(t *testing.T) {
	s := newSender(newTelegramAPI(nil, "http://127.0.0.1:1", ""), "", nil)
	assert.False(t, s.Configured())
	// Would fail to connect if it tried.
	s.Send(context.Background(), 1, "hello", nil)

	var nilSender *Sender
	assert.False(t, nilSender.Configured())
}
