package telegram

import "strings"

const commandStart = "/start"

func splitCommand(text string) (cmd string, rest string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ""
	}
	i := strings.IndexAny(text, " \n\t")
	if i == -1 {
		return text, ""
	}
	return text[:i], strings.TrimSpace(text[i:])
}

func normalizeSlashCommand(cmd string) string {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" || !strings.HasPrefix(cmd, "/") {
		return ""
	}
	// Allow "/cmd@BotName" variants by stripping "@...".
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd)
}

type inlineKeyboardMarkup struct {
	InlineKeyboard [][]inlineKeyboardButton `json:"inline_keyboard"`
}

type inlineKeyboardButton struct {
	Text   string      `json:"text"`
	WebApp *webAppInfo `json:"web_app,omitempty"`
}

type webAppInfo struct {
	URL string `json:"url"`
}

// webAppKeyboard is a single launch button for the web client, or nil when
// no launch URL is configured.
func webAppKeyboard(buttonText, url string) any {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil
	}
	buttonText = strings.TrimSpace(buttonText)
	if buttonText == "" {
		buttonText = "Open app"
	}
	return inlineKeyboardMarkup{
		InlineKeyboard: [][]inlineKeyboardButton{{
			{Text: buttonText, WebApp: &webAppInfo{URL: url}},
		}},
	}
}
