package main

import (
	"time"

	"github.com/quailyquaily/blazerai/internal/channelruntime/telegram"
	"github.com/quailyquaily/blazerai/providers/gemini"
	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Telegram
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.base_url", telegram.DefaultBaseURL)
	viper.SetDefault("telegram.poll_timeout", 30*time.Second)
	viper.SetDefault("telegram.poll_interval", 1*time.Second)
	viper.SetDefault("telegram.web_app_url", "")
	viper.SetDefault("telegram.greeting", telegram.DefaultGreeting)
	viper.SetDefault("telegram.web_app_button_text", telegram.DefaultWebAppButtonText)
	viper.SetDefault("telegram.parse_mode", "")

	// Gemini
	gen := gemini.DefaultGenerationConfig()
	viper.SetDefault("gemini.api_key", "")
	viper.SetDefault("gemini.endpoint", gemini.DefaultEndpoint)
	viper.SetDefault("gemini.model", gemini.DefaultModel)
	viper.SetDefault("gemini.request_timeout", 90*time.Second)
	viper.SetDefault("gemini.temperature", gen.Temperature)
	viper.SetDefault("gemini.top_p", gen.TopP)
	viper.SetDefault("gemini.top_k", gen.TopK)
	viper.SetDefault("gemini.max_output_tokens", gen.MaxOutputTokens)

	// 0 keeps every turn.
	viper.SetDefault("history.max_turns", 0)

	// Web server
	viper.SetDefault("server.bind", "0.0.0.0")
	viper.SetDefault("server.port", 3000)
	viper.SetDefault("server.static_dir", "")
}
