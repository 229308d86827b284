package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/quailyquaily/blazerai/internal/channelruntime/telegram"
	"github.com/quailyquaily/blazerai/internal/chathistory"
	"github.com/quailyquaily/blazerai/internal/configutil"
	"github.com/quailyquaily/blazerai/internal/logutil"
	"github.com/quailyquaily/blazerai/internal/relay"
	"github.com/quailyquaily/blazerai/internal/webapp"
	"github.com/quailyquaily/blazerai/providers/gemini"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownGrace = 5 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot and the web proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			client := geminiClientFromCmd(cmd)
			if !client.Configured() {
				logger.Warn("gemini_not_configured", "hint", "set GEMINI_API_KEY; replies will explain the key is missing")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			botOpts := telegramOptionsFromCmd(cmd)
			botDone := make(chan struct{})
			if botOpts.BotToken == "" {
				logger.Warn("telegram_not_configured", "hint", "set TELEGRAM_BOT_TOKEN to enable the bot")
				close(botDone)
			} else {
				store := chathistory.NewStore(chathistory.StoreOptions{
					MaxTurns: configutil.FlagOrViperInt(cmd, "history-max-turns", "history.max_turns"),
				})
				rt, err := telegram.NewRuntime(botOpts, store, relay.NewResponder(client, logger), logger)
				if err != nil {
					return err
				}
				go func() {
					defer close(botDone)
					if err := rt.Run(ctx); err != nil {
						logger.Error("telegram_runtime_error", "error", err.Error())
					}
				}()
			}

			srv := webapp.New(webapp.Options{
				Addr:               listenAddr(cmd),
				StaticDir:          configutil.FlagOrViperString(cmd, "server-static-dir", "server.static_dir"),
				TelegramConfigured: botOpts.BotToken != "",
				GeminiConfigured:   client.Configured(),
			}, client, logger)

			srvErr := make(chan error, 1)
			go func() { srvErr <- srv.ListenAndServe() }()

			select {
			case err := <-srvErr:
				stop()
				<-botDone
				if err != nil {
					return fmt.Errorf("web server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutdown", "reason", "signal")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("webapp_shutdown_error", "error", err.Error())
			}
			<-botDone
			return nil
		},
	}

	cmd.Flags().String("server-bind", "0.0.0.0", "Bind address for the web server.")
	cmd.Flags().Int("server-port", 3000, "Port for the web server.")
	cmd.Flags().String("server-static-dir", "", "Directory holding the web client build (optional).")

	cmd.Flags().String("telegram-bot-token", "", "Telegram bot token.")
	cmd.Flags().String("telegram-base-url", telegram.DefaultBaseURL, "Telegram Bot API base URL.")
	cmd.Flags().Duration("telegram-poll-timeout", 30*time.Second, "Long polling timeout for getUpdates.")
	cmd.Flags().Duration("telegram-poll-interval", 1*time.Second, "Pause between getUpdates calls.")
	cmd.Flags().String("telegram-web-app-url", "", "URL opened by the /start launch button.")

	cmd.Flags().String("gemini-api-key", "", "Gemini API key.")
	cmd.Flags().String("gemini-endpoint", gemini.DefaultEndpoint, "Gemini API base URL.")
	cmd.Flags().String("gemini-model", gemini.DefaultModel, "Gemini model name.")
	cmd.Flags().Duration("gemini-request-timeout", 90*time.Second, "Per-request timeout for Gemini calls.")
	gen := gemini.DefaultGenerationConfig()
	cmd.Flags().Float64("gemini-temperature", gen.Temperature, "Sampling temperature.")
	cmd.Flags().Float64("gemini-top-p", gen.TopP, "Nucleus sampling probability.")
	cmd.Flags().Int("gemini-top-k", gen.TopK, "Top-k sampling.")
	cmd.Flags().Int("gemini-max-output-tokens", gen.MaxOutputTokens, "Maximum tokens per reply.")

	cmd.Flags().Int("history-max-turns", 0, "Keep at most this many turns per chat (0 = unbounded).")

	return cmd
}

func geminiClientFromCmd(cmd *cobra.Command) *gemini.Client {
	return gemini.New(gemini.Config{
		Endpoint:       configutil.FlagOrViperString(cmd, "gemini-endpoint", "gemini.endpoint"),
		APIKey:         configutil.FlagOrViperString(cmd, "gemini-api-key", "gemini.api_key"),
		Model:          configutil.FlagOrViperString(cmd, "gemini-model", "gemini.model"),
		RequestTimeout: configutil.FlagOrViperDuration(cmd, "gemini-request-timeout", "gemini.request_timeout"),
		Generation:     generationConfigFromCmd(cmd),
	})
}

// Generation settings are fixed for the process lifetime.
func generationConfigFromCmd(cmd *cobra.Command) gemini.GenerationConfig {
	return gemini.GenerationConfig{
		Temperature:     configutil.FlagOrViperFloat64(cmd, "gemini-temperature", "gemini.temperature"),
		TopP:            configutil.FlagOrViperFloat64(cmd, "gemini-top-p", "gemini.top_p"),
		TopK:            configutil.FlagOrViperInt(cmd, "gemini-top-k", "gemini.top_k"),
		MaxOutputTokens: configutil.FlagOrViperInt(cmd, "gemini-max-output-tokens", "gemini.max_output_tokens"),
	}
}

func telegramOptionsFromCmd(cmd *cobra.Command) telegram.RunOptions {
	return telegram.RunOptions{
		BotToken:         strings.TrimSpace(configutil.FlagOrViperString(cmd, "telegram-bot-token", "telegram.bot_token")),
		BaseURL:          configutil.FlagOrViperString(cmd, "telegram-base-url", "telegram.base_url"),
		PollTimeout:      configutil.FlagOrViperDuration(cmd, "telegram-poll-timeout", "telegram.poll_timeout"),
		PollInterval:     configutil.FlagOrViperDuration(cmd, "telegram-poll-interval", "telegram.poll_interval"),
		WebAppURL:        configutil.FlagOrViperString(cmd, "telegram-web-app-url", "telegram.web_app_url"),
		WebAppButtonText: viper.GetString("telegram.web_app_button_text"),
		Greeting:         viper.GetString("telegram.greeting"),
		ParseMode:        viper.GetString("telegram.parse_mode"),
	}
}

func listenAddr(cmd *cobra.Command) string {
	bind := strings.TrimSpace(configutil.FlagOrViperString(cmd, "server-bind", "server.bind"))
	if bind == "" {
		bind = "0.0.0.0"
	}
	port := configutil.FlagOrViperInt(cmd, "server-port", "server.port")
	if port <= 0 {
		port = 3000
	}
	return net.JoinHostPort(bind, strconv.Itoa(port))
}
