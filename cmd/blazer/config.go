package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const redacted = "***"

var secretKeys = []string{"telegram.bot_token", "gemini.api_key"}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML (secrets redacted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := effectiveConfigYAML()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func effectiveConfigYAML() (string, error) {
	settings := map[string]any{
		"telegram": map[string]any{
			"bot_token":           viper.GetString("telegram.bot_token"),
			"base_url":            viper.GetString("telegram.base_url"),
			"poll_timeout":        viper.GetDuration("telegram.poll_timeout").String(),
			"poll_interval":       viper.GetDuration("telegram.poll_interval").String(),
			"web_app_url":         viper.GetString("telegram.web_app_url"),
			"greeting":            viper.GetString("telegram.greeting"),
			"web_app_button_text": viper.GetString("telegram.web_app_button_text"),
			"parse_mode":          viper.GetString("telegram.parse_mode"),
		},
		"gemini": map[string]any{
			"api_key":           viper.GetString("gemini.api_key"),
			"endpoint":          viper.GetString("gemini.endpoint"),
			"model":             viper.GetString("gemini.model"),
			"request_timeout":   viper.GetDuration("gemini.request_timeout").String(),
			"temperature":       viper.GetFloat64("gemini.temperature"),
			"top_p":             viper.GetFloat64("gemini.top_p"),
			"top_k":             viper.GetInt("gemini.top_k"),
			"max_output_tokens": viper.GetInt("gemini.max_output_tokens"),
		},
		"history": map[string]any{
			"max_turns": viper.GetInt("history.max_turns"),
		},
		"server": map[string]any{
			"bind":       viper.GetString("server.bind"),
			"port":       viper.GetInt("server.port"),
			"static_dir": viper.GetString("server.static_dir"),
		},
		"logging": map[string]any{
			"level":      viper.GetString("logging.level"),
			"format":     viper.GetString("logging.format"),
			"add_source": viper.GetBool("logging.add_source"),
		},
	}
	for _, key := range secretKeys {
		redactSetting(settings, key)
	}
	b, err := yaml.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(b), nil
}

// redactSetting masks a non-empty value at a dotted path; empty values stay
// empty so a missing credential is still visible.
func redactSetting(settings map[string]any, key string) {
	parts := strings.Split(key, ".")
	m := settings
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			return
		}
		m = next
	}
	leaf := parts[len(parts)-1]
	if s, ok := m[leaf].(string); ok && strings.TrimSpace(s) != "" {
		m[leaf] = redacted
	}
}
