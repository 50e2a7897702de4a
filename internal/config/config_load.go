package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Agents: AgentsConfig{
			Defaults: AgentDefaults{
				Workspace:         "~/.clawai/workspace",
				Model:             "claude-sonnet-4-5",
				MaxTokens:         8192,
				Temperature:       0.7,
				MaxToolIterations: 20,
			},
		},
		Gateway: GatewayConfig{
			Host: "0.0.0.0",
			Port: 0,
		},
		Tools: ToolsConfig{
			Web:  WebToolsConfig{Search: WebSearchConfig{MaxResults: 5}},
			Exec: ExecToolConfig{Timeout: 60},
		},
		Heartbeat: HeartbeatConfig{
			Enabled:         true,
			IntervalMinutes: 30,
		},
	}
}

// DefaultPath returns the default config file location (~/.clawai/config.json).
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".clawai", "config.json")
}

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file is not an error: defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("config file not found, using defaults", "path", path)
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envStr("CLAWAI_ANTHROPIC_API_KEY", &c.Providers.Anthropic.APIKey)
	envStr("CLAWAI_OPENAI_API_KEY", &c.Providers.OpenAI.APIKey)
	envStr("CLAWAI_OPENROUTER_API_KEY", &c.Providers.OpenRouter.APIKey)
	envStr("CLAWAI_DEEPSEEK_API_KEY", &c.Providers.DeepSeek.APIKey)
	envStr("CLAWAI_GROQ_API_KEY", &c.Providers.Groq.APIKey)
	envStr("CLAWAI_ZHIPU_API_KEY", &c.Providers.Zhipu.APIKey)
	envStr("CLAWAI_GEMINI_API_KEY", &c.Providers.Gemini.APIKey)
	envStr("CLAWAI_MOONSHOT_API_KEY", &c.Providers.Moonshot.APIKey)
	envStr("CLAWAI_TELEGRAM_TOKEN", &c.Channels.Telegram.Token)
	envStr("CLAWAI_DISCORD_TOKEN", &c.Channels.Discord.Token)
	envStr("CLAWAI_FEISHU_APP_ID", &c.Channels.Feishu.AppID)
	envStr("CLAWAI_FEISHU_APP_SECRET", &c.Channels.Feishu.AppSecret)
	envStr("CLAWAI_WHATSAPP_BRIDGE_URL", &c.Channels.WhatsApp.BridgeURL)
	envStr("BRAVE_API_KEY", &c.Tools.Web.Search.APIKey)

	// Auto-enable channels when credentials arrive via env
	if c.Channels.Telegram.Token != "" {
		c.Channels.Telegram.Enabled = true
	}
	if c.Channels.Discord.Token != "" {
		c.Channels.Discord.Enabled = true
	}
	if c.Channels.Feishu.AppID != "" && c.Channels.Feishu.AppSecret != "" {
		c.Channels.Feishu.Enabled = true
	}

	envStr("CLAWAI_MODEL", &c.Agents.Defaults.Model)
	envStr("CLAWAI_WORKSPACE", &c.Agents.Defaults.Workspace)
	envStr("CLAWAI_HOST", &c.Gateway.Host)
	if v := os.Getenv("CLAWAI_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Gateway.Port = port
		}
	}

	// Comma-separated allow lists
	if v := os.Getenv("CLAWAI_TELEGRAM_ALLOW_FROM"); v != "" {
		c.Channels.Telegram.AllowFrom = splitCSV(v)
	}
	if v := os.Getenv("CLAWAI_DISCORD_ALLOW_FROM"); v != "" {
		c.Channels.Discord.AllowFrom = splitCSV(v)
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
