// Package config holds the runtime configuration for the ClawAI assistant.
//
// Config lives at ~/.clawai/config.json (JSON5, camelCase keys on disk).
// Precedence: defaults < file < environment variables.
package config

import "os"

// Config is the root configuration.
type Config struct {
	Agents    AgentsConfig    `json:"agents"`
	Channels  ChannelsConfig  `json:"channels"`
	Providers ProvidersConfig `json:"providers"`
	Gateway   GatewayConfig   `json:"gateway"`
	Tools     ToolsConfig     `json:"tools"`
	Heartbeat HeartbeatConfig `json:"heartbeat,omitempty"`
}

// AgentsConfig contains agent runtime defaults.
type AgentsConfig struct {
	Defaults AgentDefaults `json:"defaults"`
}

// AgentDefaults are the runtime parameters for the agent loop.
type AgentDefaults struct {
	Workspace         string  `json:"workspace"`
	Model             string  `json:"model"`
	MaxTokens         int     `json:"maxTokens"`
	Temperature       float64 `json:"temperature"`
	MaxToolIterations int     `json:"maxToolIterations"`
}

// ChannelBase is shared by all channel configs.
// An empty AllowFrom list allows all senders.
type ChannelBase struct {
	Enabled   bool     `json:"enabled"`
	AllowFrom []string `json:"allowFrom,omitempty"`
}

// TelegramConfig configures the Telegram channel.
type TelegramConfig struct {
	ChannelBase
	Token string `json:"token"`
	Proxy string `json:"proxy,omitempty"`
}

// DiscordConfig configures the Discord channel.
type DiscordConfig struct {
	ChannelBase
	Token string `json:"token"`
}

// FeishuConfig configures the Feishu/Lark channel.
type FeishuConfig struct {
	ChannelBase
	AppID             string `json:"appId"`
	AppSecret         string `json:"appSecret"`
	EncryptKey        string `json:"encryptKey,omitempty"`
	VerificationToken string `json:"verificationToken,omitempty"`
}

// WhatsAppConfig configures the WhatsApp channel (Node.js bridge).
type WhatsAppConfig struct {
	ChannelBase
	BridgeURL string `json:"bridgeUrl"`
}

// ChannelsConfig is the unified channel configuration root.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
	Feishu   FeishuConfig   `json:"feishu"`
	WhatsApp WhatsAppConfig `json:"whatsapp"`
}

// ProviderConfig holds credentials for one LLM provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey"`
	APIBase string `json:"apiBase,omitempty"`
}

// ProvidersConfig is the multi-provider configuration.
type ProvidersConfig struct {
	Anthropic  ProviderConfig `json:"anthropic"`
	OpenAI     ProviderConfig `json:"openai"`
	OpenRouter ProviderConfig `json:"openrouter"`
	DeepSeek   ProviderConfig `json:"deepseek"`
	Groq       ProviderConfig `json:"groq"`
	Zhipu      ProviderConfig `json:"zhipu"`
	Gemini     ProviderConfig `json:"gemini"`
	Moonshot   ProviderConfig `json:"moonshot"`
	VLLM       ProviderConfig `json:"vllm"`
}

// GatewayConfig configures the (optional) local API listener.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// WebSearchConfig configures the web_search tool.
type WebSearchConfig struct {
	APIKey     string `json:"apiKey"`
	MaxResults int    `json:"maxResults"`
}

// WebToolsConfig groups web-related tool settings.
type WebToolsConfig struct {
	Search WebSearchConfig `json:"search"`
}

// ExecToolConfig configures the shell execution tool.
type ExecToolConfig struct {
	Timeout int `json:"timeout"` // seconds
}

// ToolsConfig is the unified tool configuration root.
type ToolsConfig struct {
	Web                 WebToolsConfig `json:"web"`
	Exec                ExecToolConfig `json:"exec"`
	RestrictToWorkspace bool           `json:"restrictToWorkspace"`
}

// HeartbeatConfig configures the periodic self-wake service.
type HeartbeatConfig struct {
	Enabled         bool `json:"enabled"`
	IntervalMinutes int  `json:"intervalMinutes,omitempty"`
}

// ExpandHome replaces a leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
