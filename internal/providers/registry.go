package providers

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/nextlevelbuilder/clawai/internal/config"
)

// Registry maps provider names to instances and routes models to providers
// by naming convention.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under its name.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not configured", name)
	}
	return p, nil
}

// List returns registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForModel routes a model name to a provider by naming convention
// (claude → anthropic, gpt → openai, etc.), falling back to the first
// registered provider.
func (r *Registry) ForModel(model string) (Provider, error) {
	lower := strings.ToLower(model)

	routes := []struct {
		keyword  string
		provider string
	}{
		{"openrouter", "openrouter"},
		{"deepseek", "deepseek"},
		{"claude", "anthropic"},
		{"anthropic", "anthropic"},
		{"gpt", "openai"},
		{"o1", "openai"},
		{"glm", "zhipu"},
		{"zhipu", "zhipu"},
		{"gemini", "gemini"},
		{"groq", "groq"},
		{"llama", "groq"},
		{"kimi", "moonshot"},
		{"moonshot", "moonshot"},
		{"vllm", "vllm"},
	}
	for _, route := range routes {
		if strings.Contains(lower, route.keyword) {
			if p, err := r.Get(route.provider); err == nil {
				return p, nil
			}
		}
	}

	names := r.List()
	if len(names) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}
	return r.Get(names[0])
}

// FromConfig builds a registry from configured provider credentials.
func FromConfig(cfg *config.Config) *Registry {
	reg := NewRegistry()
	model := cfg.Agents.Defaults.Model

	if key := cfg.Providers.Anthropic.APIKey; key != "" {
		reg.Register(NewAnthropicProvider(key,
			WithAnthropicModel(model),
			WithAnthropicBaseURL(cfg.Providers.Anthropic.APIBase)))
	}

	openaiLike := []struct {
		name string
		cfg  config.ProviderConfig
		base string
	}{
		{"openai", cfg.Providers.OpenAI, ""},
		{"openrouter", cfg.Providers.OpenRouter, "https://openrouter.ai/api/v1"},
		{"deepseek", cfg.Providers.DeepSeek, "https://api.deepseek.com/v1"},
		{"groq", cfg.Providers.Groq, "https://api.groq.com/openai/v1"},
		{"zhipu", cfg.Providers.Zhipu, "https://open.bigmodel.cn/api/paas/v4"},
		{"gemini", cfg.Providers.Gemini, "https://generativelanguage.googleapis.com/v1beta/openai"},
		{"moonshot", cfg.Providers.Moonshot, "https://api.moonshot.cn/v1"},
		{"vllm", cfg.Providers.VLLM, ""},
	}
	for _, entry := range openaiLike {
		if entry.cfg.APIKey == "" {
			continue
		}
		base := entry.cfg.APIBase
		if base == "" {
			base = entry.base
		}
		reg.Register(NewOpenAIProvider(entry.name, entry.cfg.APIKey,
			WithOpenAIModel(model),
			WithOpenAIBaseURL(base)))
	}

	return reg
}
