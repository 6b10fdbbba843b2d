// Package llm holds the chat clients for the supported LLM providers.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"ragchat/internal/domain"
)

// Client sends one rendered prompt to a language model and returns its answer.
type Client interface {
	Name() string
	Model() string
	Generate(ctx context.Context, prompt domain.Prompt) (string, error)
}

// Provider describes the defaults of a supported provider.
type Provider struct {
	Name    string
	BaseURL string
	Model   string
	// KeyEnv lists environment variables holding the API key, in lookup order.
	KeyEnv []string
}

var providers = map[string]Provider{
	"openai": {
		Name:    "openai",
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4.1-nano",
		KeyEnv:  []string{"OPENAI_API_KEY"},
	},
	"claude": {
		Name:    "claude",
		BaseURL: "https://api.anthropic.com",
		Model:   "claude-3-5-haiku-latest",
		KeyEnv:  []string{"CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
	},
	"gemini": {
		Name:    "gemini",
		BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai",
		Model:   "gemini-2.0-flash",
		KeyEnv:  []string{"GEMINI_API_KEY"},
	},
	"openrouter": {
		Name:    "openrouter",
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   "openai/gpt-4.1-nano",
		KeyEnv:  []string{"OPENROUTER_API_KEY"},
	},
}

// Lookup returns the defaults for a provider name. "anthropic" is accepted as
// an alias of claude.
func Lookup(name string) (Provider, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "anthropic" {
		name = "claude"
	}
	p, ok := providers[name]
	return p, ok
}

// ProviderNames lists the supported provider names, sorted.
func ProviderNames() []string {
	names := make([]string, 0, len(providers))
	for n := range providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// APIKeyFromEnv returns the first non-empty key among extraEnv and the
// provider's default variables, and the variable it came from.
func APIKeyFromEnv(p Provider, extraEnv string) (key, env string) {
	candidates := p.KeyEnv
	if extraEnv != "" {
		candidates = append([]string{extraEnv}, candidates...)
	}
	for _, e := range candidates {
		if v := strings.TrimSpace(os.Getenv(e)); v != "" {
			return v, e
		}
	}
	return "", ""
}

// Config selects and configures a client.
type Config struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	MaxTokens   int
	Temperature float32
	HTTPClient  *http.Client
}

// New builds the client for cfg.Provider, filling unset fields from the
// provider defaults.
func New(cfg Config) (Client, error) {
	p, ok := Lookup(cfg.Provider)
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q (supported: %s)",
			domain.ErrConfiguration, cfg.Provider, strings.Join(ProviderNames(), ", "))
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: no API key for %s (set %s)",
			domain.ErrConfiguration, p.Name, strings.Join(p.KeyEnv, " or "))
	}
	if cfg.Model == "" {
		cfg.Model = p.Model
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = p.BaseURL
	}
	if p.Name == "claude" {
		return newClaude(cfg), nil
	}
	return newOpenAICompatible(p.Name, cfg), nil
}
