package llmclient

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Options carries what a provider factory needs to build a Generator.
type Options struct {
	APIKey string
	Model  string
}

type ClientFactory func(ctx context.Context, opts Options) (Generator, error)

type ProviderRegistration struct {
	Provider     string
	DefaultModel string
	// APIKeyEnv names the environment variable holding the key; empty when
	// the provider needs none.
	APIKeyEnv string
	Factory   ClientFactory
}

// Catalog maps provider names to factories.
type Catalog struct {
	mu        sync.RWMutex
	providers map[string]ProviderRegistration
}

func NewCatalog() *Catalog {
	return &Catalog{providers: map[string]ProviderRegistration{}}
}

func (c *Catalog) Register(reg ProviderRegistration) error {
	name := normalizeProvider(reg.Provider)
	if name == "" {
		return fmt.Errorf("llmclient: provider name is required")
	}
	if reg.Factory == nil {
		return fmt.Errorf("llmclient: provider %q has no factory", name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.providers[name]; dup {
		return fmt.Errorf("llmclient: provider %q already registered", name)
	}
	reg.Provider = name
	c.providers[name] = reg
	return nil
}

func (c *Catalog) Lookup(provider string) (ProviderRegistration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	reg, ok := c.providers[normalizeProvider(provider)]
	return reg, ok
}

// Providers lists registered names, sorted.
func (c *Catalog) Providers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.providers))
	for name := range c.providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Open builds a Generator for provider. An empty model selects the provider
// default.
func (c *Catalog) Open(ctx context.Context, provider string, opts Options) (Generator, error) {
	reg, ok := c.Lookup(provider)
	if !ok {
		return nil, fmt.Errorf("llmclient: unknown provider %q (have %s)", provider, strings.Join(c.Providers(), ", "))
	}
	if opts.Model == "" {
		opts.Model = reg.DefaultModel
	}
	g, err := reg.Factory(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("llmclient: open %s: %w", reg.Provider, err)
	}
	return g, nil
}

// DefaultCatalog registers every built-in backend.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	for _, reg := range []ProviderRegistration{
		{
			Provider:     "openai",
			DefaultModel: "gpt-4o",
			APIKeyEnv:    "OPENAI_API_KEY",
			Factory: func(_ context.Context, o Options) (Generator, error) {
				return NewOpenAIFromAPIKey(o.APIKey, o.Model)
			},
		},
		{
			Provider:     "gemini",
			DefaultModel: "gemini-2.5-flash",
			APIKeyEnv:    "GEMINI_API_KEY",
			Factory: func(ctx context.Context, o Options) (Generator, error) {
				return NewGeminiFromAPIKey(ctx, o.APIKey, o.Model)
			},
		},
		{
			Provider:     "anthropic",
			DefaultModel: "claude-sonnet-4-5",
			APIKeyEnv:    "ANTHROPIC_API_KEY",
			Factory: func(_ context.Context, o Options) (Generator, error) {
				return NewAnthropicFromAPIKey(o.APIKey, o.Model)
			},
		},
		{
			Provider:     "groq",
			DefaultModel: "llama-3.3-70b-versatile",
			APIKeyEnv:    "GROQ_API_KEY",
			Factory: func(_ context.Context, o Options) (Generator, error) {
				return NewGroqFromAPIKey(o.APIKey, o.Model)
			},
		},
		{
			Provider:     "fake",
			DefaultModel: "offline",
			Factory: func(context.Context, Options) (Generator, error) {
				return NewOffline(), nil
			},
		},
	} {
		if err := c.Register(reg); err != nil {
			panic(err)
		}
	}
	return c
}

func normalizeProvider(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
