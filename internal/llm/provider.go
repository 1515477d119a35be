package llm

import (
	"fmt"
	"net/http"
	"strings"
)

// Provider is the closed set of supported wire variants. Each variant owns
// one conversion from Message to its native request shape.
type Provider int

const (
	ProviderOpenAI Provider = iota + 1
	ProviderGroq
	ProviderAnthropic
	ProviderGemini
)

var providerNames = map[Provider]string{
	ProviderOpenAI:    "openai",
	ProviderGroq:      "groq",
	ProviderAnthropic: "anthropic",
	ProviderGemini:    "gemini",
}

func (p Provider) String() string {
	if name, ok := providerNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Provider(%d)", int(p))
}

// ParseProvider resolves a provider name.
func ParseProvider(name string) (Provider, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for p, n := range providerNames {
		if n == normalized {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown provider %q", name)
}

// Options configures a provider client.
type Options struct {
	APIKey     string
	Model      string
	BaseURL    string // optional endpoint override
	HTTPClient *http.Client
	MaxTokens  int
}

// NewClient constructs the client for provider p.
func NewClient(p Provider, opts Options) (Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("%s client requires an API key", p)
	}

	switch p {
	case ProviderOpenAI:
		return NewOpenAIClient(opts)
	case ProviderGroq:
		return NewGroqClient(opts)
	case ProviderAnthropic:
		return NewAnthropicClient(opts)
	case ProviderGemini:
		return NewGeminiClient(opts)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", p)
	}
}
