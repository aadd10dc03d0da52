package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/findet/pkg/ai"
	"github.com/OFFIS-RIT/findet/pkg/ai/gemini"
	"github.com/OFFIS-RIT/findet/pkg/ai/ollama"
	"github.com/OFFIS-RIT/findet/pkg/ai/openai"
)

// Provider names an LLM backend.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
	ProviderGemini Provider = "gemini"
)

var ErrUnknownProvider = errors.New("unknown llm provider")

// ParseProvider maps a configuration value onto a Provider.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderOpenAI, ProviderOllama, ProviderGemini:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q (expected openai, ollama or gemini)", ErrUnknownProvider, s)
}

// NewAIClientParams selects and configures a backend.
type NewAIClientParams struct {
	Provider Provider
	Model    string
	BaseURL  string
	APIKey   string

	MaxConcurrentRequests int64
}

// NewAIClient builds the ai.GraphAIClient for params.Provider.
func NewAIClient(ctx context.Context, params NewAIClientParams) (ai.GraphAIClient, error) {
	switch params.Provider {
	case ProviderOpenAI:
		if params.APIKey == "" {
			return nil, errors.New("openai api key is required")
		}
		return openai.NewGraphOpenAIClient(openai.NewGraphOpenAIClientParams{
			ExtractionModel: params.Model,
			ChatURL:         params.BaseURL,
			ChatKey:         params.APIKey,
		}), nil
	case ProviderOllama:
		client, err := ollama.NewGraphOllamaClient(ollama.NewGraphOllamaClientParams{
			ExtractionModel:       params.Model,
			BaseURL:               params.BaseURL,
			ApiKey:                params.APIKey,
			MaxConcurrentRequests: params.MaxConcurrentRequests,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case ProviderGemini:
		client, err := gemini.NewGraphGeminiClient(ctx, gemini.NewGraphGeminiClientParams{
			ExtractionModel: params.Model,
			ApiKey:          params.APIKey,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, params.Provider)
}
