package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/relmark/internal/nlp"
)

// NewProvider creates a provider from configuration. An empty provider name
// returns nil, meaning LLM extraction is disabled.
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, ollama)", config.Provider)
	}
}

// NewExtractorFromConfig builds an Extractor, failing when no provider is configured
func NewExtractorFromConfig(config Config) (*Extractor, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, &nlp.MissingResourceError{Component: "llm", Err: errors.New("extractor selected but llm.provider is not set")}
	}
	return NewExtractor(provider), nil
}
