package queryparser

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ignite/audience-estimator/internal/config"
	"github.com/ignite/audience-estimator/internal/estimation"
	"github.com/ignite/audience-estimator/internal/pkg/logger"
)

// Sources reported on parse results.
const (
	SourceRules   = "rules"
	SourceBedrock = "bedrock"
	SourceGemini  = "gemini"
	SourceOpenAI  = "openai"
)

// ParsedQuery is the structured reading of an audience description.
type ParsedQuery struct {
	Criteria    []estimation.AttributeCriterion `json:"criteria"`
	Markets     []string                        `json:"markets"`
	Suggestions []string                        `json:"suggestions"`
	Source      string                          `json:"source"`
}

// Parser extracts targeting criteria from a natural-language query.
type Parser interface {
	Parse(ctx context.Context, query string) (*ParsedQuery, error)
	Name() string
}

// New builds the parser selected by cfg. Hosted providers are wrapped so
// that failures fall back to the rules parser when cfg allows it; a provider
// that cannot be constructed degrades to rules under the same setting.
func New(ctx context.Context, cfg config.ParserConfig) (Parser, error) {
	rules := NewRulesParser()

	var (
		primary Parser
		err     error
	)
	switch cfg.Provider {
	case "", config.ProviderRules:
		return rules, nil
	case config.ProviderBedrock:
		primary, err = NewBedrockProvider(ctx, cfg)
	case config.ProviderGemini:
		primary, err = NewGeminiProvider(ctx, cfg)
	case config.ProviderOpenAI:
		primary, err = NewOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown parser provider %q", cfg.Provider)
	}

	if err != nil {
		if !cfg.ShouldFallBack() {
			return nil, err
		}
		logger.Warn("parser provider unavailable, using rules", "provider", cfg.Provider, "error", err)
		return rules, nil
	}

	logger.Info("query parser initialized", "provider", cfg.Provider, "model", cfg.Model)
	if cfg.ShouldFallBack() {
		return NewFallbackParser(primary, rules), nil
	}
	return primary, nil
}

// Close releases provider clients held anywhere in p's wrapper chain.
func Close(p Parser) error {
	switch v := p.(type) {
	case *CachingParser:
		return Close(v.parser)
	case *FallbackParser:
		return errors.Join(Close(v.Primary), Close(v.Secondary))
	case io.Closer:
		return v.Close()
	}
	return nil
}
