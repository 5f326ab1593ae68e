package queryparser

import (
	"context"
	"fmt"
	"strings"

	"github.com/ignite/audience-estimator/internal/estimation"
)

// BuildResult is a parsed audience with its size estimate.
type BuildResult struct {
	Criteria      []estimation.AttributeCriterion `json:"criteria"`
	Suggestions   []string                        `json:"suggestions"`
	Markets       []string                        `json:"markets"`
	EstimatedSize int64                           `json:"estimatedSize"`
	Confidence    estimation.Confidence           `json:"confidence"`
	Breakdown     []estimation.MarketBreakdown    `json:"breakdown"`
	Source        string                          `json:"source"`
}

// Builder parses audience descriptions and sizes them.
type Builder struct {
	parser Parser
	engine *estimation.Engine
}

// NewBuilder creates a Builder.
func NewBuilder(parser Parser, engine *estimation.Engine) *Builder {
	return &Builder{parser: parser, engine: engine}
}

// Parser returns the parser the builder uses.
func (b *Builder) Parser() Parser { return b.parser }

// Build parses query and estimates the resulting audience. Explicit markets
// take precedence over markets named in the query; with neither the audience
// is sized globally. Estimate totals and confidence are passed through as-is.
func (b *Builder) Build(ctx context.Context, query string, markets []string) (*BuildResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	parsed, err := b.parser.Parse(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}

	target := cleanMarkets(markets)
	if len(target) == 0 {
		target = parsed.Markets
	}
	if len(target) == 0 {
		target = []string{estimation.GlobalMarket}
	}

	criteria := parsed.Criteria
	if criteria == nil {
		criteria = []estimation.AttributeCriterion{}
	}
	suggestions := parsed.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}

	result := b.engine.Estimate(criteria, target)
	return &BuildResult{
		Criteria:      criteria,
		Suggestions:   suggestions,
		Markets:       target,
		EstimatedSize: result.TotalSize,
		Confidence:    result.Confidence,
		Breakdown:     result.MarketBreakdown,
		Source:        parsed.Source,
	}, nil
}

func cleanMarkets(in []string) []string {
	var out []string
	for _, m := range in {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}
