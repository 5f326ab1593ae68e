package queryparser

import (
	"context"
	"errors"

	"github.com/ignite/audience-estimator/internal/pkg/logger"
)

// FallbackParser tries Primary and answers from Secondary when it fails.
type FallbackParser struct {
	Primary   Parser
	Secondary Parser
}

// NewFallbackParser wraps primary with a secondary parser.
func NewFallbackParser(primary, secondary Parser) *FallbackParser {
	return &FallbackParser{Primary: primary, Secondary: secondary}
}

// Name implements Parser.
func (f *FallbackParser) Name() string { return f.Primary.Name() }

// Parse implements Parser.
func (f *FallbackParser) Parse(ctx context.Context, query string) (*ParsedQuery, error) {
	parsed, err := f.Primary.Parse(ctx, query)
	if err == nil {
		return parsed, nil
	}
	if errors.Is(err, ErrEmptyQuery) {
		return nil, err
	}
	logger.Warn("query parser failed, falling back",
		"provider", f.Primary.Name(), "fallback", f.Secondary.Name(), "error", err)
	return f.Secondary.Parse(ctx, query)
}
