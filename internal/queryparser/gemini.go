package queryparser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/ignite/audience-estimator/internal/config"
	"github.com/ignite/audience-estimator/internal/pkg/logger"
)

// contentGenerator is the part of *genai.GenerativeModel the provider uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiProvider parses queries with a Google Gemini model.
type GeminiProvider struct {
	client  *genai.Client
	model   contentGenerator
	name    string
	timeout time.Duration
}

// NewGeminiProvider creates a Gemini client authenticated with cfg.APIKey.
func NewGeminiProvider(ctx context.Context, cfg config.ParserConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini api key not set", ErrProviderUnavailable)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("%w: create gemini client: %v", ErrProviderUnavailable, err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(float32(cfg.Temperature))
	model.SetMaxOutputTokens(1024)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}

	return &GeminiProvider{client: client, model: model, name: cfg.Model, timeout: cfg.Timeout()}, nil
}

// Close releases the underlying client.
func (g *GeminiProvider) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Name implements Parser.
func (g *GeminiProvider) Name() string { return SourceGemini }

// Parse implements Parser.
func (g *GeminiProvider) Parse(ctx context.Context, query string) (*ParsedQuery, error) {
	prompt, err := RenderPrompt(query)
	if err != nil {
		return nil, err
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: gemini returned no candidates", ErrUnparseableResponse)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	logger.Debug("gemini parse complete", "model", g.name, "chars", text.Len())
	return DecodeReply(text.String(), SourceGemini)
}
