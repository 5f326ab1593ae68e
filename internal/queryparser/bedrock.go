package queryparser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/ignite/audience-estimator/internal/config"
	"github.com/ignite/audience-estimator/internal/pkg/logger"
)

// bedrockInvoker is the slice of the Bedrock runtime client the provider uses.
type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockProvider parses queries with an Anthropic model on AWS Bedrock.
type BedrockProvider struct {
	client      bedrockInvoker
	modelID     string
	temperature float64
	timeout     time.Duration
}

// bedrockMessage represents a message in Bedrock's Anthropic format
type bedrockMessage struct {
	Role    string                `json:"role"`
	Content []bedrockContentBlock `json:"content"`
}

type bedrockContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
	Temperature      float64          `json:"temperature"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewBedrockProvider loads AWS credentials from the default chain for cfg.Region.
func NewBedrockProvider(ctx context.Context, cfg config.ParserConfig) (*BedrockProvider, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("%w: load AWS config: %v", ErrProviderUnavailable, err)
	}
	return newBedrockProvider(bedrockruntime.NewFromConfig(awsCfg), cfg), nil
}

func newBedrockProvider(client bedrockInvoker, cfg config.ParserConfig) *BedrockProvider {
	return &BedrockProvider{
		client:      client,
		modelID:     cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout(),
	}
}

// Name implements Parser.
func (b *BedrockProvider) Name() string { return SourceBedrock }

// Parse implements Parser.
func (b *BedrockProvider) Parse(ctx context.Context, query string) (*ParsedQuery, error) {
	prompt, err := RenderPrompt(query)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        1024,
		System:           systemPrompt,
		Messages: []bedrockMessage{{
			Role:    "user",
			Content: []bedrockContentBlock{{Type: "text", Text: prompt}},
		}},
		Temperature: b.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal bedrock request: %w", err)
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	output, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock invoke: %w", err)
	}

	var resp bedrockResponse
	if err := json.Unmarshal(output.Body, &resp); err != nil {
		return nil, fmt.Errorf("%w: bedrock body: %v", ErrUnparseableResponse, err)
	}

	var text strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}

	logger.Debug("bedrock parse complete",
		"model", b.modelID, "input_tokens", resp.Usage.InputTokens, "output_tokens", resp.Usage.OutputTokens)

	return DecodeReply(text.String(), SourceBedrock)
}
