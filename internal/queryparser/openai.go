package queryparser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ignite/audience-estimator/internal/config"
	"github.com/ignite/audience-estimator/internal/pkg/httpretry"
	"github.com/ignite/audience-estimator/internal/pkg/logger"
)

const openAIEndpoint = "https://api.openai.com/v1/chat/completions"

// OpenAIProvider parses queries with the OpenAI chat completions API.
type OpenAIProvider struct {
	apiKey      string
	model       string
	temperature float64
	endpoint    string
	httpClient  httpretry.HTTPDoer
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model          string              `json:"model"`
	Messages       []openAIChatMessage `json:"messages"`
	Temperature    float64             `json:"temperature"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message      openAIChatMessage `json:"message"`
		FinishReason string            `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIProvider creates an OpenAI-backed parser. Requests go through a
// retrying client bounded by cfg's timeout.
func NewOpenAIProvider(cfg config.ParserConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai api key not set", ErrProviderUnavailable)
	}
	return &OpenAIProvider{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		endpoint:    openAIEndpoint,
		httpClient:  httpretry.NewRetryClient(&http.Client{Timeout: cfg.Timeout()}, 2),
	}, nil
}

// Name implements Parser.
func (o *OpenAIProvider) Name() string { return SourceOpenAI }

// Parse implements Parser.
func (o *OpenAIProvider) Parse(ctx context.Context, query string) (*ParsedQuery, error) {
	prompt, err := RenderPrompt(query)
	if err != nil {
		return nil, err
	}

	reqBody := openAIChatRequest{
		Model: o.model,
		Messages: []openAIChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: o.temperature,
		MaxTokens:   1024,
		ResponseFormat: &struct {
			Type string `json:"type"`
		}{Type: "json_object"},
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal openai request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read openai response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai returned status %d: %s", resp.StatusCode, truncateBody(body))
	}

	var chat openAIChatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return nil, fmt.Errorf("%w: openai body: %v", ErrUnparseableResponse, err)
	}
	if chat.Error != nil {
		return nil, fmt.Errorf("openai error (%s): %s", chat.Error.Type, chat.Error.Message)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("%w: openai returned no choices", ErrUnparseableResponse)
	}

	logger.Debug("openai parse complete",
		"model", o.model, "prompt_tokens", chat.Usage.PromptTokens, "completion_tokens", chat.Usage.CompletionTokens)

	return DecodeReply(chat.Choices[0].Message.Content, SourceOpenAI)
}

func truncateBody(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
