package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/clintrovert/ticketsmith/internal/apperr"
)

const (
	// Temperature is kept low so the same brief yields the same plan
	Temperature = 0.1

	DefaultModel         = openai.GPT4oMini
	DefaultFallbackModel = openai.GPT3Dot5TurboInstruct

	completionMaxTokens = 4096
)

// OpenAIConfig holds the connection settings shared by the OpenAI strategies
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

// NewOpenAIClient creates an OpenAI client, honoring a custom base URL
func NewOpenAIClient(cfg OpenAIConfig) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return openai.NewClientWithConfig(clientCfg)
}

// ChatStrategy asks a chat model for a JSON object response
type ChatStrategy struct {
	client *openai.Client
	logger *zap.Logger
	model  string
}

// NewChatStrategy creates the primary, structured-output strategy
func NewChatStrategy(client *openai.Client, model string, logger *zap.Logger) *ChatStrategy {
	if model == "" {
		model = DefaultModel
	}

	return &ChatStrategy{
		client: client,
		logger: logger,
		model:  model,
	}
}

// Name identifies the strategy in errors and logs
func (s *ChatStrategy) Name() string {
	return "chat-completions"
}

// Complete sends both prompts as chat messages in JSON mode
func (s *ChatStrategy) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: userPrompt,
				},
			},
			Temperature: Temperature,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		return "", openAIError("chat completion", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from AI")
	}

	s.logger.Debug("chat completion finished",
		zap.String("model", s.model),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return resp.Choices[0].Message.Content, nil
}

// CompletionStrategy sends a single combined prompt to the legacy
// completions endpoint and expects free-form text containing JSON.
type CompletionStrategy struct {
	client *openai.Client
	logger *zap.Logger
	model  string
}

// NewCompletionStrategy creates the fallback, free-form strategy
func NewCompletionStrategy(client *openai.Client, model string, logger *zap.Logger) *CompletionStrategy {
	if model == "" {
		model = DefaultFallbackModel
	}

	return &CompletionStrategy{
		client: client,
		logger: logger,
		model:  model,
	}
}

// Name identifies the strategy in errors and logs
func (s *CompletionStrategy) Name() string {
	return "completions"
}

// Complete sends the combined prompt and joins the returned text
func (s *CompletionStrategy) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := s.client.CreateCompletion(
		ctx,
		openai.CompletionRequest{
			Model:       s.model,
			Prompt:      CombinedPrompt(systemPrompt, userPrompt),
			Temperature: Temperature,
			MaxTokens:   completionMaxTokens,
		},
	)
	if err != nil {
		return "", openAIError("completion", err)
	}

	var sb strings.Builder
	for _, choice := range resp.Choices {
		sb.WriteString(choice.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("no response from AI")
	}

	s.logger.Debug("completion finished",
		zap.String("model", s.model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return sb.String(), nil
}

// openAIError converts provider failures to *apperr.NetworkError. Client
// side failures such as an unsupported model are returned unchanged.
func openAIError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &apperr.NetworkError{
			Service:    "openai",
			Op:         op,
			StatusCode: apiErr.HTTPStatusCode,
			Body:       apiErr.Message,
			Err:        err,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &apperr.NetworkError{
			Service:    "openai",
			Op:         op,
			StatusCode: reqErr.HTTPStatusCode,
			Body:       string(reqErr.Body),
			Err:        err,
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, openai.ErrCompletionUnsupportedModel) || errors.Is(err, openai.ErrCompletionRequestPromptTypeNotSupported) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return &apperr.NetworkError{Service: "openai", Op: op, Err: err}
}
