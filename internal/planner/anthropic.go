package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/clintrovert/ticketsmith/internal/apperr"
)

const (
	DefaultAnthropicModel = "claude-3-5-haiku-latest"

	anthropicMaxTokens = 4096
)

// AnthropicConfig holds the settings for the Anthropic strategy
type AnthropicConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// AnthropicStrategy asks a Claude model through the Messages API
type AnthropicStrategy struct {
	client anthropic.Client
	logger *zap.Logger
	model  string
}

// NewAnthropicStrategy creates the strategy. The SDK's automatic retries are
// disabled: a failure moves on to the next strategy instead.
func NewAnthropicStrategy(cfg AnthropicConfig, logger *zap.Logger) *AnthropicStrategy {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultAnthropicModel
	}

	return &AnthropicStrategy{
		client: anthropic.NewClient(opts...),
		logger: logger,
		model:  model,
	}
}

// Name identifies the strategy in errors and logs
func (s *AnthropicStrategy) Name() string {
	return "anthropic-messages"
}

// Complete sends the system prompt and the user prompt as one user turn
func (s *AnthropicStrategy) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: anthropicMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
		Temperature: anthropic.Float(Temperature),
	})
	if err != nil {
		return "", anthropicError(err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("no response from AI (stop_reason=%s)", resp.StopReason)
	}

	s.logger.Debug("anthropic message finished",
		zap.String("model", s.model),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens),
	)
	return sb.String(), nil
}

func anthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &apperr.NetworkError{
			Service:    "anthropic",
			Op:         "create message",
			StatusCode: apiErr.StatusCode,
			Body:       apiErr.RawJSON(),
			Err:        err,
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &apperr.NetworkError{Service: "anthropic", Op: "create message", Err: err}
}
