package planner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/clintrovert/ticketsmith/internal/apperr"
	"github.com/clintrovert/ticketsmith/pkg/types"
)

// TextStructurizer turns a free-text brief into a task bundle
type TextStructurizer interface {
	Structurize(ctx context.Context, freeText string) (*types.TaskBundle, error)
}

// Strategy is a single way of asking a language model for the bundle JSON
type Strategy interface {
	Name() string
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Structurizer tries its strategies in order until one returns a valid bundle
type Structurizer struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewStructurizer creates a structurizer over the given strategies
func NewStructurizer(logger *zap.Logger, strategies ...Strategy) *Structurizer {
	return &Structurizer{
		strategies: strategies,
		logger:     logger,
	}
}

// Structurize asks each strategy in turn and returns the first bundle that
// decodes. When all of them fail the error is an *apperr.ExtractionError
// carrying every failure.
func (s *Structurizer) Structurize(ctx context.Context, freeText string) (*types.TaskBundle, error) {
	userPrompt := BuildUserPrompt(freeText)

	attempts := make([]error, 0, len(s.strategies))
	for _, strategy := range s.strategies {
		content, err := strategy.Complete(ctx, SystemPrompt, userPrompt)
		if err != nil {
			s.logger.Warn("structurizer strategy failed",
				zap.String("strategy", strategy.Name()),
				zap.Error(err),
			)
			attempts = append(attempts, fmt.Errorf("%s: %w", strategy.Name(), err))
			continue
		}

		bundle, err := DecodeBundle(content)
		if err != nil {
			s.logger.Warn("failed to decode task bundle",
				zap.String("strategy", strategy.Name()),
				zap.Error(err),
			)
			attempts = append(attempts, fmt.Errorf("%s: decode task bundle: %w", strategy.Name(), err))
			continue
		}

		s.logger.Info("extracted task bundle",
			zap.String("strategy", strategy.Name()),
			zap.Int("tasks", len(bundle.Tasks)),
			zap.Int("subtasks", bundle.SubtaskCount()),
		)
		return bundle, nil
	}

	return nil, &apperr.ExtractionError{Attempts: attempts}
}

// Static returns a fixed bundle, used when a reviewed plan is replayed
type Static struct {
	Bundle *types.TaskBundle
}

// Structurize returns the fixed bundle
func (s Static) Structurize(ctx context.Context, freeText string) (*types.TaskBundle, error) {
	if s.Bundle == nil {
		return nil, &apperr.ExtractionError{Attempts: []error{fmt.Errorf("static: no bundle loaded")}}
	}
	return s.Bundle, nil
}
