package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/clintrovert/ticketsmith/internal/config"
	"github.com/clintrovert/ticketsmith/internal/jira"
	"github.com/clintrovert/ticketsmith/internal/planner"
	"github.com/clintrovert/ticketsmith/internal/tracker"
)

const pasteHint = "Paste the task brief, then press Ctrl+D (Unix) or Ctrl+Z and Enter (Windows)."

// trackerClient is a tracker that can also verify credentials and link to
// its issues
type trackerClient interface {
	tracker.Client
	CheckAuth(ctx context.Context) (*tracker.User, error)
	BrowseURL(key string) string
}

// commandContext holds the state shared by every subcommand
type commandContext struct {
	verbose bool
	envFile string

	cfg *config.Config

	newTracker      func(cfg *config.Config, logger *zap.Logger) (trackerClient, error)
	newStructurizer func(cfg *config.Config, logger *zap.Logger) planner.TextStructurizer
	newLogger       func(level zapcore.Level, encoding string) (*zap.Logger, error)
}

func newCommandContext() *commandContext {
	return &commandContext{
		newTracker:      newJiraTracker,
		newStructurizer: newStructurizer,
		newLogger:       buildLogger,
	}
}

// config loads the configuration once per process
func (c *commandContext) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}

	var files []string
	if c.envFile != "" {
		files = append(files, c.envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// logger builds the CLI logger: warnings only unless --verbose is set
func (c *commandContext) logger() (*zap.Logger, error) {
	level := zapcore.WarnLevel
	if c.verbose {
		level = zapcore.DebugLevel
	}
	return c.newLogger(level, "console")
}

func buildLogger(level zapcore.Level, encoding string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = encoding
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

func newJiraTracker(cfg *config.Config, logger *zap.Logger) (trackerClient, error) {
	client, err := jira.NewClient(cfg.Jira.BaseURL, cfg.Jira.Email, cfg.Jira.APIToken, logger)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// newStructurizer chains the chat, completion and optional Anthropic
// strategies in that order
func newStructurizer(cfg *config.Config, logger *zap.Logger) planner.TextStructurizer {
	client := planner.NewOpenAIClient(planner.OpenAIConfig{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
	})

	strategies := []planner.Strategy{
		planner.NewChatStrategy(client, cfg.OpenAI.Model, logger),
		planner.NewCompletionStrategy(client, cfg.OpenAI.FallbackModel, logger),
	}
	if cfg.Anthropic.APIKey != "" {
		strategies = append(strategies, planner.NewAnthropicStrategy(planner.AnthropicConfig{
			APIKey: cfg.Anthropic.APIKey,
			Model:  cfg.Anthropic.Model,
		}, logger))
	}

	return planner.NewStructurizer(logger, strategies...)
}

// isTerminal reports whether r is an interactive terminal
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// readBrief reads the whole brief from in, printing a paste hint first when
// in is a terminal
func readBrief(in io.Reader, out io.Writer, example string) (string, error) {
	if isTerminal(in) {
		fmt.Fprintln(out, pasteHint)
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read brief: %w", err)
	}

	brief := strings.TrimSpace(string(data))
	if brief == "" {
		return "", usageError(errors.New("no text received\nExample:\n  " + example))
	}
	return brief, nil
}
