// Package config reads ticketsmith settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/clintrovert/ticketsmith/internal/apperr"
	"github.com/clintrovert/ticketsmith/internal/pipeline"
	"github.com/clintrovert/ticketsmith/internal/planner"
)

// DefaultRESTPort is the listen port of the serve command
const DefaultRESTPort = "8080"

// Jira holds the tracker connection and run defaults
type Jira struct {
	BaseURL    string
	Email      string
	APIToken   string
	ProjectKey string
	// DryRun is true unless JIRA_DRY_RUN is "0"
	DryRun   bool
	EpicName string
}

// OpenAI holds the primary language model settings
type OpenAI struct {
	APIKey        string
	BaseURL       string
	Model         string
	FallbackModel string
}

// Anthropic holds the optional Claude strategy settings
type Anthropic struct {
	APIKey string
	Model  string
}

// Config is the immutable configuration passed to constructors
type Config struct {
	Jira         Jira
	OpenAI       OpenAI
	Anthropic    Anthropic
	SubtaskDelay time.Duration
	RESTPort     string
}

// Load reads a .env file (or the given files) when present and then the
// process environment. Variables already set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv without validating required keys
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, defaultValue string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return defaultValue
	}

	cfg := &Config{
		Jira: Jira{
			BaseURL:    strings.TrimRight(get("JIRA_BASE_URL", ""), "/"),
			Email:      get("JIRA_EMAIL", ""),
			APIToken:   get("JIRA_API_TOKEN", ""),
			ProjectKey: get("JIRA_PROJECT_KEY", ""),
			DryRun:     get("JIRA_DRY_RUN", "1") != "0",
			EpicName:   get("JIRA_EPIC_NAME", ""),
		},
		OpenAI: OpenAI{
			APIKey:        get("OPENAI_API_KEY", ""),
			BaseURL:       get("OPENAI_BASE_URL", ""),
			Model:         get("OPENAI_MODEL", planner.DefaultModel),
			FallbackModel: get("OPENAI_FALLBACK_MODEL", planner.DefaultFallbackModel),
		},
		Anthropic: Anthropic{
			APIKey: get("ANTHROPIC_API_KEY", ""),
			Model:  get("ANTHROPIC_MODEL", planner.DefaultAnthropicModel),
		},
		SubtaskDelay: pipeline.DefaultSubtaskDelay,
		RESTPort:     get("REST_PORT", DefaultRESTPort),
	}

	if raw := get("SUBTASK_DELAY", ""); raw != "" {
		delay, err := time.ParseDuration(raw)
		if err != nil || delay < 0 {
			return nil, fmt.Errorf("%w: invalid SUBTASK_DELAY %q", apperr.ErrConfiguration, raw)
		}
		cfg.SubtaskDelay = delay
	}

	return cfg, nil
}

// Validate checks every key needed to run the full pipeline
func (c *Config) Validate() error {
	missing := append(c.missingTracker(), c.missingModel()...)
	if len(missing) > 0 {
		return &apperr.ConfigError{Missing: missing}
	}
	return nil
}

// ValidateModel checks only the language model keys
func (c *Config) ValidateModel() error {
	if missing := c.missingModel(); len(missing) > 0 {
		return &apperr.ConfigError{Missing: missing}
	}
	return nil
}

// ValidateTracker checks only the Jira connection keys
func (c *Config) ValidateTracker() error {
	if missing := c.missingTracker(); len(missing) > 0 {
		return &apperr.ConfigError{Missing: missing}
	}
	return nil
}

func (c *Config) missingModel() []string {
	if c.OpenAI.APIKey == "" {
		return []string{"OPENAI_API_KEY"}
	}
	return nil
}

func (c *Config) missingTracker() []string {
	var missing []string
	required := []struct {
		key   string
		value string
	}{
		{"JIRA_BASE_URL", c.Jira.BaseURL},
		{"JIRA_EMAIL", c.Jira.Email},
		{"JIRA_API_TOKEN", c.Jira.APIToken},
		{"JIRA_PROJECT_KEY", c.Jira.ProjectKey},
	}
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.key)
		}
	}
	return missing
}
