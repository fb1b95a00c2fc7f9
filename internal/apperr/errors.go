// Package apperr defines the error kinds surfaced by a pipeline run.
//
// Resolution misses (unknown epic, priority, assignee or issue type) are not
// errors: they are reported as notices and the run continues.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrNetwork       = errors.New("network error")
	ErrExtraction    = errors.New("extraction error")
)

// ConfigError lists required settings that are missing
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing required environment values: %s", strings.Join(e.Missing, ", "))
}

func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

// NetworkError is a failed call to the tracker or an LLM provider. StatusCode
// is zero when no HTTP response was received.
type NetworkError struct {
	Service    string
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *NetworkError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Service)
	if e.Op != "" {
		sb.WriteString(" " + e.Op)
	}
	if e.StatusCode > 0 {
		fmt.Fprintf(&sb, ": http %d", e.StatusCode)
	}
	if body := strings.TrimSpace(e.Body); body != "" {
		sb.WriteString(": " + body)
	} else if e.Err != nil {
		sb.WriteString(": " + e.Err.Error())
	}
	return sb.String()
}

func (e *NetworkError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNetwork}
	}
	return []error{ErrNetwork, e.Err}
}

// ExtractionError is returned when no strategy produced a valid task bundle.
// Attempts holds one failure per strategy, in the order they were tried.
type ExtractionError struct {
	Attempts []error
}

func (e *ExtractionError) Error() string {
	if len(e.Attempts) == 0 {
		return "task extraction failed: no strategies configured"
	}
	msgs := make([]string, 0, len(e.Attempts))
	for _, err := range e.Attempts {
		msgs = append(msgs, err.Error())
	}
	return "task extraction failed: " + strings.Join(msgs, " | ")
}

func (e *ExtractionError) Unwrap() []error {
	return append([]error{ErrExtraction}, e.Attempts...)
}
