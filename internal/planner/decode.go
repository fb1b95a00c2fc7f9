package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/clintrovert/ticketsmith/internal/textnorm"
	"github.com/clintrovert/ticketsmith/pkg/types"
)

const snippetLength = 200

// rawBundle distinguishes a missing "tasks" key from an empty list
type rawBundle struct {
	Tasks *[]types.Task `json:"tasks" yaml:"tasks"`
}

// DecodeBundle decodes model output into a validated, normalized bundle.
// Output wrapped in code fences or surrounded by prose is tolerated.
func DecodeBundle(content string) (*types.TaskBundle, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, errors.New("empty payload")
	}

	var raw rawBundle
	directErr := json.Unmarshal([]byte(trimmed), &raw)
	if directErr != nil {
		sanitized := sanitizeJSONPayload(trimmed)
		if sanitized == "" || sanitized == trimmed {
			return nil, fmt.Errorf("%w (payload snippet: %s)", directErr, snippet(trimmed))
		}
		raw = rawBundle{}
		if err := json.Unmarshal([]byte(sanitized), &raw); err != nil {
			return nil, fmt.Errorf("%w (sanitized payload snippet: %s)", err, snippet(sanitized))
		}
	}

	return normalizeBundle(raw)
}

// LoadBundle reads a bundle previously written as YAML or JSON
func LoadBundle(r io.Reader) (*types.TaskBundle, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}

	var raw rawBundle
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse bundle: %w", err)
	}
	return normalizeBundle(raw)
}

func normalizeBundle(raw rawBundle) (*types.TaskBundle, error) {
	if raw.Tasks == nil {
		return nil, errors.New(`missing "tasks"`)
	}

	bundle := &types.TaskBundle{Tasks: make([]types.Task, 0, len(*raw.Tasks))}
	for i, t := range *raw.Tasks {
		t.Title = strings.TrimSpace(t.Title)
		if t.Title == "" {
			return nil, fmt.Errorf("task %d: title is required", i+1)
		}
		t.Description = strings.TrimSpace(t.Description)
		t.Labels = cleanLabels(t.Labels)
		t.Priority = types.CanonicalPriority(t.Priority)
		if t.Priority == "" {
			t.Priority = types.DefaultPriority
		}
		t.DueDate = normalizeDate(t.DueDate)
		t.Assignee = strings.TrimSpace(t.Assignee)

		for j := range t.Subtasks {
			st := &t.Subtasks[j]
			st.Title = strings.TrimSpace(st.Title)
			if st.Title == "" {
				return nil, fmt.Errorf("task %d subtask %d: title is required", i+1, j+1)
			}
			st.Description = strings.TrimSpace(st.Description)
			st.DueDate = normalizeDate(st.DueDate)
			st.Assignee = strings.TrimSpace(st.Assignee)
		}

		bundle.Tasks = append(bundle.Tasks, t)
	}
	return bundle, nil
}

func normalizeDate(raw string) string {
	date, ok := textnorm.NormalizeDate(raw)
	if !ok {
		return ""
	}
	return date
}

func cleanLabels(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func sanitizeJSONPayload(content string) string {
	trimmed := strings.TrimSpace(stripCodeFence(content))
	if trimmed == "" {
		return ""
	}
	if trimmed[0] == '{' {
		return trimmed
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	return ""
}

func stripCodeFence(content string) string {
	start := strings.Index(content, "```")
	if start < 0 {
		return content
	}
	rest := content[start+3:]
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		// drop the language tag, e.g. ```json
		if tag := strings.TrimSpace(rest[:nl]); !strings.ContainsAny(tag, "{[") {
			rest = rest[nl+1:]
		}
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return rest
}

func snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= snippetLength {
		return s
	}
	return string(runes[:snippetLength]) + "..."
}
