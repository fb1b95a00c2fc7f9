// Package report carries the human-readable progress of a pipeline run.
// These lines are separate from zap logs: they are the output a user reads.
package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Level classifies a status line
type Level string

const (
	LevelStep    Level = "step"
	LevelSuccess Level = "success"
	LevelWarn    Level = "warn"
	LevelPreview Level = "preview"
)

// Reporter receives status lines from a pipeline run
type Reporter interface {
	Step(format string, args ...any)
	Success(format string, args ...any)
	Warn(format string, args ...any)
	Preview(format string, args ...any)
}

// Console prints status lines with coloured prefixes
type Console struct {
	out io.Writer

	step    func(a ...any) string
	success func(a ...any) string
	warn    func(a ...any) string
	preview func(a ...any) string
}

// NewConsole creates a console reporter writing to out. Colour follows
// fatih/color's terminal detection.
func NewConsole(out io.Writer) *Console {
	return &Console{
		out:     out,
		step:    color.New(color.FgCyan).SprintFunc(),
		success: color.New(color.FgGreen).SprintFunc(),
		warn:    color.New(color.FgYellow).SprintFunc(),
		preview: color.New(color.FgHiBlack).SprintFunc(),
	}
}

func (c *Console) Step(format string, args ...any) {
	fmt.Fprintf(c.out, "%s %s\n", c.step("→"), fmt.Sprintf(format, args...))
}

func (c *Console) Success(format string, args ...any) {
	fmt.Fprintf(c.out, "%s %s\n", c.success("✓"), fmt.Sprintf(format, args...))
}

func (c *Console) Warn(format string, args ...any) {
	fmt.Fprintf(c.out, "%s %s\n", c.warn("⚠"), fmt.Sprintf(format, args...))
}

func (c *Console) Preview(format string, args ...any) {
	fmt.Fprintf(c.out, "%s %s\n", c.preview("[DRY]"), fmt.Sprintf(format, args...))
}

// Line is one recorded status line
type Line struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// Transcript records status lines in order
type Transcript struct {
	mu    sync.Mutex
	lines []Line
}

// NewTranscript creates an empty transcript
func NewTranscript() *Transcript {
	return &Transcript{}
}

func (t *Transcript) add(level Level, format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, Line{Level: level, Text: fmt.Sprintf(format, args...)})
}

func (t *Transcript) Step(format string, args ...any)    { t.add(LevelStep, format, args...) }
func (t *Transcript) Success(format string, args ...any) { t.add(LevelSuccess, format, args...) }
func (t *Transcript) Warn(format string, args ...any)    { t.add(LevelWarn, format, args...) }
func (t *Transcript) Preview(format string, args ...any) { t.add(LevelPreview, format, args...) }

// Lines returns a copy of the recorded lines
func (t *Transcript) Lines() []Line {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Line, len(t.lines))
	copy(out, t.lines)
	return out
}

// Filter returns the text of every line at level
func (t *Transcript) Filter(level Level) []string {
	var out []string
	for _, l := range t.Lines() {
		if l.Level == level {
			out = append(out, l.Text)
		}
	}
	return out
}

// Multi fans status lines out to several reporters
type Multi []Reporter

func (m Multi) Step(format string, args ...any) {
	for _, r := range m {
		r.Step(format, args...)
	}
}

func (m Multi) Success(format string, args ...any) {
	for _, r := range m {
		r.Success(format, args...)
	}
}

func (m Multi) Warn(format string, args ...any) {
	for _, r := range m {
		r.Warn(format, args...)
	}
}

func (m Multi) Preview(format string, args ...any) {
	for _, r := range m {
		r.Preview(format, args...)
	}
}

// Discard drops every line
var Discard Reporter = Multi(nil)
