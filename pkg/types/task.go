package types

import (
	"strings"
)

// Priority names accepted from the language model
const (
	PriorityHighest = "Highest"
	PriorityHigh    = "High"
	PriorityMedium  = "Medium"
	PriorityLow     = "Low"
	PriorityLowest  = "Lowest"

	DefaultPriority = PriorityMedium
)

// KnownPriorities lists the priorities in descending order
var KnownPriorities = []string{
	PriorityHighest,
	PriorityHigh,
	PriorityMedium,
	PriorityLow,
	PriorityLowest,
}

// Subtask is a child item extracted from a brief
type Subtask struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	DueDate     string `json:"due_date,omitempty" yaml:"due_date,omitempty"`
	Assignee    string `json:"assignee,omitempty" yaml:"assignee,omitempty"`
}

// Task is a top-level item extracted from a brief
type Task struct {
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Labels      []string  `json:"labels,omitempty" yaml:"labels,omitempty"`
	Priority    string    `json:"priority,omitempty" yaml:"priority,omitempty"`
	DueDate     string    `json:"due_date,omitempty" yaml:"due_date,omitempty"`
	Assignee    string    `json:"assignee,omitempty" yaml:"assignee,omitempty"`
	Subtasks    []Subtask `json:"subtasks,omitempty" yaml:"subtasks,omitempty"`
}

// ChildTask builds the task used to create st under t. Labels always come
// from the parent, the assignee only when st has none, and priority is never
// carried over.
func (t Task) ChildTask(st Subtask) Task {
	assignee := st.Assignee
	if assignee == "" {
		assignee = t.Assignee
	}

	return Task{
		Title:       st.Title,
		Description: st.Description,
		Labels:      t.Labels,
		DueDate:     st.DueDate,
		Assignee:    assignee,
	}
}

// TaskBundle is the decoded shape of the language model response
type TaskBundle struct {
	Tasks []Task `json:"tasks" yaml:"tasks"`
}

// SubtaskCount returns the number of subtasks across all tasks
func (b *TaskBundle) SubtaskCount() int {
	n := 0
	for _, t := range b.Tasks {
		n += len(t.Subtasks)
	}
	return n
}

// EpicContext identifies an epic resolved in the tracker
type EpicContext struct {
	Key     string
	ID      string
	Summary string
}

// IssueTypeIDs maps the task and subtask roles to tracker issue type IDs
type IssueTypeIDs struct {
	Task    string
	Subtask string
}

// HasTask reports whether a task issue type was resolved
func (ids IssueTypeIDs) HasTask() bool {
	return ids.Task != ""
}

// HasSubtask reports whether a subtask issue type was resolved
func (ids IssueTypeIDs) HasSubtask() bool {
	return ids.Subtask != ""
}

// PriorityMap maps lowercase priority names, and their first-word aliases,
// to tracker priority IDs.
type PriorityMap map[string]string

// Lookup resolves a priority name case-insensitively, falling back to the
// name's first word.
func (m PriorityMap) Lookup(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return "", false
	}
	if id, ok := m[key]; ok {
		return id, true
	}
	if fields := strings.Fields(key); len(fields) > 1 {
		if id, ok := m[fields[0]]; ok {
			return id, true
		}
	}
	return "", false
}

// CanonicalPriority returns the known priority matching name in any case, or
// name unchanged when it is not one of the known priorities.
func CanonicalPriority(name string) string {
	trimmed := strings.TrimSpace(name)
	for _, p := range KnownPriorities {
		if strings.EqualFold(p, trimmed) {
			return p
		}
	}
	return trimmed
}
