package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChildTaskInheritsFromParent(t *testing.T) {
	parent := Task{
		Title:    "Landing page",
		Labels:   []string{"web"},
		Priority: PriorityHigh,
		Assignee: "ana@example.com",
	}

	child := parent.ChildTask(Subtask{Title: "Wireframe", DueDate: "2025-03-01"})
	assert.Equal(t, "Wireframe", child.Title)
	assert.Equal(t, []string{"web"}, child.Labels)
	assert.Equal(t, "ana@example.com", child.Assignee)
	assert.Equal(t, "2025-03-01", child.DueDate)
	assert.Empty(t, child.Priority)
	assert.Empty(t, child.Subtasks)

	own := parent.ChildTask(Subtask{Title: "Copy", Assignee: "bo@example.com"})
	assert.Equal(t, "bo@example.com", own.Assignee)
}

func TestSubtaskCount(t *testing.T) {
	b := &TaskBundle{Tasks: []Task{
		{Title: "a", Subtasks: []Subtask{{Title: "1"}, {Title: "2"}}},
		{Title: "b"},
		{Title: "c", Subtasks: []Subtask{{Title: "3"}}},
	}}
	assert.Equal(t, 3, b.SubtaskCount())
}

func TestPriorityMapLookup(t *testing.T) {
	m := PriorityMap{"medium": "3", "low": "4", "very high": "6", "very": "6"}

	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{name: "Medium", want: "3", wantOK: true},
		{name: "  LOW ", want: "4", wantOK: true},
		{name: "Very High", want: "6", wantOK: true},
		{name: "very urgent", want: "6", wantOK: true},
		{name: "Critical", wantOK: false},
		{name: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Lookup(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalPriority(t *testing.T) {
	assert.Equal(t, PriorityHighest, CanonicalPriority("HIGHEST"))
	assert.Equal(t, PriorityLow, CanonicalPriority(" low "))
	assert.Equal(t, "Urgent", CanonicalPriority("Urgent"))
}

func TestIssueTypeIDs(t *testing.T) {
	ids := IssueTypeIDs{Task: "10001"}
	assert.True(t, ids.HasTask())
	assert.False(t, ids.HasSubtask())
}
