package composer

import (
	"github.com/clintrovert/ticketsmith/internal/tracker"
	"github.com/clintrovert/ticketsmith/pkg/types"
)

const (
	MaxSummaryLength = 255
	MaxLabels        = 10
)

// Composer builds creation payloads for a single project
type Composer struct {
	projectKey string
	priorities types.PriorityMap
}

// New creates a composer for projectKey using the resolved priorities
func New(projectKey string, priorities types.PriorityMap) *Composer {
	return &Composer{
		projectKey: projectKey,
		priorities: priorities,
	}
}

// ResolvePriority returns the tracker priority ID for name
func (c *Composer) ResolvePriority(name string) (string, bool) {
	return c.priorities.Lookup(name)
}

// BuildIssuePayload builds the creation payload for task. A non-empty
// parentKey makes it a subtask of that issue: subtasks never carry priority
// or epic linkage. Top-level tasks are linked to epic through epicFieldKey
// when known, otherwise through parent (team-managed projects).
func (c *Composer) BuildIssuePayload(
	task types.Task,
	ids types.IssueTypeIDs,
	epic *types.EpicContext,
	epicFieldKey string,
	parentKey string,
	assigneeID string,
) tracker.IssuePayload {
	labels := truncateLabels(task.Labels)

	fields := map[string]any{
		"project":     map[string]string{"key": c.projectKey},
		"summary":     truncateRunes(task.Title, MaxSummaryLength),
		"description": BuildDescriptionBody(task.Description, task.Labels, task.DueDate, task.Assignee),
		"labels":      labels,
	}

	if parentKey != "" {
		fields["issuetype"] = map[string]string{"id": ids.Subtask}
		fields["parent"] = map[string]string{"key": parentKey}
	} else {
		fields["issuetype"] = map[string]string{"id": ids.Task}
		if id, ok := c.ResolvePriority(task.Priority); ok {
			fields["priority"] = map[string]string{"id": id}
		}
		if epic != nil {
			if epicFieldKey != "" {
				fields[epicFieldKey] = epic.Key
			} else {
				fields["parent"] = map[string]string{"id": epic.ID}
			}
		}
	}

	if task.DueDate != "" {
		fields["duedate"] = task.DueDate
	}
	if assigneeID != "" {
		fields["assignee"] = map[string]string{"id": assigneeID}
	}

	return tracker.IssuePayload{Fields: fields}
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func truncateLabels(labels []string) []string {
	out := make([]string, 0, min(len(labels), MaxLabels))
	for i, l := range labels {
		if i == MaxLabels {
			break
		}
		out = append(out, l)
	}
	return out
}
