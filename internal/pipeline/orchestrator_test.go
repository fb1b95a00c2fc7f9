package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clintrovert/ticketsmith/internal/apperr"
	"github.com/clintrovert/ticketsmith/internal/planner"
	"github.com/clintrovert/ticketsmith/internal/report"
	"github.com/clintrovert/ticketsmith/internal/testsupport"
	"github.com/clintrovert/ticketsmith/internal/tracker"
	"github.com/clintrovert/ticketsmith/pkg/types"
)

const brief = "Epic: Website\n- Landing page for ana, high priority, due 05/03/2025"

type failingStructurizer struct {
	err error
}

func (f failingStructurizer) Structurize(ctx context.Context, freeText string) (*types.TaskBundle, error) {
	return nil, f.err
}

func newFakeTracker() *testsupport.FakeTracker {
	return &testsupport.FakeTracker{
		Priorities: []tracker.Priority{
			{ID: "1", Name: "Highest"},
			{ID: "2", Name: "High"},
			{ID: "3", Name: "Medium"},
			{ID: "4", Name: "Low"},
			{ID: "5", Name: "Lowest"},
		},
		IssueTypes: []tracker.IssueType{
			{ID: "10000", Name: "Epic"},
			{ID: "10001", Name: "Task"},
			{ID: "10002", Name: "Sub-task", Subtask: true},
		},
		Users: map[string][]tracker.User{
			"ana@example.com": {{AccountID: "acc-ana", DisplayName: "Ana"}},
		},
		Fields: []tracker.Field{
			{ID: "summary", Name: "Summary"},
			{ID: "customfield_10014", Name: "Epic Link", Custom: true},
		},
		Issues: []tracker.Issue{
			{ID: "20007", Key: "PROJ-7", Summary: "Website Project"},
			{ID: "20003", Key: "PROJ-3", Summary: "Website"},
		},
	}
}

func landingBundle() *types.TaskBundle {
	return &types.TaskBundle{Tasks: []types.Task{
		{
			Title:    "Landing page",
			Labels:   []string{"web", "design"},
			Priority: types.PriorityHigh,
			DueDate:  "2025-03-05",
			Assignee: "ana@example.com",
			Subtasks: []types.Subtask{
				{Title: "Wireframe", DueDate: "2025-03-01"},
				{Title: "Copy"},
			},
		},
	}}
}

type sleepRecorder struct {
	calls []time.Duration
	err   error
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return s.err
}

func newOrchestrator(
	fake *testsupport.FakeTracker,
	structurizer planner.TextStructurizer,
	opts Options,
) (*Orchestrator, *report.Transcript, *sleepRecorder) {
	if opts.ProjectKey == "" {
		opts.ProjectKey = "PROJ"
	}
	tr := report.NewTranscript()
	rec := &sleepRecorder{}
	o := New(fake, structurizer, opts, tr, zap.NewNop()).WithSleep(rec.sleep)
	return o, tr, rec
}

func TestRunDryRunPreviewsWithoutMutation(t *testing.T) {
	fake := newFakeTracker()
	o, tr, _ := newOrchestrator(fake, planner.Static{Bundle: landingBundle()}, Options{})

	result, err := o.Run(context.Background(), brief, true)
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Empty(t, result.Keys)
	assert.Equal(t, 0, fake.CallCount("CreateIssue"))
	assert.Equal(t, 0, fake.CallCount("SearchUsers"))
	assert.Equal(t, 1, fake.CallCount("GetPriorities"))

	previews := tr.Filter(report.LevelPreview)
	require.Len(t, previews, 3)
	assert.Equal(t,
		"Task: Landing page | due=2025-03-05 | prio=High | labels=web, design | assignee=ana@example.com | epic=Website",
		previews[0])
	assert.Equal(t, "  Subtask: Wireframe | due=2025-03-01 | assignee=-", previews[1])
	assert.Equal(t, "  Subtask: Copy | due=- | assignee=-", previews[2])
	assert.Equal(t, "Dry-run mode (no issues will be created)", tr.Lines()[0].Text)
}

func TestRunCreatesParentThenSubtasks(t *testing.T) {
	fake := newFakeTracker()
	o, _, rec := newOrchestrator(fake, planner.Static{Bundle: landingBundle()}, Options{SubtaskDelay: DefaultSubtaskDelay})

	result, err := o.Run(context.Background(), brief, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"PROJ-1"}, result.Keys)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, []string{"PROJ-2", "PROJ-3"}, result.Issues[0].Subtasks)

	require.Len(t, fake.Created, 3)
	parent := fake.Created[0].Fields
	assert.Equal(t, "Landing page", parent["summary"])
	assert.Equal(t, map[string]string{"id": "10001"}, parent["issuetype"])
	assert.Equal(t, map[string]string{"id": "2"}, parent["priority"])
	assert.Equal(t, "PROJ-3", parent["customfield_10014"], "exact epic match wins over newer partial match")
	assert.Equal(t, map[string]string{"id": "acc-ana"}, parent["assignee"])
	assert.NotContains(t, parent, "parent")

	for _, sub := range fake.Created[1:] {
		assert.Equal(t, map[string]string{"key": "PROJ-1"}, sub.Fields["parent"])
		assert.Equal(t, map[string]string{"id": "10002"}, sub.Fields["issuetype"])
		assert.Equal(t, []string{"web", "design"}, sub.Fields["labels"])
		assert.Equal(t, map[string]string{"id": "acc-ana"}, sub.Fields["assignee"], "assignee is inherited")
		assert.NotContains(t, sub.Fields, "priority")
		assert.NotContains(t, sub.Fields, "customfield_10014")
	}

	assert.Equal(t, []time.Duration{DefaultSubtaskDelay}, rec.calls, "delay only between consecutive subtasks")
}

func TestRunSkipsSubtasksWithoutSubtaskType(t *testing.T) {
	fake := newFakeTracker()
	fake.IssueTypes = []tracker.IssueType{{ID: "10001", Name: "Task"}}
	o, tr, _ := newOrchestrator(fake, planner.Static{Bundle: landingBundle()}, Options{})

	result, err := o.Run(context.Background(), brief, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"PROJ-1"}, result.Keys)
	assert.Len(t, fake.Created, 1)

	warnings := strings.Join(tr.Filter(report.LevelWarn), "\n")
	assert.Contains(t, warnings, "No clear Task/Sub-task issue types found")
	assert.Contains(t, warnings, "Subtasks of PROJ-1 skipped")
}

func TestRunEpicNotFoundContinues(t *testing.T) {
	fake := newFakeTracker()
	fake.Issues = nil
	o, tr, _ := newOrchestrator(fake, planner.Static{Bundle: landingBundle()}, Options{})

	result, err := o.Run(context.Background(), brief, false)
	require.NoError(t, err)
	assert.Len(t, result.Keys, 1)

	assert.Contains(t, tr.Filter(report.LevelWarn), `Epic "Website" not found. Tasks will be created without epic linkage.`)
	assert.Equal(t, 0, fake.CallCount("GetFields"))
	assert.NotContains(t, fake.Created[0].Fields, "customfield_10014")
	assert.NotContains(t, fake.Created[0].Fields, "parent")
}

func TestRunTeamManagedEpicUsesParent(t *testing.T) {
	fake := newFakeTracker()
	fake.Fields = []tracker.Field{{ID: "summary", Name: "Summary"}}
	o, _, _ := newOrchestrator(fake, planner.Static{Bundle: landingBundle()}, Options{})

	_, err := o.Run(context.Background(), brief, false)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"id": "20003"}, fake.Created[0].Fields["parent"])
}

func TestRunUsesDefaultEpic(t *testing.T) {
	fake := newFakeTracker()
	o, _, _ := newOrchestrator(fake, planner.Static{Bundle: landingBundle()}, Options{DefaultEpic: "Website"})

	_, err := o.Run(context.Background(), "- Landing page", true)
	require.NoError(t, err)
	assert.Equal(t, tracker.BuildEpicJQL("PROJ", "Website"), fake.LastJQL)
	assert.Equal(t, tracker.EpicSearchLimit, fake.LastMax)
}

func TestRunWithoutEpicSkipsLookup(t *testing.T) {
	fake := newFakeTracker()
	o, _, _ := newOrchestrator(fake, planner.Static{Bundle: landingBundle()}, Options{})

	_, err := o.Run(context.Background(), "- Landing page", true)
	require.NoError(t, err)
	assert.Equal(t, 0, fake.CallCount("SearchIssues"))
}

func TestRunWarnsOnUnresolvedNames(t *testing.T) {
	fake := newFakeTracker()
	bundle := &types.TaskBundle{Tasks: []types.Task{
		{Title: "Audit", Priority: "Urgent", Assignee: "nobody@example.com"},
	}}
	o, tr, _ := newOrchestrator(fake, planner.Static{Bundle: bundle}, Options{})

	result, err := o.Run(context.Background(), "- audit", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"PROJ-1"}, result.Keys)

	warnings := tr.Filter(report.LevelWarn)
	assert.Contains(t, warnings, `Priority "Urgent" not found in Jira, "Audit" gets no priority`)
	assert.Contains(t, warnings, `Assignee "nobody@example.com" not found in Jira, "Audit" is left unassigned`)
	assert.NotContains(t, fake.Created[0].Fields, "priority")
	assert.NotContains(t, fake.Created[0].Fields, "assignee")
}

func TestRunStructurizerFailureAborts(t *testing.T) {
	fake := newFakeTracker()
	extractErr := &apperr.ExtractionError{Attempts: []error{errors.New("chat: bad"), errors.New("completions: worse")}}
	o, _, _ := newOrchestrator(fake, failingStructurizer{err: extractErr}, Options{})

	result, err := o.Run(context.Background(), brief, false)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperr.ErrExtraction)
	assert.Equal(t, 0, fake.CallCount("GetIssueTypes"))
	assert.Equal(t, 0, fake.CallCount("CreateIssue"))
}

func TestRunTrackerFailureAborts(t *testing.T) {
	fake := newFakeTracker()
	fake.CreateErr = &apperr.NetworkError{Service: "jira", Op: "create issue", StatusCode: 400, Body: `{"errors":{}}`}
	o, _, _ := newOrchestrator(fake, planner.Static{Bundle: landingBundle()}, Options{})

	result, err := o.Run(context.Background(), brief, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNetwork)
	assert.Contains(t, err.Error(), "http 400")
	assert.Equal(t, 1, fake.CallCount("CreateIssue"))
	require.NotNil(t, result)
	assert.Empty(t, result.Keys)
}

func TestRunReturnsIssuesCreatedBeforeFailure(t *testing.T) {
	fake := newFakeTracker()
	fake.CreateErr = &apperr.NetworkError{Service: "jira", Op: "create issue", StatusCode: 400}
	fake.CreateFailAt = 4

	b := landingBundle()
	b.Tasks = append(b.Tasks,
		types.Task{Title: "Pricing page", Subtasks: []types.Subtask{{Title: "Table"}, {Title: "FAQ"}}},
		types.Task{Title: "Blog"},
	)
	o, _, _ := newOrchestrator(fake, planner.Static{Bundle: b}, Options{})

	result, err := o.Run(context.Background(), brief, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNetwork)
	require.NotNil(t, result)
	assert.Equal(t, []string{"PROJ-1"}, result.Keys)
	assert.Equal(t, []CreatedIssue{
		{Key: "PROJ-1", Summary: "Landing page", Subtasks: []string{"PROJ-2", "PROJ-3"}},
	}, result.Issues)

	fake.CreateFailAt = 6
	fake.Created = nil
	fake.Calls = nil
	o, _, _ = newOrchestrator(fake, planner.Static{Bundle: b}, Options{})

	result, err = o.Run(context.Background(), brief, false)
	require.Error(t, err)
	assert.Equal(t, []string{"PROJ-4", "PROJ-7"}, result.Keys)
	assert.Equal(t, []string{"PROJ-8"}, result.Issues[1].Subtasks, "partially created parent is listed")
}

func TestRunStopsWhenDelayInterrupted(t *testing.T) {
	fake := newFakeTracker()
	o, _, rec := newOrchestrator(fake, planner.Static{Bundle: landingBundle()}, Options{SubtaskDelay: time.Second})
	rec.err = context.Canceled

	result, err := o.Run(context.Background(), brief, false)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, fake.Created, 2)
	require.NotNil(t, result)
	assert.Equal(t, []CreatedIssue{{Key: "PROJ-1", Summary: "Landing page", Subtasks: []string{"PROJ-2"}}}, result.Issues)
}

func TestSleepContextHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
}
