package composer

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clintrovert/ticketsmith/pkg/types"
)

var testIDs = types.IssueTypeIDs{Task: "10001", Subtask: "10003"}

func newTestComposer() *Composer {
	return New("PROJ", types.PriorityMap{"high": "2", "medium": "3", "low": "4"})
}

func TestBuildDescriptionBody(t *testing.T) {
	doc := BuildDescriptionBody("Write the copy", []string{"web", "copy"}, "2025-03-05", "ana")

	require.Len(t, doc.Content, 2)
	assert.Equal(t, "doc", doc.Type)
	assert.Equal(t, 1, doc.Version)
	assert.Equal(t, "Write the copy", doc.Content[0].Content[0].Text)
	assert.Equal(t, "Labels: web, copy · Due: 2025-03-05 · Assignee: ana", doc.Content[1].Content[0].Text)
}

func TestBuildDescriptionBodyPartialMetadata(t *testing.T) {
	doc := BuildDescriptionBody("", nil, "2025-03-05", "")

	require.Len(t, doc.Content, 1)
	assert.Equal(t, "Due: 2025-03-05", doc.Content[0].Content[0].Text)
}

func TestBuildDescriptionBodyNeverEmpty(t *testing.T) {
	doc := BuildDescriptionBody("", nil, "", "")

	require.Len(t, doc.Content, 1)
	require.Len(t, doc.Content[0].Content, 1)
	assert.Equal(t, "", doc.Content[0].Content[0].Text)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"doc","version":1,"content":[{"type":"paragraph","content":[{"type":"text","text":""}]}]}`, string(raw))
}

func TestBuildIssuePayloadTask(t *testing.T) {
	task := types.Task{
		Title:    "Design landing page",
		Labels:   []string{"design"},
		Priority: "High",
		DueDate:  "2025-03-05",
		Assignee: "ana",
	}

	payload := newTestComposer().BuildIssuePayload(task, testIDs, nil, "", "", "acc-1")
	f := payload.Fields

	assert.Equal(t, map[string]string{"key": "PROJ"}, f["project"])
	assert.Equal(t, "Design landing page", f["summary"])
	assert.Equal(t, map[string]string{"id": "10001"}, f["issuetype"])
	assert.Equal(t, map[string]string{"id": "2"}, f["priority"])
	assert.Equal(t, "2025-03-05", f["duedate"])
	assert.Equal(t, map[string]string{"id": "acc-1"}, f["assignee"])
	assert.Equal(t, []string{"design"}, f["labels"])
	assert.NotContains(t, f, "parent")
}

func TestBuildIssuePayloadUnresolvedPriorityIsOmitted(t *testing.T) {
	task := types.Task{Title: "Something", Priority: "Urgentísimo"}

	payload := newTestComposer().BuildIssuePayload(task, testIDs, nil, "", "", "")

	assert.NotContains(t, payload.Fields, "priority")
	assert.NotContains(t, payload.Fields, "assignee")
	assert.NotContains(t, payload.Fields, "duedate")
	_, err := json.Marshal(payload)
	assert.NoError(t, err)
}

func TestBuildIssuePayloadSubtask(t *testing.T) {
	epic := &types.EpicContext{Key: "PROJ-1", ID: "100", Summary: "Launch"}
	task := types.Task{Title: "Child", Priority: "High"}

	payload := newTestComposer().BuildIssuePayload(task, testIDs, epic, "customfield_10014", "PROJ-7", "")
	f := payload.Fields

	assert.Equal(t, map[string]string{"id": "10003"}, f["issuetype"])
	assert.Equal(t, map[string]string{"key": "PROJ-7"}, f["parent"])
	assert.NotContains(t, f, "priority")
	assert.NotContains(t, f, "customfield_10014")
}

func TestBuildIssuePayloadEpicLinkField(t *testing.T) {
	epic := &types.EpicContext{Key: "PROJ-1", ID: "100", Summary: "Launch"}

	payload := newTestComposer().BuildIssuePayload(types.Task{Title: "T"}, testIDs, epic, "customfield_10014", "", "")

	assert.Equal(t, "PROJ-1", payload.Fields["customfield_10014"])
	assert.NotContains(t, payload.Fields, "parent")
}

func TestBuildIssuePayloadEpicParentFallback(t *testing.T) {
	epic := &types.EpicContext{Key: "PROJ-1", ID: "100", Summary: "Launch"}

	payload := newTestComposer().BuildIssuePayload(types.Task{Title: "T"}, testIDs, epic, "", "", "")

	assert.Equal(t, map[string]string{"id": "100"}, payload.Fields["parent"])
}

func TestBuildIssuePayloadTruncation(t *testing.T) {
	labels := make([]string, 15)
	for i := range labels {
		labels[i] = "l" + strings.Repeat("x", i)
	}
	task := types.Task{Title: strings.Repeat("ñ", 300), Labels: labels}

	payload := newTestComposer().BuildIssuePayload(task, testIDs, nil, "", "", "")

	summary := payload.Fields["summary"].(string)
	assert.Len(t, []rune(summary), MaxSummaryLength)
	assert.Equal(t, labels[:MaxLabels], payload.Fields["labels"])
}

func TestBuildIssuePayloadEmptyLabelsSerializeAsArray(t *testing.T) {
	payload := newTestComposer().BuildIssuePayload(types.Task{Title: "T"}, testIDs, nil, "", "", "")

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"labels":[]`)
}
