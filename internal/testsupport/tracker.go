// Package testsupport provides in-memory fakes shared by package tests.
package testsupport

import (
	"context"
	"fmt"

	"github.com/clintrovert/ticketsmith/internal/tracker"
)

// Call records a single invocation made against FakeTracker
type Call struct {
	Method string
	Arg    string
}

// FakeTracker is an in-memory tracker.Client. Created issues get sequential
// keys PROJ-1, PROJ-2, ... unless KeyPrefix is set.
type FakeTracker struct {
	Priorities []tracker.Priority
	IssueTypes []tracker.IssueType
	Users      map[string][]tracker.User
	Fields     []tracker.Field
	Issues     []tracker.Issue

	KeyPrefix string

	// Per-method failures
	PrioritiesErr error
	IssueTypesErr error
	UsersErr      error
	FieldsErr     error
	SearchErr     error
	CreateErr     error
	// CreateFailAt makes only the nth CreateIssue call (1-based) return
	// CreateErr. Zero fails every call.
	CreateFailAt int

	Calls    []Call
	Created  []tracker.IssuePayload
	LastJQL  string
	LastMax  int
	sequence int
}

var _ tracker.Client = (*FakeTracker)(nil)

func (f *FakeTracker) record(method, arg string) {
	f.Calls = append(f.Calls, Call{Method: method, Arg: arg})
}

// CallCount returns how many times method was invoked
func (f *FakeTracker) CallCount(method string) int {
	n := 0
	for _, c := range f.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (f *FakeTracker) GetPriorities(ctx context.Context) ([]tracker.Priority, error) {
	f.record("GetPriorities", "")
	return f.Priorities, f.PrioritiesErr
}

func (f *FakeTracker) GetIssueTypes(ctx context.Context, projectKey string) ([]tracker.IssueType, error) {
	f.record("GetIssueTypes", projectKey)
	return f.IssueTypes, f.IssueTypesErr
}

func (f *FakeTracker) SearchUsers(ctx context.Context, query string) ([]tracker.User, error) {
	f.record("SearchUsers", query)
	if f.UsersErr != nil {
		return nil, f.UsersErr
	}
	return f.Users[query], nil
}

func (f *FakeTracker) GetFields(ctx context.Context) ([]tracker.Field, error) {
	f.record("GetFields", "")
	return f.Fields, f.FieldsErr
}

func (f *FakeTracker) SearchIssues(ctx context.Context, jql string, maxResults int, fields []string) ([]tracker.Issue, error) {
	f.record("SearchIssues", jql)
	f.LastJQL = jql
	f.LastMax = maxResults
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}
	return f.Issues, nil
}

func (f *FakeTracker) CreateIssue(ctx context.Context, payload tracker.IssuePayload) (*tracker.CreatedIssue, error) {
	summary, _ := payload.Fields["summary"].(string)
	f.record("CreateIssue", summary)
	if f.CreateErr != nil && (f.CreateFailAt == 0 || f.CallCount("CreateIssue") == f.CreateFailAt) {
		return nil, f.CreateErr
	}
	f.Created = append(f.Created, payload)
	f.sequence++

	prefix := f.KeyPrefix
	if prefix == "" {
		prefix = "PROJ"
	}
	return &tracker.CreatedIssue{
		ID:  fmt.Sprintf("%d", 10000+f.sequence),
		Key: fmt.Sprintf("%s-%d", prefix, f.sequence),
	}, nil
}
