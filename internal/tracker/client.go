// Package tracker resolves issue tracker metadata needed to create tickets.
//
// The Client interface is the only way the pipeline talks to the tracker, so
// the resolver, composer and orchestrator can be exercised without network
// access. internal/jira provides the production implementation.
package tracker

import (
	"context"
)

// Client is the set of tracker calls used by a pipeline run
type Client interface {
	GetPriorities(ctx context.Context) ([]Priority, error)
	GetIssueTypes(ctx context.Context, projectKey string) ([]IssueType, error)
	SearchUsers(ctx context.Context, query string) ([]User, error)
	GetFields(ctx context.Context) ([]Field, error)
	SearchIssues(ctx context.Context, jql string, maxResults int, fields []string) ([]Issue, error)
	CreateIssue(ctx context.Context, payload IssuePayload) (*CreatedIssue, error)
}

// Priority is a tracker priority
type Priority struct {
	ID   string
	Name string
}

// IssueType is an issue type allowed in a project
type IssueType struct {
	ID      string
	Name    string
	Subtask bool
}

// User is a tracker account returned by user search
type User struct {
	AccountID   string
	DisplayName string
	Email       string
}

// Field is a system or custom issue field
type Field struct {
	ID     string
	Name   string
	Custom bool
}

// Issue is an issue returned by a JQL search
type Issue struct {
	ID      string
	Key     string
	Summary string
}

// IssuePayload is the body of an issue creation request
type IssuePayload struct {
	Fields map[string]any `json:"fields"`
}

// CreatedIssue identifies a newly created issue
type CreatedIssue struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}
