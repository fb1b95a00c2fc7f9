package jira

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	jira "github.com/andygrunwald/go-jira"
	"go.uber.org/zap"

	"github.com/clintrovert/ticketsmith/internal/apperr"
	"github.com/clintrovert/ticketsmith/internal/tracker"
)

const (
	serviceName = "jira"

	createIssuePath = "rest/api/3/issue"
	searchPath      = "rest/api/3/search"
	userSearchPath  = "rest/api/3/user/search"

	maxErrorBody = 2048
)

// Client wraps Jira API client functionality
type Client struct {
	client  *jira.Client
	logger  *zap.Logger
	baseURL string
}

var _ tracker.Client = (*Client)(nil)

// NewClient creates a new Jira client authenticated with an account email
// and API token
func NewClient(baseURL, email, apiToken string, logger *zap.Logger) (*Client, error) {
	tp := jira.BasicAuthTransport{
		Username: email,
		Password: apiToken,
	}

	baseURL = strings.TrimRight(baseURL, "/")
	client, err := jira.NewClient(tp.Client(), baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}

	return &Client{
		client:  client,
		logger:  logger,
		baseURL: baseURL,
	}, nil
}

// BrowseURL returns the web link for an issue key
func (c *Client) BrowseURL(key string) string {
	return c.baseURL + "/browse/" + key
}

// CheckAuth verifies the credentials and returns the authenticated user
func (c *Client) CheckAuth(ctx context.Context) (*tracker.User, error) {
	user, resp, err := c.client.User.GetSelfWithContext(ctx)
	if err != nil {
		return nil, networkError("get current user", resp, err)
	}

	return &tracker.User{
		AccountID:   user.AccountID,
		DisplayName: user.DisplayName,
		Email:       user.EmailAddress,
	}, nil
}

// GetPriorities lists the priorities defined on the site
func (c *Client) GetPriorities(ctx context.Context) ([]tracker.Priority, error) {
	priorities, resp, err := c.client.Priority.GetListWithContext(ctx)
	if err != nil {
		return nil, networkError("list priorities", resp, err)
	}

	out := make([]tracker.Priority, 0, len(priorities))
	for _, p := range priorities {
		out = append(out, tracker.Priority{ID: p.ID, Name: p.Name})
	}
	return out, nil
}

// GetIssueTypes lists the issue types that can be created in a project
func (c *Client) GetIssueTypes(ctx context.Context, projectKey string) ([]tracker.IssueType, error) {
	meta, resp, err := c.client.Issue.GetCreateMetaWithOptionsWithContext(ctx, &jira.GetQueryOptions{
		ProjectKeys: projectKey,
		Expand:      "projects.issuetypes.fields",
	})
	if err != nil {
		return nil, networkError("get create metadata", resp, err)
	}

	var out []tracker.IssueType
	for _, project := range meta.Projects {
		if project == nil || !strings.EqualFold(project.Key, projectKey) {
			continue
		}
		for _, it := range project.IssueTypes {
			if it == nil {
				continue
			}
			out = append(out, tracker.IssueType{
				ID:      it.Id,
				Name:    it.Name,
				Subtask: it.Subtasks,
			})
		}
	}

	c.logger.Debug("loaded issue types",
		zap.String("project", projectKey),
		zap.Int("count", len(out)),
	)
	return out, nil
}

// SearchUsers runs a user search by name or email
func (c *Client) SearchUsers(ctx context.Context, query string) ([]tracker.User, error) {
	params := url.Values{}
	params.Set("query", query)

	req, err := c.client.NewRequestWithContext(ctx, http.MethodGet, userSearchPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build user search request: %w", err)
	}

	var users []jira.User
	resp, err := c.client.Do(req, &users)
	if err != nil {
		return nil, networkError("search users", resp, err)
	}

	out := make([]tracker.User, 0, len(users))
	for _, u := range users {
		out = append(out, tracker.User{
			AccountID:   u.AccountID,
			DisplayName: u.DisplayName,
			Email:       u.EmailAddress,
		})
	}
	return out, nil
}

// GetFields lists system and custom fields
func (c *Client) GetFields(ctx context.Context) ([]tracker.Field, error) {
	fields, resp, err := c.client.Field.GetListWithContext(ctx)
	if err != nil {
		return nil, networkError("list fields", resp, err)
	}

	out := make([]tracker.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, tracker.Field{ID: f.ID, Name: f.Name, Custom: f.Custom})
	}
	return out, nil
}

type searchRequest struct {
	JQL        string   `json:"jql"`
	MaxResults int      `json:"maxResults"`
	Fields     []string `json:"fields,omitempty"`
}

type searchResult struct {
	Issues []struct {
		ID     string `json:"id"`
		Key    string `json:"key"`
		Fields struct {
			Summary string `json:"summary"`
		} `json:"fields"`
	} `json:"issues"`
}

// SearchIssues runs a JQL query through the POST search endpoint
func (c *Client) SearchIssues(ctx context.Context, jql string, maxResults int, fields []string) ([]tracker.Issue, error) {
	body := searchRequest{JQL: jql, MaxResults: maxResults, Fields: fields}
	req, err := c.client.NewRequestWithContext(ctx, http.MethodPost, searchPath, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}

	var result searchResult
	resp, err := c.client.Do(req, &result)
	if err != nil {
		return nil, networkError("search issues", resp, err)
	}

	out := make([]tracker.Issue, 0, len(result.Issues))
	for _, issue := range result.Issues {
		out = append(out, tracker.Issue{ID: issue.ID, Key: issue.Key, Summary: issue.Fields.Summary})
	}
	return out, nil
}

// CreateIssue creates an issue. The v3 endpoint is used so the description
// can be sent as a rich-text document.
func (c *Client) CreateIssue(ctx context.Context, payload tracker.IssuePayload) (*tracker.CreatedIssue, error) {
	req, err := c.client.NewRequestWithContext(ctx, http.MethodPost, createIssuePath, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build create issue request: %w", err)
	}

	created := new(tracker.CreatedIssue)
	resp, err := c.client.Do(req, created)
	if err != nil {
		return nil, networkError("create issue", resp, err)
	}

	c.logger.Debug("created issue", zap.String("key", created.Key), zap.String("id", created.ID))
	return created, nil
}

// networkError maps a failed go-jira call to *apperr.NetworkError. The
// response body is included when go-jira has not consumed it already.
func networkError(op string, resp *jira.Response, err error) error {
	netErr := &apperr.NetworkError{
		Service: serviceName,
		Op:      op,
		Err:     err,
	}
	if resp == nil || resp.Response == nil {
		return netErr
	}

	netErr.StatusCode = resp.StatusCode
	if resp.Body != nil {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		netErr.Body = strings.TrimSpace(string(body))
	}
	return netErr
}
