package tracker

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/clintrovert/ticketsmith/pkg/types"
)

// EpicSearchLimit caps the number of epics considered by FindEpicIssue
const EpicSearchLimit = 10

var (
	taskTypeNames    = []string{"Task", "Tarea"}
	subtaskTypeNames = []string{"Sub-task", "Subtask", "Subtarea", "Sub-task (Jira)"}
)

// Resolver maps names found in a brief to tracker identifiers
type Resolver struct {
	client Client
	logger *zap.Logger
}

// NewResolver creates a new metadata resolver
func NewResolver(client Client, logger *zap.Logger) *Resolver {
	return &Resolver{
		client: client,
		logger: logger,
	}
}

// PriorityMap fetches all priorities keyed by lowercase name. The first word
// of every name is added as an alias afterwards, so an alias can replace a
// full name or an earlier alias sharing the same first word.
func (r *Resolver) PriorityMap(ctx context.Context) (types.PriorityMap, error) {
	priorities, err := r.client.GetPriorities(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get priorities: %w", err)
	}

	out := make(types.PriorityMap, len(priorities)*2)
	names := make([]string, 0, len(priorities))
	for _, p := range priorities {
		name := strings.ToLower(p.Name)
		if _, seen := out[name]; !seen {
			names = append(names, name)
		}
		out[name] = p.ID
	}

	aliases := make(map[string]string, len(names))
	for _, name := range names {
		fields := strings.Fields(name)
		if len(fields) == 0 {
			continue
		}
		aliases[fields[0]] = out[name]
	}
	for alias, id := range aliases {
		out[alias] = id
	}

	r.logger.Debug("resolved priorities", zap.Int("count", len(priorities)))
	return out, nil
}

// IssueTypeIDs resolves the task and subtask issue types of a project. An
// unmatched role is left empty.
func (r *Resolver) IssueTypeIDs(ctx context.Context, projectKey string) (types.IssueTypeIDs, error) {
	var ids types.IssueTypeIDs

	issueTypes, err := r.client.GetIssueTypes(ctx, projectKey)
	if err != nil {
		return ids, fmt.Errorf("failed to get issue types: %w", err)
	}

	ids.Task = matchIssueType(issueTypes, taskTypeNames)
	ids.Subtask = matchIssueType(issueTypes, subtaskTypeNames)

	if ids.Task == "" && len(issueTypes) > 0 {
		ids.Task = issueTypes[0].ID
	}
	if ids.Subtask == "" {
		for _, it := range issueTypes {
			if strings.Contains(strings.ToLower(it.Name), "sub") {
				ids.Subtask = it.ID
				break
			}
		}
	}
	if ids.Subtask == "" {
		// localized names like "Teilaufgabe" only carry the flag
		for _, it := range issueTypes {
			if it.Subtask {
				ids.Subtask = it.ID
				break
			}
		}
	}

	r.logger.Debug("resolved issue types",
		zap.String("project", projectKey),
		zap.String("task", ids.Task),
		zap.String("subtask", ids.Subtask),
	)
	return ids, nil
}

func matchIssueType(issueTypes []IssueType, candidates []string) string {
	for _, it := range issueTypes {
		for _, name := range candidates {
			if it.Name == name {
				return it.ID
			}
		}
	}
	return ""
}

// FindAccountID returns the account ID of the first user matching query, or
// "" when query is empty or nothing matches.
func (r *Resolver) FindAccountID(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", nil
	}

	users, err := r.client.SearchUsers(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to search users: %w", err)
	}
	if len(users) == 0 {
		return "", nil
	}
	return users[0].AccountID, nil
}

// EpicLinkFieldKey returns the ID of the "Epic Link" field, preferring a
// custom field over a system one of the same name. An empty result means the
// project is team-managed and epics are linked through parent.
func (r *Resolver) EpicLinkFieldKey(ctx context.Context) (string, error) {
	fields, err := r.client.GetFields(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get fields: %w", err)
	}

	var key string
	for _, f := range fields {
		if strings.ToLower(strings.TrimSpace(f.Name)) != "epic link" {
			continue
		}
		if f.Custom {
			return f.ID, nil
		}
		if key == "" {
			key = f.ID
		}
	}
	return key, nil
}

// FindEpicIssue searches the newest epics whose summary contains epicName.
// An exact summary match is preferred over the newest result.
func (r *Resolver) FindEpicIssue(ctx context.Context, projectKey, epicName string) (*types.EpicContext, error) {
	jql := BuildEpicJQL(projectKey, epicName)

	issues, err := r.client.SearchIssues(ctx, jql, EpicSearchLimit, []string{"summary"})
	if err != nil {
		return nil, fmt.Errorf("failed to search epics: %w", err)
	}
	if len(issues) == 0 {
		return nil, nil
	}

	want := strings.ToLower(strings.TrimSpace(epicName))
	chosen := issues[0]
	for _, it := range issues {
		if strings.ToLower(strings.TrimSpace(it.Summary)) == want {
			chosen = it
			break
		}
	}

	r.logger.Debug("resolved epic",
		zap.String("epic", epicName),
		zap.String("key", chosen.Key),
		zap.Int("candidates", len(issues)),
	)
	return &types.EpicContext{
		Key:     chosen.Key,
		ID:      chosen.ID,
		Summary: chosen.Summary,
	}, nil
}

// BuildEpicJQL returns the JQL used to find epics named like epicName
func BuildEpicJQL(projectKey, epicName string) string {
	return fmt.Sprintf(`project="%s" AND issuetype=Epic AND summary~"%s" ORDER BY created DESC`,
		escapeJQL(projectKey), escapeJQL(epicName))
}

func escapeJQL(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
