// Package pipeline turns a brief into tracker issues.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clintrovert/ticketsmith/internal/composer"
	"github.com/clintrovert/ticketsmith/internal/planner"
	"github.com/clintrovert/ticketsmith/internal/report"
	"github.com/clintrovert/ticketsmith/internal/textnorm"
	"github.com/clintrovert/ticketsmith/internal/tracker"
	"github.com/clintrovert/ticketsmith/pkg/types"
)

// DefaultSubtaskDelay paces consecutive subtask creations
const DefaultSubtaskDelay = 200 * time.Millisecond

const absent = "-"

// SleepFunc pauses for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configures an Orchestrator
type Options struct {
	ProjectKey string
	// DefaultEpic is used when the brief has no "Epic:" line
	DefaultEpic  string
	SubtaskDelay time.Duration
}

// CreatedIssue is a parent issue created by a run
type CreatedIssue struct {
	Key      string   `json:"key"`
	Summary  string   `json:"summary"`
	Subtasks []string `json:"subtasks,omitempty"`
}

// Result is the outcome of a run. Keys lists the created parent issues in
// input order and is empty for a dry run.
type Result struct {
	DryRun bool           `json:"dry_run"`
	Keys   []string       `json:"keys"`
	Issues []CreatedIssue `json:"issues"`
}

// Orchestrator coordinates brief structurizing, metadata resolution and
// issue creation
type Orchestrator struct {
	client       tracker.Client
	resolver     *tracker.Resolver
	structurizer planner.TextStructurizer
	opts         Options
	reporter     report.Reporter
	sleep        SleepFunc
	logger       *zap.Logger
}

// New creates a new orchestrator
func New(
	client tracker.Client,
	structurizer planner.TextStructurizer,
	opts Options,
	reporter report.Reporter,
	logger *zap.Logger,
) *Orchestrator {
	if opts.SubtaskDelay < 0 {
		opts.SubtaskDelay = 0
	}
	if reporter == nil {
		reporter = report.Discard
	}

	return &Orchestrator{
		client:       client,
		resolver:     tracker.NewResolver(client, logger),
		structurizer: structurizer,
		opts:         opts,
		reporter:     reporter,
		sleep:        sleepContext,
		logger:       logger,
	}
}

// WithReporter returns a copy of o that reports to r
func (o *Orchestrator) WithReporter(r report.Reporter) *Orchestrator {
	cp := *o
	cp.reporter = r
	return &cp
}

// WithSleep returns a copy of o that paces subtasks with fn
func (o *Orchestrator) WithSleep(fn SleepFunc) *Orchestrator {
	cp := *o
	cp.sleep = fn
	return &cp
}

// Run processes one brief. Resolution misses are reported as warnings; any
// tracker or language model failure stops the run and is returned. When
// creation fails part way, the issues created so far are returned with the
// error.
func (o *Orchestrator) Run(ctx context.Context, rawText string, dryRun bool) (*Result, error) {
	logger := o.logger.With(
		zap.String("run_id", uuid.NewString()),
		zap.Bool("dry_run", dryRun),
	)
	logger.Info("pipeline run started", zap.String("project", o.opts.ProjectKey))

	if dryRun {
		o.reporter.Step("Dry-run mode (no issues will be created)")
	} else {
		o.reporter.Step("Live mode (issues will be created)")
	}

	epicName, epic, epicFieldKey, err := o.resolveEpic(ctx, rawText)
	if err != nil {
		return nil, err
	}

	o.reporter.Step("Analyzing brief with the language model")
	bundle, err := o.structurizer.Structurize(ctx, rawText)
	if err != nil {
		logger.Error("failed to structurize brief", zap.Error(err))
		return nil, err
	}
	o.reporter.Step("Extracted %d task(s) and %d subtask(s)", len(bundle.Tasks), bundle.SubtaskCount())

	ids, err := o.resolver.IssueTypeIDs(ctx, o.opts.ProjectKey)
	if err != nil {
		return nil, err
	}
	if !ids.HasTask() || !ids.HasSubtask() {
		o.reporter.Warn("No clear Task/Sub-task issue types found. The first available type is used for tasks and subtasks are skipped without a sub-task type.")
	}

	priorities, err := o.resolver.PriorityMap(ctx)
	if err != nil {
		return nil, err
	}
	comp := composer.New(o.opts.ProjectKey, priorities)

	result := &Result{
		DryRun: dryRun,
		Keys:   []string{},
		Issues: []CreatedIssue{},
	}

	for _, task := range bundle.Tasks {
		if task.Priority != "" {
			if _, ok := comp.ResolvePriority(task.Priority); !ok {
				o.reporter.Warn("Priority %q not found in Jira, %q gets no priority", task.Priority, task.Title)
			}
		}

		if dryRun {
			o.preview(task, epicName)
			continue
		}

		created, err := o.createTask(ctx, comp, task, ids, epic, epicFieldKey, logger)
		if created != nil {
			result.Keys = append(result.Keys, created.Key)
			result.Issues = append(result.Issues, *created)
		}
		if err != nil {
			logger.Error("pipeline run stopped", zap.Strings("created", result.Keys), zap.Error(err))
			return result, err
		}
	}

	logger.Info("pipeline run finished",
		zap.Int("tasks", len(bundle.Tasks)),
		zap.Strings("keys", result.Keys),
	)
	return result, nil
}

// resolveEpic finds the epic named in the brief, or the default epic. A
// missing epic is a warning, not an error.
func (o *Orchestrator) resolveEpic(ctx context.Context, rawText string) (string, *types.EpicContext, string, error) {
	epicName, ok := textnorm.DetectEpicName(rawText)
	if !ok {
		epicName = strings.TrimSpace(o.opts.DefaultEpic)
	}
	if epicName == "" {
		return "", nil, "", nil
	}

	o.reporter.Step("Looking up epic %q", epicName)
	epic, err := o.resolver.FindEpicIssue(ctx, o.opts.ProjectKey, epicName)
	if err != nil {
		return "", nil, "", err
	}
	if epic == nil {
		o.reporter.Warn("Epic %q not found. Tasks will be created without epic linkage.", epicName)
		return epicName, nil, "", nil
	}

	fieldKey, err := o.resolver.EpicLinkFieldKey(ctx)
	if err != nil {
		return "", nil, "", err
	}

	field := fieldKey
	if field == "" {
		field = "unavailable (team-managed)"
	}
	o.reporter.Success("Epic found: %s (%s) | Epic Link field: %s", epic.Key, epic.Summary, field)
	return epicName, epic, fieldKey, nil
}

func (o *Orchestrator) preview(task types.Task, epicName string) {
	o.reporter.Preview("Task: %s | due=%s | prio=%s | labels=%s | assignee=%s | epic=%s",
		task.Title,
		orAbsent(task.DueDate),
		orAbsent(task.Priority),
		orAbsent(strings.Join(task.Labels, ", ")),
		orAbsent(task.Assignee),
		orAbsent(epicName),
	)
	for _, st := range task.Subtasks {
		o.reporter.Preview("  Subtask: %s | due=%s | assignee=%s",
			st.Title,
			orAbsent(st.DueDate),
			orAbsent(st.Assignee),
		)
	}
}

func (o *Orchestrator) createTask(
	ctx context.Context,
	comp *composer.Composer,
	task types.Task,
	ids types.IssueTypeIDs,
	epic *types.EpicContext,
	epicFieldKey string,
	logger *zap.Logger,
) (*CreatedIssue, error) {
	// a non-nil result carries the parent and subtasks created before err
	parentKey, err := o.createIssue(ctx, comp, task, ids, epic, epicFieldKey, "")
	if err != nil {
		return nil, err
	}
	o.reporter.Success("Created %s: %s", parentKey, task.Title)
	logger.Info("created issue", zap.String("key", parentKey))

	created := &CreatedIssue{Key: parentKey, Summary: task.Title}

	if !ids.HasSubtask() {
		if len(task.Subtasks) > 0 {
			o.reporter.Warn("Subtasks of %s skipped (no Sub-task issue type found in the project)", parentKey)
		}
		return created, nil
	}

	for i, st := range task.Subtasks {
		if i > 0 && o.opts.SubtaskDelay > 0 {
			if err := o.sleep(ctx, o.opts.SubtaskDelay); err != nil {
				return created, err
			}
		}

		subKey, err := o.createIssue(ctx, comp, task.ChildTask(st), ids, nil, "", parentKey)
		if err != nil {
			return created, err
		}
		o.reporter.Success("  Subtask %s: %s", subKey, st.Title)
		logger.Debug("created subtask", zap.String("key", subKey), zap.String("parent", parentKey))
		created.Subtasks = append(created.Subtasks, subKey)
	}

	return created, nil
}

func (o *Orchestrator) createIssue(
	ctx context.Context,
	comp *composer.Composer,
	task types.Task,
	ids types.IssueTypeIDs,
	epic *types.EpicContext,
	epicFieldKey string,
	parentKey string,
) (string, error) {
	assigneeID, err := o.resolver.FindAccountID(ctx, task.Assignee)
	if err != nil {
		return "", err
	}
	if task.Assignee != "" && assigneeID == "" {
		o.reporter.Warn("Assignee %q not found in Jira, %q is left unassigned", task.Assignee, task.Title)
	}

	payload := comp.BuildIssuePayload(task, ids, epic, epicFieldKey, parentKey, assigneeID)
	created, err := o.client.CreateIssue(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("failed to create issue %q: %w", task.Title, err)
	}
	return created.Key, nil
}

func orAbsent(s string) string {
	if s == "" {
		return absent
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
