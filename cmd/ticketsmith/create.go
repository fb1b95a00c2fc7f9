package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clintrovert/ticketsmith/internal/pipeline"
	"github.com/clintrovert/ticketsmith/internal/planner"
	"github.com/clintrovert/ticketsmith/internal/report"
	"github.com/clintrovert/ticketsmith/pkg/types"
)

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var epic string
	var planFile string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create issues from a brief read on stdin",
		Long: "Create reads a free-text brief on stdin, extracts tasks with a language model and creates\n" +
			"them in Jira. Runs are dry unless JIRA_DRY_RUN=0 or --dry-run=false.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			if planFile == "" {
				err = cfg.Validate()
			} else {
				err = cfg.ValidateTracker()
			}
			if err != nil {
				return err
			}

			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			var structurizer planner.TextStructurizer
			brief := ""
			if planFile != "" {
				bundle, err := loadPlanFile(planFile)
				if err != nil {
					return usageError(err)
				}
				structurizer = planner.Static{Bundle: bundle}
			} else {
				brief, err = readBrief(cmd.InOrStdin(), cmd.OutOrStdout(), "cat tasks.txt | ticketsmith create")
				if err != nil {
					return err
				}
				structurizer = ctx.newStructurizer(cfg, logger)
			}

			client, err := ctx.newTracker(cfg, logger)
			if err != nil {
				return err
			}

			run := cfg.Jira.DryRun
			if cmd.Flags().Changed("dry-run") {
				run = dryRun
			}
			defaultEpic := cfg.Jira.EpicName
			if cmd.Flags().Changed("epic") {
				defaultEpic = epic
			}

			out := cmd.OutOrStdout()
			orchestrator := pipeline.New(client, structurizer, pipeline.Options{
				ProjectKey:   cfg.Jira.ProjectKey,
				DefaultEpic:  defaultEpic,
				SubtaskDelay: cfg.SubtaskDelay,
			}, report.NewConsole(out), logger)

			result, err := orchestrator.Run(cmd.Context(), brief, run)
			if err != nil {
				logger.Error("pipeline run failed", zap.Error(err))
				if result != nil && len(result.Issues) > 0 {
					fmt.Fprintln(out)
					fmt.Fprintln(out, renderIssues(result.Issues, client.BrowseURL))
					fmt.Fprintf(out, "Issues created before the failure: %s\n", strings.Join(result.Keys, ", "))
				}
				return err
			}

			fmt.Fprintln(out)
			if result.DryRun {
				fmt.Fprintln(out, "Dry run finished. If the preview looks right, create the issues with:")
				fmt.Fprintln(out, "  JIRA_DRY_RUN=0 ticketsmith create < tasks.txt")
				return nil
			}

			if len(result.Issues) > 0 {
				fmt.Fprintln(out, renderIssues(result.Issues, client.BrowseURL))
			}
			created := "(none)"
			if len(result.Keys) > 0 {
				created = strings.Join(result.Keys, ", ")
			}
			fmt.Fprintf(out, "Issues created: %s\n", created)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", true, "Preview without creating issues (default from JIRA_DRY_RUN)")
	cmd.Flags().StringVar(&epic, "epic", "", "Epic to link when the brief has no \"Epic:\" line (default from JIRA_EPIC_NAME)")
	cmd.Flags().StringVar(&planFile, "plan", "", "Create from a saved plan file instead of calling the language model")

	return cmd
}

func loadPlanFile(path string) (*types.TaskBundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plan: %w", err)
	}
	defer f.Close()

	bundle, err := planner.LoadBundle(f)
	if err != nil {
		return nil, fmt.Errorf("invalid plan %s: %w", path, err)
	}
	return bundle, nil
}
