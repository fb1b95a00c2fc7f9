package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clintrovert/ticketsmith/internal/report"
	"github.com/clintrovert/ticketsmith/internal/tracker"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify Jira credentials and show how the project resolves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			if err := cfg.ValidateTracker(); err != nil {
				return err
			}

			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			client, err := ctx.newTracker(cfg, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			console := report.NewConsole(out)

			user, err := client.CheckAuth(cmd.Context())
			if err != nil {
				return err
			}
			console.Success("Authenticated as %s (%s)", user.DisplayName, user.AccountID)

			resolver := tracker.NewResolver(client, logger)
			ids, err := resolver.IssueTypeIDs(cmd.Context(), cfg.Jira.ProjectKey)
			if err != nil {
				return err
			}
			priorities, err := resolver.PriorityMap(cmd.Context())
			if err != nil {
				return err
			}
			epicField, err := resolver.EpicLinkFieldKey(cmd.Context())
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Project", cfg.Jira.ProjectKey},
				{"Task issue type", orDash(ids.Task)},
				{"Sub-task issue type", orDash(ids.Subtask)},
				{"Priorities", fmt.Sprintf("%d names and aliases", len(priorities))},
				{"Epic Link field", orDash(epicField)},
			}
			fmt.Fprintln(out, renderTable([]column{{header: "Setting"}, {header: "Value"}}, rows))

			if !ids.HasTask() {
				return errors.New("project has no issue types that can be created")
			}
			if !ids.HasSubtask() {
				console.Warn("No Sub-task issue type found, subtasks will be skipped")
			}
			return nil
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
