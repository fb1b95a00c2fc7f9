package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/clintrovert/ticketsmith/pkg/types"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Extract tasks from a brief and print them without touching Jira",
		Long: "Plan prints the extracted tasks so they can be reviewed or edited, then created with\n" +
			"ticketsmith create --plan FILE.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "yaml" && format != "json" {
				return usageError(fmt.Errorf("unsupported format %q (use yaml or json)", format))
			}

			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			if err := cfg.ValidateModel(); err != nil {
				return err
			}

			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			brief, err := readBrief(cmd.InOrStdin(), cmd.ErrOrStderr(), "cat tasks.txt | ticketsmith plan > plan.yaml")
			if err != nil {
				return err
			}

			bundle, err := ctx.newStructurizer(cfg, logger).Structurize(cmd.Context(), brief)
			if err != nil {
				return err
			}
			return writeBundle(cmd.OutOrStdout(), bundle, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml or json")

	return cmd
}

func writeBundle(w io.Writer, bundle *types.TaskBundle, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(bundle)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(bundle); err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	return enc.Close()
}
