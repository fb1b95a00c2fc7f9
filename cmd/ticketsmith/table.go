package main

import (
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/clintrovert/ticketsmith/internal/pipeline"
)

const summaryWidth = 48

// column describes one table column. Link columns are highlighted so issue
// URLs stand out, and a non-zero maxWidth soft-wraps long values.
type column struct {
	header   string
	maxWidth int
	link     bool
}

func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	// keep header casing
	tw.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, 0, len(columns))
	for i, col := range columns {
		header[i] = col.header

		cfg := table.ColumnConfig{
			Number:      i + 1,
			Align:       text.AlignLeft,
			AlignHeader: text.AlignLeft,
		}
		if col.maxWidth > 0 {
			cfg.WidthMax = col.maxWidth
			cfg.WidthMaxEnforcer = text.WrapSoft
		}
		if !color.NoColor {
			cfg.ColorsHeader = text.Colors{text.Bold}
			if col.link {
				cfg.Colors = text.Colors{text.FgBlue, text.Underline}
			}
		}
		configs = append(configs, cfg)
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range columns {
			r[i] = ""
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	return tw.Render()
}

// renderIssues lists created parents with their subtasks and links
func renderIssues(issues []pipeline.CreatedIssue, browseURL func(string) string) string {
	rows := make([][]string, 0, len(issues))
	for _, issue := range issues {
		subtasks := "-"
		if len(issue.Subtasks) > 0 {
			subtasks = strings.Join(issue.Subtasks, ", ")
		}
		rows = append(rows, []string{issue.Key, issue.Summary, subtasks, browseURL(issue.Key)})
	}
	return renderTable([]column{
		{header: "Key"},
		{header: "Summary", maxWidth: summaryWidth},
		{header: "Subtasks"},
		{header: "Link", link: true},
	}, rows)
}
