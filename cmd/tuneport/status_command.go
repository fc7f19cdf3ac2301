package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tuneport/internal/api"
	"tuneport/internal/config"
)

type statusView struct {
	Daemon   *api.DaemonStatus `json:"daemon,omitempty"`
	JobStats map[string]int    `json:"jobStats"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and job status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withJobs(cmd, func(client *api.Client, service *api.JobService) error {
				var view statusView
				if client != nil {
					status, err := client.Status(cmd.Context())
					if err != nil {
						return err
					}
					view.Daemon = &status
					view.JobStats = status.Workflow.JobStats
				} else {
					stats, err := service.Stats(cmd.Context())
					if err != nil {
						return err
					}
					view.JobStats = stats
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, view)
				}
				for _, line := range renderStatus(cfg, view, shouldColorize(cmd.OutOrStdout())) {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
				return nil
			})
		},
	}
}

func renderStatus(cfg *config.Config, view statusView, colorize bool) []string {
	lines := renderSectionHeader("Daemon", colorize)
	if view.Daemon == nil {
		lines = append(lines, renderStatusLine("Daemon", statusWarn, "not running", colorize))
		lines = append(lines, renderStatusLine("Job database", statusInfo, cfg.DatabasePath(), colorize))
	} else {
		d := view.Daemon
		lines = append(lines, renderStatusLine("Daemon", statusOK, "running (pid "+strconv.Itoa(d.PID)+")", colorize))
		lines = append(lines, renderStatusLine("API", statusInfo, cfg.Paths.APIBind, colorize))
		workers := statusOK
		if !d.Workflow.Running {
			workers = statusError
		}
		lines = append(lines, renderStatusLine("Workers", workers,
			fmt.Sprintf("%d active of %d", d.Workflow.Active, d.Workflow.Workers), colorize))
		lines = append(lines, renderStatusLine("Job database", statusInfo, d.JobsDBPath, colorize))
		if d.Workflow.LastError != "" {
			lines = append(lines, renderStatusLine("Last error", statusError, d.Workflow.LastError, colorize))
		}
		if last := d.Workflow.LastJob; last != nil {
			lines = append(lines, renderStatusLine("Last job", statusInfo,
				fmt.Sprintf("%s %s", last.JobID, jobStatusLabel(last.Status, false)), colorize))
		}
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Jobs", colorize)...)
	rows := buildStatsRows(view.JobStats)
	if len(rows) == 0 {
		return append(lines, "  No jobs")
	}
	table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
	return append(lines, strings.TrimRight(table, "\n"))
}
