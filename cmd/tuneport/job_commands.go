package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tuneport/internal/api"
	"tuneport/internal/jobs"
)

const waitPollInterval = time.Second

func newAddCommand(ctx *commandContext) *cobra.Command {
	var (
		req          api.SubmitJobRequest
		segmentLines []string
		segmentsFile string
		wait         bool
		waitTimeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Queue a video for import into a playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.SourceURL = strings.TrimSpace(args[0])
			text, err := segmentsText(segmentLines, segmentsFile)
			if err != nil {
				return err
			}
			req.SegmentsText = text

			return ctx.withClient(func(client *api.Client) error {
				job, err := client.Submit(cmd.Context(), req)
				if err != nil {
					return err
				}
				if wait {
					job, err = waitForJob(cmd.Context(), client, job.JobID, waitTimeout)
					if err != nil {
						return err
					}
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, job)
				}
				out := cmd.OutOrStdout()
				if !wait {
					fmt.Fprintf(out, "Queued job %s\n", job.JobID)
					return nil
				}
				for _, line := range describeJob(job, shouldColorize(out)) {
					fmt.Fprintln(out, line)
				}
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&req.PlaylistID, "playlist", "p", "", "Target playlist ID (defaults to catalog.default_playlist_id)")
	flags.StringVar(&req.Title, "title", "", "Track title (skips source page lookup)")
	flags.StringVar(&req.Artist, "artist", "", "Track artist")
	flags.IntVar(&req.DurationSeconds, "duration", 0, "Track duration in seconds")
	flags.BoolVarP(&req.Download, "download", "d", false, "Download the audio after adding")
	flags.StringVar(&req.DownloadMode, "download-mode", "", "Download mode override (always, missing_only)")
	flags.StringVar(&req.Format, "format", "", "Requested audio format (best, mp3, flac, ...)")
	flags.StringArrayVar(&segmentLines, "segment", nil, `Segment as "start[-end] title"; repeatable`)
	flags.StringVar(&segmentsFile, "segments-file", "", "File of segment lines")
	flags.StringVar(&req.SegmentMode, "segment-mode", "", "Segment download mode (separate, single)")
	flags.BoolVar(&req.SegmentsFromDescription, "segments-from-description", false, "Read segments from the video description")
	flags.BoolVarP(&wait, "wait", "w", false, "Wait until the job finishes or needs confirmation")
	flags.DurationVar(&waitTimeout, "timeout", 10*time.Minute, "Maximum time to wait with --wait")
	return cmd
}

func segmentsText(lines []string, file string) (string, error) {
	parts := make([]string, 0, len(lines)+1)
	parts = append(parts, lines...)
	if path := strings.TrimSpace(file); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read segments file: %w", err)
		}
		parts = append(parts, string(data))
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}

// waitForJob polls until the job reaches a terminal state or parks at the
// fallback checkpoint.
func waitForJob(ctx context.Context, client *api.Client, id string, timeout time.Duration) (api.JobStatus, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()
	for {
		job, err := client.Job(ctx, id)
		if err != nil {
			return job, err
		}
		status := jobs.Status(job.Status)
		if status.IsTerminal() || status == jobs.StatusAwaitingFallback {
			return job, nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return job, fmt.Errorf("job %s still %s after %s", id, job.Status, timeout)
			}
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage jobs",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsRemoveCommand(ctx))
	jobsCmd.AddCommand(newJobsClearCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]jobs.Status, 0, len(listStatuses))
			for _, raw := range listStatuses {
				status, ok := jobs.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				statuses = append(statuses, status)
			}

			return ctx.withJobs(cmd, func(client *api.Client, service *api.JobService) error {
				var list []api.JobStatus
				var err error
				if client != nil {
					names := make([]string, 0, len(statuses))
					for _, s := range statuses {
						names = append(names, string(s))
					}
					list, err = client.ListJobs(cmd.Context(), names...)
				} else {
					list, err = service.List(cmd.Context(), statuses...)
				}
				if err != nil {
					return err
				}

				if ctx.jsonOutput() {
					return writeJSON(cmd, api.JobListResponse{Jobs: list})
				}
				out := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(out, "No jobs")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Status", "Progress", "Track", "Updated"},
					buildJobListRows(list, shouldColorize(out)),
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				)
				fmt.Fprint(out, table)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by status (repeatable or comma separated)")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJobs(cmd, func(client *api.Client, service *api.JobService) error {
				var job api.JobStatus
				if client != nil {
					var err error
					if job, err = client.Job(cmd.Context(), args[0]); err != nil {
						return err
					}
				} else {
					found, err := service.Describe(cmd.Context(), args[0])
					if err != nil {
						if errors.Is(err, jobs.ErrNotFound) {
							return fmt.Errorf("job %s not found", args[0])
						}
						return err
					}
					job = *found
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, job)
				}
				out := cmd.OutOrStdout()
				for _, line := range describeJob(job, shouldColorize(out)) {
					fmt.Fprintln(out, line)
				}
				return nil
			})
		},
	}
}

func newJobsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a finished job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				if err := client.RemoveJob(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed job %s\n", args[0])
				return nil
			})
		},
	}
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all completed or failed jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			status = strings.ToLower(strings.TrimSpace(status))
			if status != string(jobs.StatusCompleted) && status != string(jobs.StatusFailed) {
				return fmt.Errorf("--status must be completed or failed, got %q", status)
			}
			return ctx.withClient(func(client *api.Client) error {
				removed, err := client.ClearJobs(cmd.Context(), status)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.ClearResponse{Removed: removed})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d %s job(s)\n", removed, status)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", string(jobs.StatusCompleted), "Status to clear (completed or failed)")
	return cmd
}

func newConfirmCommand(ctx *commandContext) *cobra.Command {
	var req api.ConfirmRequest

	cmd := &cobra.Command{
		Use:   "confirm <id>",
		Short: "Accept the proposed fallback metadata for a parked job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				job, err := client.Confirm(cmd.Context(), args[0], req)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, job)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Confirmed job %s; resuming\n", job.JobID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "Replace the proposed title")
	cmd.Flags().StringVar(&req.Artist, "artist", "", "Replace the proposed artist")
	return cmd
}

func newRejectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject the proposed fallback metadata and fail the job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				job, err := client.Reject(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, job)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rejected job %s\n", job.JobID)
				return nil
			})
		},
	}
}
