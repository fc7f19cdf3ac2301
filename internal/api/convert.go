package api

import (
	"strings"
	"time"

	"tuneport/internal/download"
	"tuneport/internal/jobs"
	"tuneport/internal/workflow"
)

// FromJob converts a job record to its status surface.
func FromJob(job *jobs.Job) JobStatus {
	if job == nil {
		return JobStatus{}
	}
	return JobStatus{
		JobID:            job.ID,
		Status:           string(job.Status),
		Progress:         job.Progress,
		TrackInfo:        job.TrackInfo,
		DownloadInfo:     job.DownloadInfo,
		Error:            job.Error,
		CurrentStep:      job.CurrentStep,
		SourceURL:        job.SourceURL(),
		PlaylistID:       job.PlaylistID(),
		FallbackMetadata: job.FallbackMetadata,
		Segments:         job.Segments,
		CreatedAt:        FormatTime(job.CreatedAt),
		UpdatedAt:        FormatTime(job.UpdatedAt),
	}
}

// FromJobs converts a slice of job records.
func FromJobs(list []*jobs.Job) []JobStatus {
	out := make([]JobStatus, 0, len(list))
	for _, job := range list {
		out = append(out, FromJob(job))
	}
	return out
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	wf := WorkflowStatus{
		Running:   summary.Running,
		Workers:   summary.Workers,
		Active:    summary.Active,
		JobStats:  MergeJobStats(summary.JobStats),
		LastError: summary.LastError,
	}
	if summary.LastJob != nil {
		last := FromJob(summary.LastJob)
		wf.LastJob = &last
	}
	return wf
}

// MergeJobStats returns counts keyed by status string with every known
// status present.
func MergeJobStats(stats map[jobs.Status]int) map[string]int {
	out := make(map[string]int, len(jobs.AllStatuses()))
	for _, status := range jobs.AllStatuses() {
		out[string(status)] = stats[status]
	}
	return out
}

// JobRequest converts a submission into a job request, parsing SegmentsText
// when no structured segments were sent.
func (r SubmitJobRequest) JobRequest() jobs.Request {
	req := jobs.Request{
		SourceURL:        strings.TrimSpace(r.SourceURL),
		PlaylistID:       strings.TrimSpace(r.PlaylistID),
		Title:            strings.TrimSpace(r.Title),
		Artist:           strings.TrimSpace(r.Artist),
		DurationSeconds:  r.DurationSeconds,
		Download:         r.Download,
		DownloadMode:     strings.TrimSpace(r.DownloadMode),
		Format:           strings.TrimSpace(r.Format),
		Segments:         r.Segments,
		SegmentMode:      strings.TrimSpace(r.SegmentMode),
		SegmentsFromPage: r.SegmentsFromDescription,
	}
	if len(req.Segments) == 0 && strings.TrimSpace(r.SegmentsText) != "" {
		for _, seg := range download.ParseManualSegments(r.SegmentsText) {
			req.Segments = append(req.Segments, jobs.Segment{Start: seg.Start, End: seg.End, Title: seg.Title})
		}
	}
	return req
}

// Metadata converts a confirm body into fallback metadata, or nil when no
// title was supplied.
func (r ConfirmRequest) Metadata() *jobs.FallbackMetadata {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return nil
	}
	return &jobs.FallbackMetadata{Title: title, Artist: strings.TrimSpace(r.Artist)}
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
