package main

import (
	"fmt"
	"strconv"

	"tuneport/internal/api"
	"tuneport/internal/catalog"
	"tuneport/internal/download"
	"tuneport/internal/jobs"
	"tuneport/internal/matching"
)

func trackLabel(job api.JobStatus) string {
	if job.TrackInfo == nil {
		if job.FallbackMetadata != nil {
			return fallbackLabel(job.FallbackMetadata)
		}
		return "-"
	}
	return catalog.DisplayName(matching.Candidate{Name: job.TrackInfo.Name, ArtistNames: job.TrackInfo.Artists})
}

// downloadOrigin names where a download came from, e.g. "lossless (Qobuz)".
func downloadOrigin(d *jobs.DownloadInfo) string {
	if d.Provider == "" {
		return d.Source
	}
	provider := d.Provider
	if d.Source == string(download.KindLossless) {
		provider = download.SourceLabel(provider)
	}
	if d.Source == "" {
		return provider
	}
	return d.Source + " (" + provider + ")"
}

func fallbackLabel(meta *jobs.FallbackMetadata) string {
	if meta == nil {
		return "-"
	}
	if meta.Artist == "" {
		return meta.Title
	}
	return meta.Artist + " - " + meta.Title
}

func buildJobListRows(list []api.JobStatus, colorize bool) [][]string {
	rows := make([][]string, 0, len(list))
	for _, job := range list {
		rows = append(rows, []string{
			job.JobID,
			jobStatusLabel(job.Status, colorize),
			strconv.Itoa(job.Progress) + "%",
			trackLabel(job),
			job.UpdatedAt,
		})
	}
	return rows
}

func buildStatsRows(stats map[string]int) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, status := range jobs.AllStatuses() {
		count, ok := stats[string(status)]
		if !ok || count == 0 {
			continue
		}
		rows = append(rows, []string{jobStatusLabel(string(status), false), strconv.Itoa(count)})
	}
	return rows
}

// describeJob renders the detail view used by "jobs show" and "add --wait".
func describeJob(job api.JobStatus, colorize bool) []string {
	lines := []string{
		fmt.Sprintf("Job:       %s", job.JobID),
		fmt.Sprintf("Status:    %s (%d%%)", jobStatusLabel(job.Status, colorize), job.Progress),
	}
	if job.CurrentStep != "" {
		lines = append(lines, fmt.Sprintf("Step:      %s", job.CurrentStep))
	}
	if job.SourceURL != "" {
		lines = append(lines, fmt.Sprintf("Source:    %s", job.SourceURL))
	}
	if job.PlaylistID != "" {
		lines = append(lines, fmt.Sprintf("Playlist:  %s", job.PlaylistID))
	}
	if t := job.TrackInfo; t != nil {
		lines = append(lines, fmt.Sprintf("Track:     %s", trackLabel(job)))
		lines = append(lines, fmt.Sprintf("URI:       %s", t.URI))
		lines = append(lines, fmt.Sprintf("Score:     %.3f (%s)", t.Score, t.Confidence))
		if t.AlreadyInPlaylist {
			lines = append(lines, "Duplicate: already in playlist")
		}
		if t.FromFallback {
			lines = append(lines, "Fallback:  metadata from source page")
		}
	}
	if job.Status == string(jobs.StatusAwaitingFallback) && job.FallbackMetadata != nil {
		lines = append(lines, fmt.Sprintf("Proposed:  %s (source: %s)", fallbackLabel(job.FallbackMetadata), job.FallbackMetadata.Source))
		lines = append(lines, fmt.Sprintf("Resolve with `tuneport confirm %s` or `tuneport reject %s`", job.JobID, job.JobID))
	}
	if d := job.DownloadInfo; d != nil {
		switch {
		case d.Skipped:
			lines = append(lines, "Download:  skipped")
		case d.Success:
			lines = append(lines, fmt.Sprintf("Download:  %s via %s, %s", d.Filename, downloadOrigin(d), d.Quality))
		default:
			lines = append(lines, fmt.Sprintf("Download:  failed (%s)", d.Error))
		}
		if d.Warning != "" {
			lines = append(lines, fmt.Sprintf("Warning:   %s", d.Warning))
		}
	}
	if s := job.Segments; s != nil {
		lines = append(lines, fmt.Sprintf("Segments:  %d total, %d added, %d duplicates, %d failed", s.Total, s.Added, s.Duplicates, s.Failed))
	}
	if job.Error != "" {
		lines = append(lines, fmt.Sprintf("Error:     %s", job.Error))
	}
	return lines
}
