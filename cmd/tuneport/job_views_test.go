package main

import (
	"strings"
	"testing"

	"tuneport/internal/api"
	"tuneport/internal/jobs"
)

func TestDownloadOrigin(t *testing.T) {
	tests := []struct {
		name string
		info jobs.DownloadInfo
		want string
	}{
		{"lossless label", jobs.DownloadInfo{Source: "lossless", Provider: "qobuz"}, "lossless (Qobuz)"},
		{"unknown lossless source", jobs.DownloadInfo{Source: "lossless", Provider: "bandcamp"}, "lossless (bandcamp)"},
		{"extractor url", jobs.DownloadInfo{Source: "extractor", Provider: "http://127.0.0.1:8787"}, "extractor (http://127.0.0.1:8787)"},
		{"no provider", jobs.DownloadInfo{Source: "extractor"}, "extractor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := downloadOrigin(&tt.info); got != tt.want {
				t.Fatalf("downloadOrigin() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDescribeJobShowsDownloadOrigin(t *testing.T) {
	job := api.JobStatus{
		JobID:  "job-1",
		Status: string(jobs.StatusCompleted),
		TrackInfo: &jobs.TrackInfo{
			Name:    "Song",
			Artists: []string{"A", "B"},
		},
		DownloadInfo: &jobs.DownloadInfo{
			Success:  true,
			Source:   "lossless",
			Provider: "tidal",
			Filename: "a-song.flac",
			Quality:  "LOSSLESS",
		},
	}
	out := strings.Join(describeJob(job, false), "\n")
	requireContains(t, out, "Track:     A, B - Song")
	requireContains(t, out, "Download:  a-song.flac via lossless (Tidal), LOSSLESS")
}
