package api

import (
	"tuneport/internal/catalog"
	"tuneport/internal/jobs"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// JobStatus is the status surface of a job.
type JobStatus struct {
	JobID            string                 `json:"jobId"`
	Status           string                 `json:"status"`
	Progress         int                    `json:"progress"`
	TrackInfo        *jobs.TrackInfo        `json:"trackInfo,omitempty"`
	DownloadInfo     *jobs.DownloadInfo     `json:"downloadInfo,omitempty"`
	Error            string                 `json:"error,omitempty"`
	CurrentStep      string                 `json:"currentStep,omitempty"`
	SourceURL        string                 `json:"sourceUrl,omitempty"`
	PlaylistID       string                 `json:"playlistId,omitempty"`
	FallbackMetadata *jobs.FallbackMetadata `json:"fallbackMetadata,omitempty"`
	Segments         *jobs.SegmentSummary   `json:"segments,omitempty"`
	CreatedAt        string                 `json:"createdAt,omitempty"`
	UpdatedAt        string                 `json:"updatedAt,omitempty"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running   bool           `json:"running"`
	Workers   int            `json:"workers"`
	Active    int            `json:"active"`
	JobStats  map[string]int `json:"jobStats"`
	LastError string         `json:"lastError,omitempty"`
	LastJob   *JobStatus     `json:"lastJob,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	JobsDBPath   string         `json:"jobsDbPath"`
	LockFilePath string         `json:"lockFilePath"`
	Workflow     WorkflowStatus `json:"workflow"`
}

// SubmitJobRequest is the body of a job submission. SegmentsText holds
// manual "start[-end] title" lines and is ignored when Segments is set.
type SubmitJobRequest struct {
	SourceURL               string         `json:"sourceUrl"`
	PlaylistID              string         `json:"playlistId,omitempty"`
	Title                   string         `json:"title,omitempty"`
	Artist                  string         `json:"artist,omitempty"`
	DurationSeconds         int            `json:"durationSeconds,omitempty"`
	Download                bool           `json:"download,omitempty"`
	DownloadMode            string         `json:"downloadMode,omitempty"`
	Format                  string         `json:"format,omitempty"`
	Segments                []jobs.Segment `json:"segments,omitempty"`
	SegmentsText            string         `json:"segmentsText,omitempty"`
	SegmentMode             string         `json:"segmentMode,omitempty"`
	SegmentsFromDescription bool           `json:"segmentsFromDescription,omitempty"`
}

// ConfirmRequest optionally replaces the proposed fallback metadata.
type ConfirmRequest struct {
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []JobStatus `json:"jobs"`
}

// ClearResponse reports how many jobs a housekeeping call removed.
type ClearResponse struct {
	Removed int64 `json:"removed"`
}

// CreatePlaylistRequest is the body of POST /api/playlists.
type CreatePlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Public      bool   `json:"public"`
}

// PlaylistListResponse wraps the user's playlists.
type PlaylistListResponse struct {
	Playlists []catalog.Playlist `json:"playlists"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
