package jobs

import (
	"strings"
	"time"
)

// Status is a job's position in the state graph.
type Status string

const (
	StatusQueued           Status = "queued"
	StatusSearching        Status = "searching"
	StatusAwaitingFallback Status = "awaiting_fallback"
	StatusAdding           Status = "adding"
	StatusDownloading      Status = "downloading"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
)

// StrandedMessage is recorded on jobs that were mid-flight when the daemon
// stopped.
const StrandedMessage = "Daemon stopped before the job finished"

var allStatuses = []Status{
	StatusQueued,
	StatusSearching,
	StatusAwaitingFallback,
	StatusAdding,
	StatusDownloading,
	StatusCompleted,
	StatusFailed,
}

// processingStatuses are owned by a running worker.
var processingStatuses = map[Status]struct{}{
	StatusSearching:   {},
	StatusAdding:      {},
	StatusDownloading: {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsProcessing reports whether a worker owns a job in this status.
func (s Status) IsProcessing() bool {
	_, ok := processingStatuses[s]
	return ok
}

// Segment is a requested time range of the source, in seconds.
type Segment struct {
	Start int    `json:"start"`
	End   *int   `json:"end,omitempty"`
	Title string `json:"title,omitempty"`
}

// Request is what the submitter asked for.
type Request struct {
	SourceURL        string    `json:"sourceUrl"`
	PlaylistID       string    `json:"playlistId"`
	Title            string    `json:"title,omitempty"`
	Artist           string    `json:"artist,omitempty"`
	DurationSeconds  int       `json:"durationSeconds,omitempty"`
	Download         bool      `json:"download,omitempty"`
	DownloadMode     string    `json:"downloadMode,omitempty"`
	Format           string    `json:"format,omitempty"`
	Segments         []Segment `json:"segments,omitempty"`
	SegmentMode      string    `json:"segmentMode,omitempty"`
	SegmentsFromPage bool      `json:"segmentsFromDescription,omitempty"`
}

// TrackInfo is the catalog track a job resolved to.
type TrackInfo struct {
	URI               string   `json:"uri"`
	ExternalID        string   `json:"id,omitempty"`
	Name              string   `json:"name"`
	Artists           []string `json:"artists,omitempty"`
	DurationMs        int      `json:"durationMs,omitempty"`
	Score             float64  `json:"score"`
	Confidence        string   `json:"confidence,omitempty"`
	Query             string   `json:"query,omitempty"`
	AlreadyInPlaylist bool     `json:"alreadyInPlaylist,omitempty"`
	FromFallback      bool     `json:"fromFallback,omitempty"`
}

// DownloadAsset is one downloaded file.
type DownloadAsset struct {
	URL      string `json:"url,omitempty"`
	Filename string `json:"filename,omitempty"`
	Path     string `json:"path,omitempty"`
	Segment  int    `json:"segment,omitempty"`
}

// DownloadInfo records the outcome of the download step.
type DownloadInfo struct {
	Success    bool            `json:"success"`
	Source     string          `json:"source,omitempty"`
	Provider   string          `json:"provider,omitempty"`
	URL        string          `json:"url,omitempty"`
	Filename   string          `json:"filename,omitempty"`
	Path       string          `json:"path,omitempty"`
	Quality    string          `json:"quality,omitempty"`
	IsLossless bool            `json:"isLossless"`
	Warning    string          `json:"warning,omitempty"`
	Error      string          `json:"error,omitempty"`
	Skipped    bool            `json:"skipped,omitempty"`
	Assets     []DownloadAsset `json:"assets,omitempty"`
}

// FallbackMetadata is the alternate artist/title guess awaiting or used for
// a fallback search.
type FallbackMetadata struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Source     string `json:"source,omitempty"`
	Confidence string `json:"confidence,omitempty"`
}

// SegmentOutcome labels how one segment of a segment job ended.
type SegmentOutcome string

const (
	SegmentAdded     SegmentOutcome = "added"
	SegmentDuplicate SegmentOutcome = "duplicate"
	SegmentFailed    SegmentOutcome = "failed"
)

// SegmentResult is the per-segment record of a segment job.
type SegmentResult struct {
	Index   int            `json:"index"`
	Title   string         `json:"title,omitempty"`
	Artist  string         `json:"artist,omitempty"`
	Outcome SegmentOutcome `json:"outcome"`
	URI     string         `json:"uri,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// SegmentSummary counts segment outcomes.
type SegmentSummary struct {
	Total      int             `json:"total"`
	Added      int             `json:"added"`
	Duplicates int             `json:"duplicates"`
	Failed     int             `json:"failed"`
	Results    []SegmentResult `json:"results,omitempty"`
}

// Record appends result and updates the counters.
func (s *SegmentSummary) Record(result SegmentResult) {
	s.Results = append(s.Results, result)
	switch result.Outcome {
	case SegmentAdded:
		s.Added++
	case SegmentDuplicate:
		s.Duplicates++
	default:
		s.Failed++
	}
}

// AllFailed reports whether no segment succeeded.
func (s SegmentSummary) AllFailed() bool {
	return s.Total > 0 && s.Failed >= s.Total
}

// Job is one submitted track (or segment set) and its progress.
type Job struct {
	ID               string
	Request          Request
	Status           Status
	Progress         int
	CurrentStep      string
	TrackInfo        *TrackInfo
	DownloadInfo     *DownloadInfo
	FallbackMetadata *FallbackMetadata
	Segments         *SegmentSummary
	Error            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SourceURL returns the requested source.
func (j *Job) SourceURL() string { return j.Request.SourceURL }

// PlaylistID returns the target playlist.
func (j *Job) PlaylistID() string { return j.Request.PlaylistID }

// Transition moves the job to next and sets progress and step. It returns
// ErrInvalidTransition when the graph forbids the move.
func (j *Job) Transition(next Status, progress int, step string) error {
	if err := checkTransition(j.Status, next); err != nil {
		return err
	}
	j.Status = next
	j.SetProgress(progress, step)
	return nil
}

// SetProgress updates progress without changing status. Progress is
// clamped to 0..100.
func (j *Job) SetProgress(progress int, step string) {
	j.Progress = min(max(progress, 0), 100)
	if step != "" {
		j.CurrentStep = step
	}
}

// Fail moves the job to failed with message. Terminal jobs are left alone.
func (j *Job) Fail(message string) error {
	if err := checkTransition(j.Status, StatusFailed); err != nil {
		return err
	}
	j.Status = StatusFailed
	j.Error = strings.TrimSpace(message)
	j.CurrentStep = "Failed"
	return nil
}

// Clone returns a deep copy so callers can mutate without touching the
// stored record.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	cp.Request.Segments = cloneSegments(j.Request.Segments)
	if j.TrackInfo != nil {
		info := *j.TrackInfo
		info.Artists = append([]string(nil), j.TrackInfo.Artists...)
		cp.TrackInfo = &info
	}
	if j.DownloadInfo != nil {
		info := *j.DownloadInfo
		info.Assets = append([]DownloadAsset(nil), j.DownloadInfo.Assets...)
		cp.DownloadInfo = &info
	}
	if j.FallbackMetadata != nil {
		meta := *j.FallbackMetadata
		cp.FallbackMetadata = &meta
	}
	if j.Segments != nil {
		summary := *j.Segments
		summary.Results = append([]SegmentResult(nil), j.Segments.Results...)
		cp.Segments = &summary
	}
	return &cp
}

func cloneSegments(segments []Segment) []Segment {
	if segments == nil {
		return nil
	}
	out := make([]Segment, len(segments))
	for i, seg := range segments {
		out[i] = seg
		if seg.End != nil {
			end := *seg.End
			out[i].End = &end
		}
	}
	return out
}
