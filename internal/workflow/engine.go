package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"tuneport/internal/config"
	"tuneport/internal/download"
	"tuneport/internal/jobs"
	"tuneport/internal/logging"
	"tuneport/internal/matching"
	"tuneport/internal/metadata"
	"tuneport/internal/notifications"
	"tuneport/internal/services"
)

// Job-facing failure messages.
const (
	NoMatchMessage          = "Could not find matching track on Spotify"
	NoConfirmedMatchMessage = "Could not find matching track on Spotify with confirmed metadata"
	RejectedMessage         = "Fallback rejected by user"
	MetadataMessage         = "Could not extract video metadata"
	downloadFailedPrefix    = "Download failed: "
)

const (
	addAttempts          = 3
	defaultAddRetryDelay = 500 * time.Millisecond
)

// Progress checkpoints.
const (
	progressSearching        = 10
	progressMatched          = 30
	progressFallbackSearch   = 40
	progressAwaitingFallback = 45
	progressDuplicateCheck   = 50
	progressAdding           = 60
	progressAdded            = 70
	progressDownloading      = 85
	progressCompleted        = 100
)

// TrackMatcher resolves a query to a catalog track.
type TrackMatcher interface {
	Match(ctx context.Context, query matching.TrackQuery) (matching.Result, error)
}

// PlaylistWriter inserts tracks into playlists.
type PlaylistWriter interface {
	AddTrack(ctx context.Context, playlistID, uri string, position int) error
}

// DuplicateChecker reports whether a playlist already holds a track.
type DuplicateChecker interface {
	Contains(ctx context.Context, playlistID, uri string) bool
}

// Downloader runs the download source chain.
type Downloader interface {
	Run(ctx context.Context, req download.Request) (download.Result, []download.Result)
}

// MetadataSource resolves source page metadata.
type MetadataSource interface {
	Fallback(ctx context.Context, sourceURL string) (*metadata.Track, error)
	Describe(ctx context.Context, sourceURL string) (*metadata.Page, error)
}

// JobStore persists whole job records.
type JobStore interface {
	Update(ctx context.Context, job *jobs.Job) error
}

// Dependencies groups the collaborators an Engine drives. Downloader and
// Metadata may be nil.
type Dependencies struct {
	Matcher    TrackMatcher
	Playlist   PlaylistWriter
	Duplicates DuplicateChecker
	Downloader Downloader
	Metadata   MetadataSource
	Notifier   notifications.Service
}

// Engine executes the job procedure.
type Engine struct {
	deps   Dependencies
	store  JobStore
	logger *slog.Logger

	policy         string
	downloadMode   string
	format         string
	segmentMode    string
	expectLossless bool
	addRetryDelay  time.Duration
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithAddRetryDelay sets the pause before a transient playlist add failure
// is retried.
func WithAddRetryDelay(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d >= 0 {
			e.addRetryDelay = d
		}
	}
}

// NewEngine builds an Engine using the jobs and download sections of cfg.
func NewEngine(cfg *config.Config, store JobStore, deps Dependencies, logger *slog.Logger, opts ...EngineOption) *Engine {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(nil)
	}
	e := &Engine{
		deps:           deps,
		store:          store,
		logger:         logging.NewComponentLogger(logger, "workflow"),
		policy:         cfg.Jobs.FallbackPolicy,
		downloadMode:   cfg.Download.Mode,
		format:         cfg.Download.Format,
		segmentMode:    cfg.Download.SegmentMode,
		expectLossless: cfg.Lossless.Enabled && cfg.Download.PreferLossless,
		addRetryDelay:  defaultAddRetryDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process runs a claimed job to completion, failure or the fallback
// checkpoint. The returned error is non-nil only when the job record could
// not be persisted; job failures are recorded on the job itself.
func (e *Engine) Process(ctx context.Context, job *jobs.Job) error {
	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, e.logger)
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_started"),
		logging.String("source_url", job.SourceURL()),
		logging.String("playlist_id", job.PlaylistID()),
	)

	if job.Status == jobs.StatusQueued {
		if err := job.Transition(jobs.StatusSearching, progressSearching, "Fetching video metadata"); err != nil {
			return err
		}
		if err := e.save(ctx, job); err != nil {
			return err
		}
	}

	if err := e.resolveSource(ctx, job); err != nil {
		return e.fail(ctx, job, services.UserMessage(err), err)
	}
	if len(job.Request.Segments) > 0 {
		return e.processSegments(ctx, job)
	}
	return e.search(ctx, job)
}

// resolveSource fills in a missing title and description segments from the
// source page.
func (e *Engine) resolveSource(ctx context.Context, job *jobs.Job) error {
	req := &job.Request
	needTitle := strings.TrimSpace(req.Title) == "" && len(req.Segments) == 0
	needSegments := req.SegmentsFromPage && len(req.Segments) == 0
	if !needTitle && !needSegments {
		return nil
	}
	if e.deps.Metadata == nil {
		return services.WithMessage(
			services.Wrap(services.ErrConfiguration, "workflow", "resolve source", "no metadata source configured", nil),
			MetadataMessage)
	}

	if needSegments {
		page, err := e.deps.Metadata.Describe(ctx, req.SourceURL)
		if err != nil {
			return services.WithMessage(err, MetadataMessage)
		}
		for _, seg := range download.ParseDescriptionSegments(page.Description) {
			req.Segments = append(req.Segments, jobs.Segment{Start: seg.Start, End: seg.End, Title: seg.Title})
		}
		if strings.TrimSpace(req.Title) == "" {
			req.Title = page.Title
		}
		if len(req.Segments) > 0 {
			logging.WithContext(ctx, e.logger).Info("segments read from description",
				logging.String(logging.FieldEventType, "segments_from_description"),
				logging.Int("segments", len(req.Segments)),
			)
			return nil
		}
		needTitle = strings.TrimSpace(req.Title) == ""
	}

	if needTitle {
		track, err := e.deps.Metadata.Fallback(ctx, req.SourceURL)
		if err != nil {
			return services.WithMessage(err, MetadataMessage)
		}
		req.Title = track.Title
		if strings.TrimSpace(req.Artist) == "" {
			req.Artist = track.Artist
		}
		if req.DurationSeconds == 0 {
			req.DurationSeconds = track.DurationSeconds
		}
	}
	return nil
}

func (e *Engine) save(ctx context.Context, job *jobs.Job) error {
	if e.store == nil {
		return nil
	}
	return e.store.Update(ctx, job)
}

// fail records message on the job and persists it.
func (e *Engine) fail(ctx context.Context, job *jobs.Job, message string, cause error) error {
	if errors.Is(cause, context.Canceled) || ctx.Err() != nil {
		// Left in its processing status; the next start marks it stranded.
		return ctx.Err()
	}
	if message == "" {
		message = "Job failed"
	}
	if err := job.Fail(message); err != nil {
		return err
	}
	logger := logging.WithContext(ctx, e.logger)
	attrs := []logging.Attr{
		logging.String("error_message", message),
		logging.Alert("job_failed"),
	}
	if cause != nil {
		attrs = append(attrs, logging.Error(cause))
	}
	logging.ErrorWithContext(logger, "job failed", "job_failed", attrs...)
	if err := e.save(ctx, job); err != nil {
		return err
	}
	e.notify(ctx, notifications.EventJobFailed, job, notifications.Payload{"error": message})
	return nil
}

func (e *Engine) notify(ctx context.Context, event notifications.Event, job *jobs.Job, extra notifications.Payload) {
	payload := notifications.Payload{
		"jobId":    job.ID,
		"title":    job.Request.Title,
		"artist":   job.Request.Artist,
		"playlist": job.PlaylistID(),
	}
	if job.TrackInfo != nil {
		payload["title"] = job.TrackInfo.Name
		payload["artist"] = strings.Join(job.TrackInfo.Artists, ", ")
	}
	for k, v := range extra {
		payload[k] = v
	}
	if err := e.deps.Notifier.Publish(ctx, event, payload); err != nil && !errors.Is(err, context.Canceled) {
		logging.WithContext(ctx, e.logger).Debug("notification failed",
			logging.String("event", string(event)),
			logging.Error(err),
		)
	}
}
