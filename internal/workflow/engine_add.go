package workflow

import (
	"context"
	"strings"
	"time"

	"tuneport/internal/download"
	"tuneport/internal/jobs"
	"tuneport/internal/logging"
	"tuneport/internal/notifications"
	"tuneport/internal/services"
)

// add inserts the matched track at the top of the playlist unless it is
// already there, then hands over to the download step.
func (e *Engine) add(ctx context.Context, job *jobs.Job) error {
	ctx = services.WithStage(ctx, "add")
	logger := logging.WithContext(ctx, e.logger)
	if err := job.Transition(jobs.StatusAdding, progressDuplicateCheck, "Checking playlist for duplicates"); err != nil {
		return err
	}
	if err := e.save(ctx, job); err != nil {
		return err
	}

	duplicate := e.deps.Duplicates != nil && e.deps.Duplicates.Contains(ctx, job.PlaylistID(), job.TrackInfo.URI)
	job.TrackInfo.AlreadyInPlaylist = duplicate
	if duplicate {
		attrs := logging.DecisionAttrs("duplicate_check", "skipped", "already_in_playlist")
		attrs = append(attrs,
			logging.String(logging.FieldEventType, "duplicate_skipped"),
			logging.String("uri", job.TrackInfo.URI),
		)
		logger.Info("track already in playlist", logging.Args(attrs...)...)
	} else {
		job.SetProgress(progressAdding, "Adding to playlist")
		if err := e.save(ctx, job); err != nil {
			return err
		}
		if err := e.addTrack(ctx, job); err != nil {
			return e.fail(ctx, job, services.UserMessage(err), err)
		}
		logger.Info("track added to playlist",
			logging.String(logging.FieldEventType, "track_added"),
			logging.String("uri", job.TrackInfo.URI),
			logging.Float64("score", job.TrackInfo.Score),
		)
	}
	job.SetProgress(progressAdded, addedStep(duplicate))
	if err := e.save(ctx, job); err != nil {
		return err
	}

	if !e.wantsDownload(job, duplicate) {
		return e.complete(ctx, job)
	}
	return e.download(ctx, job, e.downloadRequest(job, nil))
}

func addedStep(duplicate bool) string {
	if duplicate {
		return "Already in playlist"
	}
	return "Added to playlist"
}

// wantsDownload applies the request flag and download mode. A skipped
// download is recorded on the job.
func (e *Engine) wantsDownload(job *jobs.Job, duplicate bool) bool {
	if !job.Request.Download || e.deps.Downloader == nil {
		return false
	}
	mode := download.ResolveMode(e.downloadMode, job.Request.DownloadMode)
	if download.ShouldDownload(mode, duplicate) {
		return true
	}
	job.DownloadInfo = &jobs.DownloadInfo{Skipped: true}
	return false
}

func (e *Engine) downloadRequest(job *jobs.Job, segments []download.Segment) download.Request {
	title := job.Request.Title
	artist := job.Request.Artist
	if job.TrackInfo != nil && len(segments) == 0 {
		title = job.TrackInfo.Name
		artist = strings.Join(job.TrackInfo.Artists, ", ")
	}
	format := job.Request.Format
	if format == "" {
		format = e.format
	}
	mode := job.Request.SegmentMode
	if mode == "" {
		mode = e.segmentMode
	}
	return download.Request{
		SourceURL:   job.SourceURL(),
		Title:       title,
		Artist:      artist,
		Format:      format,
		Segments:    segments,
		SegmentMode: mode,
	}
}

// download runs the chain. A failed download is recorded but the job still
// completes because the track is already in the playlist.
func (e *Engine) download(ctx context.Context, job *jobs.Job, req download.Request) error {
	ctx = services.WithStage(ctx, "download")
	if err := job.Transition(jobs.StatusDownloading, progressDownloading, "Downloading audio"); err != nil {
		return err
	}
	if err := e.save(ctx, job); err != nil {
		return err
	}

	result, attempts := e.deps.Downloader.Run(ctx, req)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	job.DownloadInfo = downloadInfo(result)
	if result.Success {
		if download.ShouldWarnLossless(result, e.expectLossless) {
			job.DownloadInfo.Warning = download.LosslessWarning
		}
	} else {
		job.Error = downloadFailedPrefix + result.Error
		logging.WarnWithContext(logging.WithContext(ctx, e.logger), "download failed", "download_failed",
			logging.String("error_message", result.Error),
			logging.Int("attempts", len(attempts)),
			logging.String(logging.FieldErrorHint, "check extractor and lossless service availability"),
			logging.String(logging.FieldImpact, "track was added without a local copy"),
		)
		e.notify(ctx, notifications.EventDownloadFailed, job, notifications.Payload{"error": result.Error})
	}
	return e.complete(ctx, job)
}

func (e *Engine) complete(ctx context.Context, job *jobs.Job) error {
	if err := job.Transition(jobs.StatusCompleted, progressCompleted, "Completed"); err != nil {
		return err
	}
	if err := e.save(ctx, job); err != nil {
		return err
	}
	attrs := []logging.Attr{logging.String(logging.FieldEventType, "job_completed")}
	if job.TrackInfo != nil {
		attrs = append(attrs,
			logging.String("uri", job.TrackInfo.URI),
			logging.Bool("duplicate", job.TrackInfo.AlreadyInPlaylist),
		)
	}
	if job.DownloadInfo != nil {
		attrs = append(attrs,
			logging.Bool("downloaded", job.DownloadInfo.Success),
			logging.String("quality", job.DownloadInfo.Quality),
		)
	}
	logging.WithContext(ctx, e.logger).Info("job completed", logging.Args(attrs...)...)

	extra := notifications.Payload{}
	if job.DownloadInfo != nil && job.DownloadInfo.Success {
		extra["quality"] = job.DownloadInfo.Quality
	}
	e.notify(ctx, notifications.EventJobCompleted, job, extra)
	return nil
}

func downloadInfo(result download.Result) *jobs.DownloadInfo {
	info := &jobs.DownloadInfo{
		Success:    result.Success,
		Source:     string(result.Source),
		Provider:   result.Provider,
		URL:        result.URL,
		Filename:   result.Filename,
		Path:       result.Path,
		Quality:    result.Quality,
		IsLossless: result.IsLossless,
		Error:      result.Error,
	}
	for _, a := range result.Assets {
		info.Assets = append(info.Assets, jobs.DownloadAsset{
			URL:      a.URL,
			Filename: a.Filename,
			Path:     a.Path,
			Segment:  a.Segment,
		})
	}
	return info
}

// addTrack inserts the matched track at the top of the playlist. Transient
// failures (timeouts, transport errors, exhausted rate limits) are retried
// up to addAttempts times.
func (e *Engine) addTrack(ctx context.Context, job *jobs.Job) error {
	var err error
	for attempt := 1; attempt <= addAttempts; attempt++ {
		err = e.deps.Playlist.AddTrack(ctx, job.PlaylistID(), job.TrackInfo.URI, 0)
		if err == nil || !services.Retryable(err) || attempt == addAttempts {
			return err
		}
		logging.WithContext(ctx, e.logger).Debug("playlist add retry scheduled",
			logging.String(logging.FieldEventType, "track_add_retry"),
			logging.Int("attempt", attempt),
			logging.Duration("delay", e.addRetryDelay),
			logging.Error(err),
		)
		if e.addRetryDelay > 0 {
			timer := time.NewTimer(e.addRetryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return err
			case <-timer.C:
			}
		}
	}
	return err
}
