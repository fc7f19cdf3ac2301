package workflow

import (
	"context"
	"fmt"
	"strings"

	"tuneport/internal/config"
	"tuneport/internal/jobs"
	"tuneport/internal/logging"
	"tuneport/internal/matching"
	"tuneport/internal/notifications"
	"tuneport/internal/services"
)

func (e *Engine) search(ctx context.Context, job *jobs.Job) error {
	ctx = services.WithStage(ctx, "search")
	job.SetProgress(progressSearching, "Searching Spotify")
	if err := e.save(ctx, job); err != nil {
		return err
	}

	query := matching.TrackQuery{
		Title:           job.Request.Title,
		Artist:          job.Request.Artist,
		DurationSeconds: job.Request.DurationSeconds,
	}
	result, err := e.deps.Matcher.Match(ctx, query)
	if err != nil {
		return e.fail(ctx, job, services.UserMessage(err), err)
	}
	if result.Matched() {
		job.TrackInfo = trackInfo(result, false)
		job.SetProgress(progressMatched, "Match found")
		return e.add(ctx, job)
	}

	logger := logging.WithContext(ctx, e.logger)
	attrs := logging.DecisionAttrs("fallback_policy", e.policy, "no_primary_match")
	attrs = append(attrs, logging.String(logging.FieldEventType, "fallback_policy_applied"))
	logger.Info("no catalog match for primary metadata", logging.Args(attrs...)...)

	switch e.policy {
	case config.FallbackPolicyNever:
		return e.fail(ctx, job, NoMatchMessage, nil)
	case config.FallbackPolicyAsk:
		return e.park(ctx, job)
	default:
		return e.autoFallback(ctx, job)
	}
}

func (e *Engine) fallbackMetadata(ctx context.Context, job *jobs.Job) (*jobs.FallbackMetadata, error) {
	if e.deps.Metadata == nil {
		return nil, services.Wrap(services.ErrNotFound, "workflow", "fallback", "no metadata source configured", nil)
	}
	track, err := e.deps.Metadata.Fallback(ctx, job.SourceURL())
	if err != nil {
		return nil, err
	}
	return &jobs.FallbackMetadata{
		Title:      track.Title,
		Artist:     track.Artist,
		Source:     track.Source,
		Confidence: string(track.Confidence),
	}, nil
}

func (e *Engine) autoFallback(ctx context.Context, job *jobs.Job) error {
	job.SetProgress(progressFallbackSearch, "Searching with fallback metadata")
	if err := e.save(ctx, job); err != nil {
		return err
	}
	meta, err := e.fallbackMetadata(ctx, job)
	if err != nil {
		return e.fail(ctx, job, NoMatchMessage, err)
	}
	job.FallbackMetadata = meta
	return e.searchFallback(ctx, job, NoMatchMessage)
}

// park stops the job at the fallback checkpoint with a proposed artist and
// title for the user to confirm.
func (e *Engine) park(ctx context.Context, job *jobs.Job) error {
	meta, err := e.fallbackMetadata(ctx, job)
	if err != nil {
		return e.fail(ctx, job, NoMatchMessage, err)
	}
	job.FallbackMetadata = meta
	if err := job.Transition(jobs.StatusAwaitingFallback, progressAwaitingFallback, "Waiting for fallback confirmation"); err != nil {
		return err
	}
	if err := e.save(ctx, job); err != nil {
		return err
	}
	logging.WithContext(ctx, e.logger).Info("job awaiting fallback confirmation",
		logging.String(logging.FieldEventType, "fallback_required"),
		logging.String("fallback_title", meta.Title),
		logging.String("fallback_artist", meta.Artist),
		logging.String("fallback_source", meta.Source),
	)
	e.notify(ctx, notifications.EventFallbackRequired, job, notifications.Payload{
		"title":  meta.Title,
		"artist": meta.Artist,
	})
	return nil
}

// Confirm resumes a parked job using its fallback metadata, optionally
// replaced by edit. The job stays in awaiting_fallback while the search runs.
func (e *Engine) Confirm(ctx context.Context, job *jobs.Job, edit *jobs.FallbackMetadata) error {
	if job.Status != jobs.StatusAwaitingFallback {
		return fmt.Errorf("%w: job %s is %s", jobs.ErrInvalidTransition, job.ID, job.Status)
	}
	ctx = services.WithJobID(ctx, job.ID)
	if edit != nil && strings.TrimSpace(edit.Title) != "" {
		meta := *edit
		if meta.Source == "" {
			meta.Source = "user"
		}
		job.FallbackMetadata = &meta
	}
	if job.FallbackMetadata == nil || strings.TrimSpace(job.FallbackMetadata.Title) == "" {
		return e.fail(ctx, job, NoConfirmedMatchMessage, nil)
	}
	job.SetProgress(progressFallbackSearch, "Searching with confirmed metadata")
	if err := e.save(ctx, job); err != nil {
		return err
	}
	return e.searchFallback(ctx, job, NoConfirmedMatchMessage)
}

// Reject fails a parked job.
func (e *Engine) Reject(ctx context.Context, job *jobs.Job) error {
	if job.Status != jobs.StatusAwaitingFallback {
		return fmt.Errorf("%w: job %s is %s", jobs.ErrInvalidTransition, job.ID, job.Status)
	}
	ctx = services.WithJobID(ctx, job.ID)
	if err := job.Fail(RejectedMessage); err != nil {
		return err
	}
	logging.WithContext(ctx, e.logger).Info("fallback rejected",
		logging.String(logging.FieldEventType, "fallback_rejected"),
	)
	return e.save(ctx, job)
}

func (e *Engine) searchFallback(ctx context.Context, job *jobs.Job, noMatch string) error {
	ctx = services.WithStage(ctx, "fallback_search")
	query := matching.TrackQuery{
		Title:           job.FallbackMetadata.Title,
		Artist:          job.FallbackMetadata.Artist,
		DurationSeconds: job.Request.DurationSeconds,
	}
	result, err := e.deps.Matcher.Match(ctx, query)
	if err != nil {
		return e.fail(ctx, job, services.UserMessage(err), err)
	}
	if !result.Matched() {
		return e.fail(ctx, job, noMatch, nil)
	}
	job.TrackInfo = trackInfo(result, true)
	job.SetProgress(progressMatched, "Match found with fallback metadata")
	return e.add(ctx, job)
}

func trackInfo(result matching.Result, fromFallback bool) *jobs.TrackInfo {
	c := result.Candidate
	return &jobs.TrackInfo{
		URI:          c.URI,
		ExternalID:   c.ExternalID,
		Name:         c.Name,
		Artists:      append([]string(nil), c.ArtistNames...),
		DurationMs:   c.DurationMs,
		Score:        result.Score,
		Confidence:   string(result.Confidence),
		Query:        result.Query,
		FromFallback: fromFallback,
	}
}
