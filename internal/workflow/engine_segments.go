package workflow

import (
	"context"
	"errors"
	"fmt"

	"tuneport/internal/download"
	"tuneport/internal/jobs"
	"tuneport/internal/logging"
	"tuneport/internal/matching"
	"tuneport/internal/services"
)

const untitledSegmentMessage = "Segment has no title"

type segmentMatch struct {
	index  int
	meta   download.SegmentMetadata
	result matching.Result
}

// processSegments matches every segment on its own, then adds the matches in
// segment order. The job fails only when no segment could be added or was
// already present.
func (e *Engine) processSegments(ctx context.Context, job *jobs.Job) error {
	ctx = services.WithStage(ctx, "segments")
	logger := logging.WithContext(ctx, e.logger)
	segments := toDownloadSegments(job.Request.Segments)
	summary := &jobs.SegmentSummary{Total: len(segments)}
	job.Segments = summary

	matches := make([]segmentMatch, 0, len(segments))
	for i, seg := range segments {
		index := i + 1
		job.SetProgress(progressSearching+(progressMatched-progressSearching)*i/len(segments),
			fmt.Sprintf("Searching segment %d of %d", index, len(segments)))
		if err := e.save(ctx, job); err != nil {
			return err
		}

		meta, ok := download.ResolveSegmentMetadata(seg, job.Request.Artist)
		if !ok {
			summary.Record(jobs.SegmentResult{Index: index, Outcome: jobs.SegmentFailed, Error: untitledSegmentMessage})
			continue
		}
		result, err := e.deps.Matcher.Match(ctx, matching.TrackQuery{
			Title:           meta.Title,
			Artist:          meta.Artist,
			DurationSeconds: seg.Duration(),
		})
		if err != nil {
			if errors.Is(err, services.ErrAuthExpired) || ctx.Err() != nil {
				return e.fail(ctx, job, services.UserMessage(err), err)
			}
			summary.Record(segmentFailure(index, meta, services.UserMessage(err)))
			continue
		}
		if !result.Matched() {
			summary.Record(segmentFailure(index, meta, NoMatchMessage))
			continue
		}
		matches = append(matches, segmentMatch{index: index, meta: meta, result: result})
	}

	if len(matches) > 0 {
		job.TrackInfo = trackInfo(matches[0].result, false)
	}
	if err := job.Transition(jobs.StatusAdding, progressDuplicateCheck, "Adding segments to playlist"); err != nil {
		return err
	}
	if err := e.save(ctx, job); err != nil {
		return err
	}

	position := 0
	for _, m := range matches {
		uri := m.result.Candidate.URI
		res := jobs.SegmentResult{Index: m.index, Title: m.meta.Title, Artist: m.meta.Artist, URI: uri}
		if e.deps.Duplicates != nil && e.deps.Duplicates.Contains(ctx, job.PlaylistID(), uri) {
			res.Outcome = jobs.SegmentDuplicate
		} else if err := e.deps.Playlist.AddTrack(ctx, job.PlaylistID(), uri, position); err != nil {
			if errors.Is(err, services.ErrAuthExpired) || ctx.Err() != nil {
				return e.fail(ctx, job, services.UserMessage(err), err)
			}
			res.Outcome = jobs.SegmentFailed
			res.Error = services.UserMessage(err)
		} else {
			position++
			res.Outcome = jobs.SegmentAdded
		}
		summary.Record(res)
	}
	logger.Info("segments processed",
		logging.String(logging.FieldEventType, "segments_processed"),
		logging.Int("total", summary.Total),
		logging.Int("added", summary.Added),
		logging.Int("duplicates", summary.Duplicates),
		logging.Int("failed", summary.Failed),
	)

	if summary.AllFailed() {
		return e.fail(ctx, job, fmt.Sprintf("All %d segments failed", summary.Total), nil)
	}
	job.SetProgress(progressAdded, fmt.Sprintf("Added %d of %d segments", summary.Added, summary.Total))
	if err := e.save(ctx, job); err != nil {
		return err
	}

	nothingNew := summary.Added == 0
	if !e.wantsDownload(job, nothingNew) {
		return e.complete(ctx, job)
	}
	return e.download(ctx, job, e.downloadRequest(job, segments))
}

func segmentFailure(index int, meta download.SegmentMetadata, message string) jobs.SegmentResult {
	return jobs.SegmentResult{
		Index:   index,
		Title:   meta.Title,
		Artist:  meta.Artist,
		Outcome: jobs.SegmentFailed,
		Error:   message,
	}
}

func toDownloadSegments(segments []jobs.Segment) []download.Segment {
	out := make([]download.Segment, 0, len(segments))
	for _, seg := range segments {
		out = append(out, download.Segment{Start: seg.Start, End: seg.End, Title: seg.Title})
	}
	return out
}
