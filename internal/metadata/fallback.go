package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tuneport/internal/config"
	"tuneport/internal/logging"
	"tuneport/internal/services"
)

const (
	SourceMusic = "youtube_music"
	SourceTitle = "title_parse"
	SourcePage  = "page_meta"

	extractFailedMessage = "Could not extract video metadata"
)

// FallbackSource resolves metadata from the music oEmbed view, the regular
// oEmbed view and finally the watch page, in that order.
type FallbackSource struct {
	oembed  *OEmbedClient
	scraper *PageScraper
	logger  *slog.Logger
}

// NewFallbackSource combines the lookups. scraper may be nil to skip page
// scraping.
func NewFallbackSource(oembed *OEmbedClient, scraper *PageScraper, logger *slog.Logger) *FallbackSource {
	return &FallbackSource{
		oembed:  oembed,
		scraper: scraper,
		logger:  logging.NewComponentLogger(logger, "metadata"),
	}
}

// NewFallbackSourceFromConfig builds the source from the metadata section.
func NewFallbackSourceFromConfig(cfg *config.Config, logger *slog.Logger) (*FallbackSource, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	timeout := cfg.MetadataTimeout()
	oembed, err := NewOEmbedClient(cfg.Metadata.OEmbedURL, timeout)
	if err != nil {
		return nil, fmt.Errorf("oembed client: %w", err)
	}
	var scraper *PageScraper
	if cfg.Metadata.ScrapePages {
		scraper = NewPageScraper(nil, timeout)
	}
	return NewFallbackSource(oembed, scraper, logger), nil
}

// Fallback resolves artist/title for sourceURL. It returns ErrNotFound when
// no lookup produced usable metadata.
func (f *FallbackSource) Fallback(ctx context.Context, sourceURL string) (*Track, error) {
	id, ok := VideoID(sourceURL)
	if !ok {
		return nil, services.WithMessage(
			services.Wrap(services.ErrValidation, metadataStage, "fallback", "unrecognised video url", nil),
			extractFailedMessage)
	}
	logger := logging.WithContext(ctx, f.logger)

	if f.oembed != nil {
		for _, view := range []struct {
			url    string
			source string
		}{
			{MusicURL(id), SourceMusic},
			{WatchURL(id), SourceTitle},
		} {
			o, err := f.oembed.Lookup(ctx, view.url)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil, err
				}
				f.warn(logger, view.source, err)
				continue
			}
			if track, ok := FromOEmbed(o, view.source); ok {
				if view.source == SourceMusic && track.Confidence == ConfidenceLow {
					track.Confidence = ConfidenceMedium
				}
				logger.Info("fallback metadata resolved",
					logging.String(logging.FieldEventType, "fallback_metadata_resolved"),
					logging.String("source", track.Source),
					logging.String("confidence", string(track.Confidence)),
					logging.String("artist", track.Artist),
					logging.String("title", track.Title),
				)
				return &track, nil
			}
		}
	}

	if f.scraper != nil {
		page, err := f.scraper.ScrapeVideo(ctx, id)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			f.warn(logger, SourcePage, err)
		} else if track, ok := FromOEmbed(&OEmbed{Title: page.Title, AuthorName: page.Channel}, SourcePage); ok {
			track.DurationSeconds = page.DurationSeconds
			return &track, nil
		}
	}
	return nil, services.Wrap(services.ErrNotFound, metadataStage, "fallback", "no fallback metadata for "+id, nil)
}

// Describe reads the page title, channel, duration and description. It is
// used when a job arrives without a title or asks for description segments.
func (f *FallbackSource) Describe(ctx context.Context, sourceURL string) (*Page, error) {
	id, ok := VideoID(sourceURL)
	if !ok {
		return nil, services.WithMessage(
			services.Wrap(services.ErrValidation, metadataStage, "describe", "unrecognised video url", nil),
			extractFailedMessage)
	}
	if f.scraper != nil {
		page, err := f.scraper.ScrapeVideo(ctx, id)
		if err == nil && page.Title != "" {
			return page, nil
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		if err != nil {
			f.warn(logging.WithContext(ctx, f.logger), SourcePage, err)
		}
	}
	if f.oembed == nil {
		return nil, services.WithMessage(services.Wrap(services.ErrNotFound, metadataStage, "describe", "no lookups configured", nil), extractFailedMessage)
	}
	o, err := f.oembed.Lookup(ctx, WatchURL(id))
	if err != nil {
		return nil, services.WithMessage(err, extractFailedMessage)
	}
	return &Page{Title: o.Title, Channel: o.AuthorName}, nil
}

func (f *FallbackSource) warn(logger *slog.Logger, source string, err error) {
	if errors.Is(err, services.ErrNotFound) {
		logger.Debug("metadata lookup found nothing",
			logging.String(logging.FieldEventType, "metadata_lookup_empty"),
			logging.String("source", source),
		)
		return
	}
	logging.WarnWithContext(logger, "metadata lookup failed", "metadata_lookup_failed",
		logging.String("source", source),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check network access to the video site"),
		logging.String(logging.FieldImpact, "next metadata lookup will be tried"),
	)
}
