// Package duplicates decides whether a track already sits in a playlist.
package duplicates

import (
	"context"
	"log/slog"
	"strings"

	"tuneport/internal/catalog"
	"tuneport/internal/logging"
)

// DefaultPageSize is the largest playlist page the catalog returns.
const DefaultPageSize = 100

// PageFetcher reads one page of playlist track URIs.
type PageFetcher interface {
	PlaylistTracks(ctx context.Context, playlistID string, offset, limit int) (catalog.TrackPage, error)
}

// Detector walks playlist pages looking for a URI.
type Detector struct {
	pages    PageFetcher
	pageSize int
	logger   *slog.Logger
}

// NewDetector builds a Detector. A non-positive pageSize uses DefaultPageSize.
func NewDetector(pages PageFetcher, pageSize int, logger *slog.Logger) *Detector {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Detector{
		pages:    pages,
		pageSize: pageSize,
		logger:   logging.NewComponentLogger(logger, "duplicates"),
	}
}

// Contains reports whether uri is already in the playlist. A failed page
// read is logged and treated as "not present" so the add still goes ahead.
func (d *Detector) Contains(ctx context.Context, playlistID, uri string) bool {
	uri = strings.TrimSpace(uri)
	if d == nil || d.pages == nil || uri == "" || strings.TrimSpace(playlistID) == "" {
		return false
	}
	logger := logging.WithContext(ctx, d.logger)

	offset := 0
	for {
		page, err := d.pages.PlaylistTracks(ctx, playlistID, offset, d.pageSize)
		if err != nil {
			logging.WarnWithContext(logger, "duplicate check failed", "duplicate_check_failed",
				logging.String("playlist_id", playlistID),
				logging.Int("offset", offset),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "verify playlist access and catalog credentials"),
				logging.String(logging.FieldImpact, "track will be added without duplicate protection"),
			)
			return false
		}
		for _, existing := range page.URIs {
			if existing == uri {
				attrs := logging.DecisionAttrs("duplicate_check", "duplicate", "uri_present")
				attrs = append(attrs,
					logging.String(logging.FieldEventType, "duplicate_found"),
					logging.String("playlist_id", playlistID),
					logging.String("uri", uri),
				)
				logger.Info("track already in playlist", logging.Args(attrs...)...)
				return true
			}
		}
		offset += d.pageSize
		if page.Returned == 0 || offset >= page.Total {
			return false
		}
	}
}
