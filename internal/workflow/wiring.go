package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tuneport/internal/catalog"
	"tuneport/internal/config"
	"tuneport/internal/download"
	"tuneport/internal/duplicates"
	"tuneport/internal/jobs"
	"tuneport/internal/matching"
	"tuneport/internal/metadata"
	"tuneport/internal/notifications"
)

// Services bundles the live clients built from configuration.
type Services struct {
	Catalog  *catalog.Client
	Library  *catalog.Library
	Chain    *download.Chain
	Metadata *metadata.FallbackSource
	Notifier notifications.Service
}

// NewServices builds the catalog, download and metadata clients for cfg.
func NewServices(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Services, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	client, httpClient, err := catalog.NewFromConfig(ctx, cfg, catalog.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("catalog client: %w", err)
	}
	svc := &Services{
		Catalog:  client,
		Library:  catalog.NewLibrary(httpClient, cfg.Catalog.BaseURL),
		Notifier: notifications.NewService(cfg),
	}
	if cfg.Download.Enabled {
		if svc.Chain, err = download.NewChainFromConfig(cfg, logger); err != nil {
			return nil, fmt.Errorf("download chain: %w", err)
		}
	}
	if svc.Metadata, err = metadata.NewFallbackSourceFromConfig(cfg, logger); err != nil {
		return nil, fmt.Errorf("metadata source: %w", err)
	}
	return svc, nil
}

// Matcher returns a matcher over the catalog client using the configured
// threshold.
func (s *Services) Matcher(cfg *config.Config, logger *slog.Logger) *matching.Matcher {
	return matching.NewMatcher(s.Catalog, matching.NewScorer(cfg.EffectiveThreshold()), cfg.Catalog.SearchLimit, logger)
}

// Engine assembles an Engine from the services.
func (s *Services) Engine(cfg *config.Config, store *jobs.Store, logger *slog.Logger) *Engine {
	deps := Dependencies{
		Matcher:    s.Matcher(cfg, logger),
		Playlist:   s.Catalog,
		Duplicates: duplicates.NewDetector(s.Catalog, duplicates.DefaultPageSize, logger),
		Metadata:   s.Metadata,
		Notifier:   s.Notifier,
	}
	if s.Chain != nil {
		deps.Downloader = s.Chain
	}
	return NewEngine(cfg, store, deps, logger)
}
