package download

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tuneport/internal/config"
	"tuneport/internal/services/extractor"
	"tuneport/internal/services/lossless"
)

// NewChainFromConfig assembles the configured sources. Lossless lookups
// run first, and only when both lossless.enabled and prefer_lossless are
// set. The local yt-dlp source, when enabled, runs last.
func NewChainFromConfig(cfg *config.Config, logger *slog.Logger) (*Chain, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	timeout := cfg.DownloadTimeout()

	var losslessSource Source
	if cfg.Lossless.Enabled && cfg.Download.PreferLossless {
		client, err := lossless.New(cfg.Lossless.Endpoint, timeout)
		if err != nil {
			return nil, fmt.Errorf("lossless client: %w", err)
		}
		losslessSource = NewLosslessSource(client, true, cfg.Lossless.Sources, cfg.Lossless.PreferredSource, logger)
	}

	var extractorSource Source
	if url := strings.TrimSpace(cfg.Extractor.URL); url != "" {
		primary, err := extractor.New(url, timeout, extractor.WithToken(cfg.Extractor.Token))
		if err != nil {
			return nil, fmt.Errorf("extractor client: %w", err)
		}
		mirrors := make([]extractor.Downloader, 0, len(cfg.Extractor.Mirrors))
		for _, mirrorURL := range cfg.Extractor.Mirrors {
			mirror, err := extractor.New(mirrorURL, timeout, extractor.WithToken(cfg.Extractor.Token))
			if err != nil {
				return nil, fmt.Errorf("extractor mirror %q: %w", mirrorURL, err)
			}
			mirrors = append(mirrors, mirror)
		}
		extractorSource = NewExtractorSource(primary, logger,
			WithRetry(cfg.Download.RetryAttempts, time.Duration(cfg.Download.RetryBackoffMillis)*time.Millisecond),
			WithMirrorPool(NewMirrorPool(logger, mirrors...)),
		)
	}

	sources := []Source{losslessSource, extractorSource}
	if cfg.Download.LocalYtDlpEnabled {
		sources = append(sources, NewLocalSource(cfg.Download.Dir, cfg.Download.LocalYtDlpBinary, logger))
	}
	return NewChain(logger, sources...), nil
}
