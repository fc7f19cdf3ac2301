package download

import (
	"context"
	"errors"
	"log/slog"

	"tuneport/internal/logging"
	"tuneport/internal/services"
	"tuneport/internal/services/extractor"
)

// MirrorPool tries secondary extractor instances once each, in order.
type MirrorPool struct {
	mirrors []*ExtractorSource
	logger  *slog.Logger
}

// NewMirrorPool wraps each instance in a single-attempt extractor source.
func NewMirrorPool(logger *slog.Logger, instances ...extractor.Downloader) *MirrorPool {
	pool := &MirrorPool{logger: logging.NewComponentLogger(logger, "download.mirrors")}
	for _, instance := range instances {
		if instance == nil {
			continue
		}
		pool.mirrors = append(pool.mirrors, NewExtractorSource(instance, logger, WithRetry(1, 0)))
	}
	return pool
}

// Len returns the number of mirrors. A nil pool is empty.
func (p *MirrorPool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.mirrors)
}

// Name implements Source.
func (p *MirrorPool) Name() string { return string(KindExtractor) }

// Attempt implements Source. The first mirror to succeed wins.
func (p *MirrorPool) Attempt(ctx context.Context, req Request) Result {
	if p.Len() == 0 {
		return failure(KindExtractor, "", Quality(req.format(), ""), services.ErrSourceUnavailable, "No extractor mirrors configured")
	}
	logger := logging.WithContext(ctx, p.logger)
	var last Result
	for _, mirror := range p.mirrors {
		result := mirror.Attempt(ctx, req)
		if result.Success {
			return result
		}
		logger.Info("extractor mirror failed",
			logging.String(logging.FieldEventType, "extractor_mirror_failed"),
			logging.String("mirror", result.Provider),
			logging.String("error", result.Error),
		)
		last = result
		if errors.Is(result.err, context.Canceled) {
			return last
		}
	}
	logging.WarnWithContext(logger, "extractor mirrors exhausted", "extractor_mirrors_exhausted",
		logging.Int("mirrors", len(p.mirrors)),
		logging.String("last_error", last.Error),
		logging.String(logging.FieldErrorHint, "check the extractor service and its mirrors"),
		logging.String(logging.FieldImpact, "download falls through to remaining sources"),
	)
	return last
}
