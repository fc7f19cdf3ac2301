package download

import (
	"context"
	"log/slog"

	"tuneport/internal/logging"
)

const noSourcesMessage = "no download sources configured"

// Chain runs sources in order and stops at the first success.
type Chain struct {
	sources []Source
	logger  *slog.Logger
}

// NewChain builds a chain over sources, skipping nil entries.
func NewChain(logger *slog.Logger, sources ...Source) *Chain {
	kept := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Chain{sources: kept, logger: logging.NewComponentLogger(logger, "download")}
}

// Sources returns the source names in attempt order.
func (c *Chain) Sources() []string {
	names := make([]string, 0, len(c.sources))
	for _, s := range c.sources {
		names = append(names, s.Name())
	}
	return names
}

// Run attempts each source until one succeeds. It returns the final result
// and every attempt in order. When all sources fail the final result
// carries the last specific error message.
func (c *Chain) Run(ctx context.Context, req Request) (Result, []Result) {
	logger := logging.WithContext(ctx, c.logger)
	if len(c.sources) == 0 {
		return Result{Source: KindExtractor, Quality: Quality(req.format(), ""), Error: noSourcesMessage}, nil
	}

	attempts := make([]Result, 0, len(c.sources))
	var last Result
	for _, source := range c.sources {
		if err := ctx.Err(); err != nil {
			last = failure(last.Source, last.Provider, last.Quality, err, "Download cancelled")
			break
		}
		result := source.Attempt(ctx, req)
		attempts = append(attempts, result)
		if result.Success {
			attrs := logging.DecisionAttrs("download_source", "accepted", source.Name())
			attrs = append(attrs,
				logging.String(logging.FieldEventType, "download_source_selected"),
				logging.String("provider", result.Provider),
				logging.String("quality", result.Quality),
				logging.Bool("lossless", result.IsLossless),
				logging.Int("assets", len(result.Assets)),
			)
			logger.Info("download source succeeded", logging.Args(attrs...)...)
			return result, attempts
		}
		logger.Info("download source failed, trying next",
			logging.String(logging.FieldEventType, "download_source_failed"),
			logging.String("source", source.Name()),
			logging.String("error", result.Error),
		)
		if result.Error != "" || last.Error == "" {
			last = result
		}
	}

	if last.Error == "" {
		last.Error = "Download failed"
	}
	last.Success = false
	return last, attempts
}
