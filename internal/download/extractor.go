package download

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"tuneport/internal/config"
	"tuneport/internal/logging"
	"tuneport/internal/services"
	"tuneport/internal/services/extractor"
)

const (
	defaultExtractorAttempts  = 3
	defaultExtractorBaseDelay = time.Second
	defaultExtractorMaxDelay  = 30 * time.Second

	extractorMissingMessage = "Extractor not configured"
)

// ExtractorSource downloads through the extractor service. Throttled or
// rejected requests are retried against the same instance with exponential
// backoff; other failures move on to the mirror pool.
type ExtractorSource struct {
	primary   extractor.Downloader
	pool      *MirrorPool
	attempts  int
	baseDelay time.Duration
	maxDelay  time.Duration
	sleeper   func(time.Duration)
	logger    *slog.Logger
}

// ExtractorOption configures an ExtractorSource.
type ExtractorOption func(*ExtractorSource)

// WithMirrorPool sets the pool used after the primary fails.
func WithMirrorPool(pool *MirrorPool) ExtractorOption {
	return func(s *ExtractorSource) {
		s.pool = pool
	}
}

// WithRetry sets how often the primary is tried and the first backoff delay.
func WithRetry(attempts int, baseDelay time.Duration) ExtractorOption {
	return func(s *ExtractorSource) {
		if attempts > 0 {
			s.attempts = attempts
		}
		if baseDelay >= 0 {
			s.baseDelay = baseDelay
		}
	}
}

// WithSleeper overrides how backoff sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) ExtractorOption {
	return func(s *ExtractorSource) {
		s.sleeper = sleeper
	}
}

// NewExtractorSource builds the extractor strategy around primary.
func NewExtractorSource(primary extractor.Downloader, logger *slog.Logger, opts ...ExtractorOption) *ExtractorSource {
	source := &ExtractorSource{
		primary:   primary,
		attempts:  defaultExtractorAttempts,
		baseDelay: defaultExtractorBaseDelay,
		maxDelay:  defaultExtractorMaxDelay,
		logger:    logging.NewComponentLogger(logger, "download.extractor"),
	}
	for _, opt := range opts {
		opt(source)
	}
	return source
}

// Name implements Source.
func (s *ExtractorSource) Name() string { return string(KindExtractor) }

// Attempt implements Source.
func (s *ExtractorSource) Attempt(ctx context.Context, req Request) Result {
	quality := Quality(req.format(), "")
	if s.primary == nil {
		return failure(KindExtractor, "", quality, services.ErrSourceUnavailable, extractorMissingMessage)
	}
	logger := logging.WithContext(ctx, s.logger)

	result := s.fetch(ctx, s.primary, req, s.attempts)
	if result.Success || s.pool.Len() == 0 || !mirrorEligible(result.err) {
		return result
	}
	logger.Info("primary extractor failed, trying mirrors",
		logging.String(logging.FieldEventType, "extractor_primary_failed"),
		logging.String("primary", s.primary.BaseURL()),
		logging.String("error", result.Error),
		logging.Int("mirrors", s.pool.Len()),
	)
	return s.pool.Attempt(ctx, req)
}

// mirrorEligible reports whether a primary failure should be handed to the
// mirror pool. Credential and throttling failures were already retried and
// cancellation ends the run.
func mirrorEligible(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, services.ErrAuthExpired), errors.Is(err, services.ErrRateLimited):
		return false
	}
	return true
}

func (s *ExtractorSource) fetch(ctx context.Context, d extractor.Downloader, req Request, attempts int) Result {
	format := req.format()
	provider := d.BaseURL()
	if !req.perSegment() {
		wire := extractor.Request{
			URL:         req.SourceURL,
			Format:      format,
			SegmentMode: config.SegmentModeSingle,
			Title:       req.Title,
			Artist:      req.Artist,
		}
		for _, seg := range req.Segments {
			wire.Segments = append(wire.Segments, seg.wire())
		}
		resp, err := s.download(ctx, d, wire, attempts)
		if err != nil {
			return failure(KindExtractor, provider, Quality(format, ""), err, extractorMessage(err))
		}
		return s.success(provider, format, req.Artist, req.Title, []Asset{asset(resp, 0)}, resp.Quality)
	}

	assets := make([]Asset, 0, len(req.Segments))
	var quality string
	for i, seg := range req.Segments {
		meta, ok := ResolveSegmentMetadata(seg, req.Artist)
		if !ok {
			meta = SegmentMetadata{Title: req.Title, Artist: req.Artist}
		}
		wire := extractor.Request{
			URL:         req.SourceURL,
			Format:      format,
			Segments:    []extractor.Segment{seg.wire()},
			SegmentMode: config.SegmentModeSeparate,
			Title:       meta.Title,
			Artist:      meta.Artist,
		}
		resp, err := s.download(ctx, d, wire, attempts)
		if err != nil {
			msg := extractorMessage(err)
			if seg.Title != "" {
				msg = seg.Title + ": " + msg
			}
			return failure(KindExtractor, provider, Quality(format, ""), err, msg)
		}
		if quality == "" {
			quality = resp.Quality
		}
		assets = append(assets, asset(resp, i+1))
	}
	return s.success(provider, format, req.Artist, req.Title, assets, quality)
}

func (s *ExtractorSource) success(provider, format, artist, title string, assets []Asset, quality string) Result {
	if strings.TrimSpace(quality) == "" {
		quality = Quality(format, "")
	}
	for i := range assets {
		if assets[i].Filename == "" {
			assets[i].Filename = Filename(artist, title, quality)
		}
	}
	return Result{
		Success:  true,
		Source:   KindExtractor,
		Provider: provider,
		URL:      assets[0].URL,
		Filename: assets[0].Filename,
		Quality:  quality,
		Assets:   assets,
	}
}

func asset(resp *extractor.Response, segment int) Asset {
	return Asset{URL: resp.URL, Filename: resp.Filename, Segment: segment}
}

func (s *ExtractorSource) download(ctx context.Context, d extractor.Downloader, req extractor.Request, attempts int) (*extractor.Response, error) {
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := d.Download(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if attempt >= attempts || !sameInstanceRetry(err) || ctx.Err() != nil {
			break
		}
		delay := s.backoffDelay(attempt)
		logging.WithContext(ctx, s.logger).Debug("extractor retry scheduled",
			logging.String(logging.FieldEventType, "extractor_retry"),
			logging.String("instance", d.BaseURL()),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
		if err := s.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func sameInstanceRetry(err error) bool {
	return errors.Is(err, services.ErrRateLimited) || errors.Is(err, services.ErrAuthExpired)
}

// backoffDelay doubles the base delay per attempt: base, base*2, base*4.
func (s *ExtractorSource) backoffDelay(attempt int) time.Duration {
	delay := s.baseDelay
	if delay <= 0 {
		return 0
	}
	for i := 1; i < attempt; i++ {
		if delay > s.maxDelay/2 {
			return s.maxDelay
		}
		delay *= 2
	}
	return min(delay, s.maxDelay)
}

func (s *ExtractorSource) sleep(ctx context.Context, d time.Duration) error {
	if s.sleeper != nil {
		s.sleeper(d)
		return ctx.Err()
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func extractorMessage(err error) string {
	var msgErr *services.MessageError
	switch {
	case errors.As(err, &msgErr) && strings.TrimSpace(msgErr.Message) != "":
		return strings.TrimSpace(msgErr.Message)
	case errors.Is(err, context.Canceled):
		return "Download cancelled"
	case errors.Is(err, services.ErrAuthExpired):
		return "Extractor rejected credentials"
	case errors.Is(err, services.ErrRateLimited):
		return "Extractor rate limited"
	case errors.Is(err, services.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "Extractor timed out"
	}
	return err.Error()
}
