package download

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"tuneport/internal/logging"
	"tuneport/internal/services"
	"tuneport/internal/services/lossless"
	"tuneport/internal/textutil"
)

const (
	// StrictTitleSimilarity is the minimum normalized title ratio for a lossless hit.
	StrictTitleSimilarity = 0.85
	// StrictArtistSimilarity is the minimum normalized artist ratio for a lossless hit.
	StrictArtistSimilarity = 0.80

	losslessDisabledMessage = "Lossless sources not enabled"
	losslessNotFoundMessage = "Track not found on lossless sources"
)

var sourceLabels = map[string]string{
	"qobuz":  "Qobuz",
	"tidal":  "Tidal",
	"deezer": "Deezer",
}

// SourceLabel returns the display name of a lossless source.
func SourceLabel(source string) string {
	if label, ok := sourceLabels[source]; ok {
		return label
	}
	return source
}

// LosslessSource looks the track up on lossless streaming sources.
type LosslessSource struct {
	searcher lossless.Searcher
	sources  []string
	enabled  bool
	logger   *slog.Logger
}

// NewLosslessSource builds the lossless strategy. sources is the priority
// order; preferred, when listed, is moved to the front.
func NewLosslessSource(searcher lossless.Searcher, enabled bool, sources []string, preferred string, logger *slog.Logger) *LosslessSource {
	return &LosslessSource{
		searcher: searcher,
		sources:  prioritize(sources, preferred),
		enabled:  enabled && searcher != nil,
		logger:   logging.NewComponentLogger(logger, "download.lossless"),
	}
}

func prioritize(sources []string, preferred string) []string {
	preferred = strings.ToLower(strings.TrimSpace(preferred))
	ordered := make([]string, 0, len(sources))
	if slices.Contains(sources, preferred) {
		ordered = append(ordered, preferred)
	}
	for _, s := range sources {
		if s != preferred {
			ordered = append(ordered, s)
		}
	}
	return ordered
}

// Name implements Source.
func (s *LosslessSource) Name() string { return string(KindLossless) }

// Sources returns the lookup order.
func (s *LosslessSource) Sources() []string {
	return append([]string(nil), s.sources...)
}

// Attempt implements Source. Segmented requests are skipped because the
// lossless service only returns whole tracks.
func (s *LosslessSource) Attempt(ctx context.Context, req Request) Result {
	if !s.enabled {
		return failure(KindLossless, "", "FLAC", services.ErrSourceUnavailable, losslessDisabledMessage)
	}
	if len(req.Segments) > 0 {
		return failure(KindLossless, "", "FLAC", services.ErrSourceUnavailable, "Lossless sources do not support segments")
	}
	logger := logging.WithContext(ctx, s.logger)

	for _, source := range s.sources {
		if err := ctx.Err(); err != nil {
			return failure(KindLossless, source, "FLAC", err, "Download cancelled")
		}
		resp, err := s.searcher.Search(ctx, lossless.SearchRequest{Title: req.Title, Artist: req.Artist, Source: source})
		if err != nil {
			logging.WarnWithContext(logger, "lossless search failed", "lossless_search_failed",
				logging.String("source", source),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the lossless service endpoint"),
				logging.String(logging.FieldImpact, "next lossless source will be tried"),
			)
			continue
		}
		if resp == nil || !resp.Found || strings.TrimSpace(resp.URL) == "" {
			continue
		}
		accepted, title, artist := StrictMatch(req.Title, req.Artist, resp.Title, resp.Artist)
		attrs := logging.DecisionAttrs("lossless_gate", "accepted", "strict_match")
		if !accepted {
			attrs = logging.DecisionAttrs("lossless_gate", "rejected", "loose_match")
		}
		attrs = append(attrs,
			logging.String(logging.FieldEventType, "lossless_gate"),
			logging.String("source", source),
			logging.String("wanted", req.Artist+" - "+req.Title),
			logging.String("got", resp.Artist+" - "+resp.Title),
			logging.Float64("title_similarity", title),
			logging.Float64("artist_similarity", artist),
		)
		logger.Info("lossless match decision", logging.Args(attrs...)...)
		if !accepted {
			continue
		}
		return Result{
			Success:    true,
			Source:     KindLossless,
			Provider:   source,
			URL:        resp.URL,
			Filename:   resp.Filename,
			IsLossless: true,
			Quality:    LosslessQuality(resp.Quality, resp.BitDepth, resp.SampleRate),
			Assets:     []Asset{{URL: resp.URL, Filename: resp.Filename}},
		}
	}
	return failure(KindLossless, "", "FLAC", services.ErrSourceUnavailable, losslessNotFoundMessage)
}

// StrictMatch gates lossless hits. Normalized titles and artists must each
// contain one another and reach StrictTitleSimilarity and
// StrictArtistSimilarity. The similarities are returned for logging.
func StrictMatch(wantTitle, wantArtist, gotTitle, gotArtist string) (bool, float64, float64) {
	wt, wa := textutil.NormalizeStrict(wantTitle), textutil.NormalizeStrict(wantArtist)
	gt, ga := textutil.NormalizeStrict(gotTitle), textutil.NormalizeStrict(gotArtist)
	if gt == "" || ga == "" {
		return false, 0, 0
	}
	titleSim := similarity(wt, gt)
	artistSim := similarity(wa, ga)
	if !overlaps(wt, gt) || !overlaps(wa, ga) {
		return false, titleSim, artistSim
	}
	return titleSim >= StrictTitleSimilarity && artistSim >= StrictArtistSimilarity, titleSim, artistSim
}

func overlaps(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	return textutil.LevenshteinRatio(a, b)
}
