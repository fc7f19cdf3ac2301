package matching

import (
	"context"
	"log/slog"

	"tuneport/internal/logging"
)

// Searcher runs one catalog query. Implementations handle rate limiting and
// return classified errors for authentication and transport failures.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Candidate, error)
}

// Matcher resolves a TrackQuery to a catalog track.
type Matcher struct {
	searcher Searcher
	scorer   Scorer
	limit    int
	logger   *slog.Logger
}

// NewMatcher builds a Matcher. A non-positive limit defaults to 10.
func NewMatcher(searcher Searcher, scorer Scorer, limit int, logger *slog.Logger) *Matcher {
	if limit <= 0 {
		limit = 10
	}
	return &Matcher{
		searcher: searcher,
		scorer:   scorer,
		limit:    limit,
		logger:   logging.NewComponentLogger(logger, "matcher"),
	}
}

// Scorer returns the scorer used by the matcher.
func (m *Matcher) Scorer() Scorer {
	return m.scorer
}

// Match prepares query, walks the query chain and scores the first non-empty
// candidate set.
// Artist-scoped queries run first; only when all of them starve does the
// title-only tier widen the search. Results from different queries are never
// merged. A zero Result with a nil error means nothing matched.
func (m *Matcher) Match(ctx context.Context, query TrackQuery) (Result, error) {
	logger := logging.WithContext(ctx, m.logger)
	query = PrepareQuery(query)
	queries := BuildQueries(query)
	if len(queries) == 0 {
		return Result{Confidence: ConfidenceLow}, nil
	}

	widened := false
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if q.Tier == TierTitleOnly && query.HasArtist() && !widened {
			widened = true
			logger.Debug("artist queries starved, widening to title only",
				logging.String(logging.FieldEventType, "match_widen"),
				logging.String("title", query.Title),
			)
		}
		candidates, err := m.searcher.Search(ctx, q.Text, m.limit)
		if err != nil {
			return Result{}, err
		}
		logger.Debug("catalog query executed",
			logging.String(logging.FieldEventType, "catalog_query"),
			logging.String("query", q.Text),
			logging.String("tier", string(q.Tier)),
			logging.Int("results", len(candidates)),
		)
		if len(candidates) == 0 {
			continue
		}

		result := m.scorer.Best(query, candidates)
		result.Query = q.Text
		m.logDecision(logger, query, result)
		return result, nil
	}

	logger.Info("no catalog candidates",
		logging.String(logging.FieldEventType, "match_no_candidates"),
		logging.String("title", query.Title),
		logging.String("artist", query.Artist),
		logging.Int("queries", len(queries)),
	)
	return Result{Confidence: ConfidenceLow}, nil
}

func (m *Matcher) logDecision(logger *slog.Logger, query TrackQuery, result Result) {
	decision, reason := "rejected", "score_below_threshold"
	if result.Matched() {
		decision, reason = "accepted", "score_meets_threshold"
	} else if result.Breakdown.ArtistCapped {
		reason = "artist_mismatch"
	}
	attrs := logging.DecisionAttrs("catalog_match", decision, reason)
	attrs = append(attrs,
		logging.String(logging.FieldEventType, "match_decision"),
		logging.String("title", query.Title),
		logging.String("artist", query.Artist),
		logging.String("query", result.Query),
		logging.Float64("score", result.Score),
		logging.Float64("threshold", m.scorer.EffectiveThreshold()),
		logging.String("confidence", string(result.Confidence)),
		logging.Int("candidates", result.Considered),
	)
	if result.Best != nil {
		attrs = append(attrs, logging.String("best_uri", result.Best.URI), logging.String("best_name", result.Best.Name))
	}
	logger.Info("match decision", logging.Args(attrs...)...)
}
