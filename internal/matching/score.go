package matching

import (
	"math"
	"strings"

	"tuneport/internal/textutil"
)

const (
	// DefaultThreshold is the canonical auto-add threshold.
	DefaultThreshold = 0.5
	// StrictThreshold is the stricter auto-add bar.
	StrictThreshold = 0.7

	titleWeight         = 0.5
	titleOnlyWeight     = 0.85
	artistWeight        = 0.35
	durationWeight      = 0.15
	neutralDuration     = 0.5
	durationToleranceS  = 30.0
	artistMismatchFloor = 0.6
	highConfidence      = 0.8
	mediumConfidence    = 0.5
)

// Scorer scores candidates against a query and gates them on Threshold.
// The zero value uses DefaultThreshold.
type Scorer struct {
	Threshold float64
}

// NewScorer returns a Scorer for threshold, falling back to DefaultThreshold
// when threshold is outside (0,1].
func NewScorer(threshold float64) Scorer {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return Scorer{Threshold: threshold}
}

// EffectiveThreshold returns the threshold applied by IsAutoAddable.
func (s Scorer) EffectiveThreshold() float64 {
	if s.Threshold <= 0 {
		return DefaultThreshold
	}
	return s.Threshold
}

// Score returns the weighted similarity of candidate to query in [0,1].
func (s Scorer) Score(query TrackQuery, candidate Candidate) float64 {
	score, _ := s.Explain(query, candidate)
	return score
}

// Explain returns the score together with the similarities it was built from.
//
// Title similarity weighs 0.5, artist similarity 0.35 and duration proximity
// 0.15; without a query artist the title weighs 0.85. The artist signal
// compares against all credits joined by spaces. When an artist was supplied
// but every individual credit scores below 0.6 against it, the score is
// capped at the best credit similarity so a title-only hit by a different
// performer cannot pass the threshold.
func (s Scorer) Explain(query TrackQuery, candidate Candidate) (float64, Breakdown) {
	var b Breakdown
	b.Title = similarity(
		textutil.Fold(textutil.SanitizeTitle(query.Title)),
		textutil.Fold(candidate.Name),
	)
	b.Duration = durationSimilarity(query.DurationSeconds, candidate.DurationMs)

	score := 0.0
	if query.HasArtist() {
		artist := textutil.Fold(textutil.NormalizeFeaturing(query.Artist))
		b.Artist = similarity(artist, textutil.Fold(strings.Join(candidate.ArtistNames, " ")))
		b.BestCredit = bestCredit(artist, candidate.ArtistNames)
		score = b.Title*titleWeight + b.Artist*artistWeight + b.Duration*durationWeight
		if b.BestCredit < artistMismatchFloor && score > b.BestCredit {
			score = b.BestCredit
			b.ArtistCapped = true
		}
	} else {
		score = b.Title*titleOnlyWeight + b.Duration*durationWeight
	}
	return clamp(score), b
}

// IsAutoAddable reports whether score meets the threshold.
func (s Scorer) IsAutoAddable(score float64) bool {
	return score >= s.EffectiveThreshold()
}

// ConfidenceLevel buckets a score: high from 0.8, medium from 0.5.
func ConfidenceLevel(score float64) Confidence {
	switch {
	case score >= highConfidence:
		return ConfidenceHigh
	case score >= mediumConfidence:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Best scores every candidate and returns the highest scoring one. Ties keep
// the earlier candidate. The result carries a Candidate only when the best
// score is auto-addable.
func (s Scorer) Best(query TrackQuery, candidates []Candidate) Result {
	result := Result{Confidence: ConfidenceLow, Considered: len(candidates)}
	bestIdx := -1
	for i := range candidates {
		score, breakdown := s.Explain(query, candidates[i])
		if bestIdx == -1 || score > result.Score {
			bestIdx = i
			result.Score = score
			result.Breakdown = breakdown
		}
	}
	if bestIdx == -1 {
		return result
	}
	best := candidates[bestIdx]
	result.Best = &best
	result.Confidence = ConfidenceLevel(result.Score)
	if s.IsAutoAddable(result.Score) {
		result.Candidate = &best
	}
	return result
}

// similarity treats two empty strings as identical.
func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	return textutil.JaroWinkler(a, b)
}

// bestCredit returns the highest similarity between artist and any single
// credit. No credits scores 0.
func bestCredit(artist string, credits []string) float64 {
	best := 0.0
	for _, credit := range credits {
		best = math.Max(best, similarity(artist, textutil.Fold(credit)))
	}
	return best
}

func durationSimilarity(querySeconds, candidateMs int) float64 {
	if querySeconds <= 0 || candidateMs <= 0 {
		return neutralDuration
	}
	diff := math.Abs(float64(querySeconds) - float64(candidateMs)/1000)
	return math.Max(0, 1-diff/durationToleranceS)
}

func clamp(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
