package matching

// TrackQuery is the unresolved track description taken from a video page.
// DurationSeconds is zero when unknown.
type TrackQuery struct {
	Title           string `json:"title"`
	Artist          string `json:"artist,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
}

// HasArtist reports whether an artist was supplied.
func (q TrackQuery) HasArtist() bool {
	return q.Artist != ""
}

// Candidate is one catalog search hit.
type Candidate struct {
	ExternalID  string   `json:"id"`
	URI         string   `json:"uri"`
	Name        string   `json:"name"`
	ArtistNames []string `json:"artists"`
	DurationMs  int      `json:"durationMs"`
}

// Confidence buckets a score for display.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Breakdown carries the per-signal similarities behind a score.
type Breakdown struct {
	Title        float64 `json:"title"`
	Artist       float64 `json:"artist"`
	Duration     float64 `json:"duration"`
	BestCredit   float64 `json:"bestCredit"`
	ArtistCapped bool    `json:"artistCapped,omitempty"`
}

// Result is the outcome of matching a query. Candidate is set only when the
// best score reached the auto-add threshold; Best always holds the highest
// scoring candidate that was seen so rejections stay explainable.
type Result struct {
	Candidate  *Candidate `json:"candidate,omitempty"`
	Best       *Candidate `json:"best,omitempty"`
	Score      float64    `json:"score"`
	Confidence Confidence `json:"confidence"`
	Breakdown  Breakdown  `json:"breakdown"`
	Query      string     `json:"query,omitempty"`
	Considered int        `json:"considered"`
}

// Matched reports whether the result carries an accepted candidate.
func (r Result) Matched() bool {
	return r.Candidate != nil
}
