package download

import (
	"context"
	"strings"

	"tuneport/internal/config"
)

// Kind identifies which family of source produced a result.
type Kind string

const (
	KindLossless  Kind = "lossless"
	KindExtractor Kind = "extractor"
)

// Asset is one produced file. Segmented downloads yield one asset per
// segment.
type Asset struct {
	URL      string `json:"url,omitempty"`
	Filename string `json:"filename,omitempty"`
	Path     string `json:"path,omitempty"`
	Segment  int    `json:"segment,omitempty"`
}

// Result is the outcome of one attempt or of a whole chain run.
type Result struct {
	Success    bool    `json:"success"`
	Source     Kind    `json:"source,omitempty"`
	Provider   string  `json:"provider,omitempty"`
	URL        string  `json:"url,omitempty"`
	Filename   string  `json:"filename,omitempty"`
	Path       string  `json:"path,omitempty"`
	IsLossless bool    `json:"isLossless"`
	Quality    string  `json:"quality,omitempty"`
	Error      string  `json:"error,omitempty"`
	Assets     []Asset `json:"assets,omitempty"`

	// err keeps the classified cause for retry decisions inside the package.
	err error
}

// Err returns the classified failure behind an unsuccessful attempt.
func (r Result) Err() error {
	return r.err
}

func failure(kind Kind, provider, quality string, err error, message string) Result {
	return Result{
		Source:   kind,
		Provider: provider,
		Quality:  quality,
		Error:    strings.TrimSpace(message),
		err:      err,
	}
}

// Request describes what to download.
type Request struct {
	SourceURL   string    `json:"sourceUrl"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	Format      string    `json:"format"`
	Segments    []Segment `json:"segments,omitempty"`
	SegmentMode string    `json:"segmentMode,omitempty"`
}

func (r Request) format() string {
	if f := strings.ToLower(strings.TrimSpace(r.Format)); f != "" {
		return f
	}
	return "best"
}

func (r Request) perSegment() bool {
	return len(r.Segments) > 1 && r.SegmentMode != config.SegmentModeSingle
}

// Source is one strategy in the chain.
type Source interface {
	Name() string
	Attempt(ctx context.Context, req Request) Result
}
