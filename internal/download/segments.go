package download

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"tuneport/internal/services/extractor"
	"tuneport/internal/textutil"
)

// Segment is a time range of the source media in seconds. A nil End runs to
// the end of the media.
type Segment struct {
	Start int    `json:"start"`
	End   *int   `json:"end,omitempty"`
	Title string `json:"title,omitempty"`
}

// Duration returns the segment length in seconds, or 0 when End is open.
func (s Segment) Duration() int {
	if s.End == nil || *s.End <= s.Start {
		return 0
	}
	return *s.End - s.Start
}

// Section renders the segment as a yt-dlp --download-sections value, e.g.
// "*1:30-3:20" or "*1:30-" for an open end.
func (s Segment) Section() string {
	if s.End == nil {
		return "*" + FormatTimestamp(s.Start) + "-"
	}
	return "*" + FormatTimestamp(s.Start) + "-" + FormatTimestamp(*s.End)
}

func (s Segment) wire() extractor.Segment {
	return extractor.Segment{Start: s.Start, End: s.End, Title: s.Title}
}

// FormatTimestamp renders seconds as M:SS, or H:MM:SS past the hour.
func FormatTimestamp(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	remaining := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, remaining)
	}
	return fmt.Sprintf("%d:%02d", minutes, remaining)
}

var timestampPattern = regexp.MustCompile(`\b(?:\d{1,2}:)?\d{1,2}:\d{2}\b`)

// ParseTimestamp converts M:SS or H:MM:SS into seconds.
func ParseTimestamp(value string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, false
		}
		total = total*60 + n
	}
	return total, true
}

func cleanSegmentTitle(value string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(value), "-–—|:"))
}

// ParseDescriptionSegments extracts a tracklist from a video description.
// Each line carrying a timestamp starts a segment titled by the rest of the
// line; ends are inferred from the next segment's start.
func ParseDescriptionSegments(text string) []Segment {
	var segments []Segment
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		loc := timestampPattern.FindStringIndex(line)
		if loc == nil {
			continue
		}
		start, ok := ParseTimestamp(line[loc[0]:loc[1]])
		if !ok {
			continue
		}
		segments = append(segments, Segment{Start: start, Title: cleanSegmentTitle(line[loc[1]:])})
	}
	sort.SliceStable(segments, func(i, j int) bool { return segments[i].Start < segments[j].Start })
	return withImplicitEnds(segments)
}

// ParseManualSegments parses user supplied "start[-end] title" lines. Ends
// are only set when written out.
func ParseManualSegments(text string) []Segment {
	var segments []Segment
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		matches := timestampPattern.FindAllStringIndex(line, 2)
		if len(matches) == 0 {
			continue
		}
		start, ok := ParseTimestamp(line[matches[0][0]:matches[0][1]])
		if !ok {
			continue
		}
		segment := Segment{Start: start}
		titleFrom := matches[0][1]
		if len(matches) == 2 {
			if end, ok := ParseTimestamp(line[matches[1][0]:matches[1][1]]); ok {
				segment.End = &end
			}
			titleFrom = matches[1][1]
		}
		segment.Title = cleanSegmentTitle(line[titleFrom:])
		segments = append(segments, segment)
	}
	return segments
}

func withImplicitEnds(segments []Segment) []Segment {
	for i := range segments {
		if segments[i].End != nil || i+1 >= len(segments) {
			continue
		}
		end := segments[i+1].Start
		segments[i].End = &end
	}
	return segments
}

// SegmentMetadata is the artist/title a segment resolves to.
type SegmentMetadata struct {
	Title  string
	Artist string
}

// ResolveSegmentMetadata reads "Artist - Title" from the segment title and
// falls back to fallbackArtist. It reports false for untitled segments.
func ResolveSegmentMetadata(segment Segment, fallbackArtist string) (SegmentMetadata, bool) {
	title := strings.TrimSpace(segment.Title)
	if title == "" {
		return SegmentMetadata{}, false
	}
	if parsed, ok := textutil.ParseArtistTitle(title); ok {
		return SegmentMetadata{Title: parsed.Title, Artist: parsed.Artist}, true
	}
	return SegmentMetadata{Title: title, Artist: strings.TrimSpace(fallbackArtist)}, true
}
