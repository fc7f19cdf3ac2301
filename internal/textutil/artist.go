package textutil

import (
	"regexp"
	"strings"
)

// ArtistTitle is a title split into its performer and track parts.
type ArtistTitle struct {
	Artist string
	Title  string
}

// artistSeparators are tried in order; the first one producing two
// non-empty halves wins.
var artistSeparators = []string{" - ", " – ", " — ", " | "}

// ParseArtistTitle splits "Artist - Title" style strings. Everything after the
// first separator stays in the title, so "A - B - C" yields {A, "B - C"}.
func ParseArtistTitle(full string) (ArtistTitle, bool) {
	for _, sep := range artistSeparators {
		parts := strings.Split(full, sep)
		if len(parts) < 2 {
			continue
		}
		artist := strings.TrimSpace(parts[0])
		title := strings.TrimSpace(strings.Join(parts[1:], sep))
		if artist != "" && title != "" {
			return ArtistTitle{Artist: artist, Title: title}, true
		}
	}
	return ArtistTitle{}, false
}

var (
	featuringTokens = []struct {
		pattern *regexp.Regexp
		repl    string
	}{
		{regexp.MustCompile(`(?i)\s+(?:ft\.?|feat\.?|featuring|with)\s+`), " feat. "},
		{regexp.MustCompile(`(?i)\s+x\s+`), " & "},
	}
	bracketedFeaturing = regexp.MustCompile(`(?i)\s*[(\[]\s*(?:ft\.?|feat\.?|featuring)\s+[^)\]]+[)\]]\s*`)
	trailingFeaturing  = regexp.MustCompile(`(?i)\s+(?:ft\.?|feat\.?|featuring)\s+.+$`)
)

// NormalizeFeaturing rewrites ft./feat./featuring/with as " feat. " and
// "A x B" collaborations as "A & B".
func NormalizeFeaturing(text string) string {
	for _, token := range featuringTokens {
		text = token.pattern.ReplaceAllString(text, token.repl)
	}
	return strings.TrimSpace(text)
}

// RemoveFeaturing drops a featuring clause, bracketed or trailing.
func RemoveFeaturing(text string) string {
	text = bracketedFeaturing.ReplaceAllString(text, " ")
	text = trailingFeaturing.ReplaceAllString(text, "")
	return CollapseSpace(text)
}
