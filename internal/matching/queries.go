package matching

import (
	"fmt"
	"strings"

	"tuneport/internal/textutil"
)

// Tier groups queries by how much of the track description they use.
type Tier string

const (
	TierArtist    Tier = "artist"
	TierTitleOnly Tier = "title"
)

// Query is one catalog search string in the chain.
type Query struct {
	Text string
	Tier Tier
}

// PrepareQuery sanitizes the title and, when it reads "Artist - Title",
// splits it. An explicitly supplied artist wins over the parsed one.
func PrepareQuery(q TrackQuery) TrackQuery {
	title := textutil.SanitizeTitle(q.Title)
	if parsed, ok := textutil.ParseArtistTitle(title); ok {
		title = parsed.Title
		if textutil.CollapseSpace(q.Artist) == "" {
			q.Artist = parsed.Artist
		}
	}
	q.Title = title
	q.Artist = textutil.CollapseSpace(q.Artist)
	return q
}

// BuildQueries returns the catalog queries for q from most to least
// specific: field-scoped and plain artist+title variants, then title-only
// variants, each tier ending with a featuring-free form. Duplicates are
// dropped.
func BuildQueries(q TrackQuery) []Query {
	title := textutil.SanitizeTitle(q.Title)
	artist := textutil.CollapseSpace(q.Artist)
	bareTitle := textutil.RemoveFeaturing(title)

	var out []Query
	seen := map[string]struct{}{}
	add := func(tier Tier, text string) {
		text = textutil.CollapseSpace(text)
		if text == "" {
			return
		}
		key := strings.ToLower(text)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, Query{Text: text, Tier: tier})
	}

	if title == "" {
		return nil
	}
	if artist != "" {
		add(TierArtist, fmt.Sprintf("track:%s artist:%s", title, artist))
		add(TierArtist, artist+" "+title)
		add(TierArtist, fmt.Sprintf("track:%s artist:%s", bareTitle, artist))
	}
	add(TierTitleOnly, "track:"+title)
	add(TierTitleOnly, title)
	add(TierTitleOnly, bareTitle)
	return out
}
