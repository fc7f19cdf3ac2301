package catalog

import (
	"fmt"
	"strings"

	"tuneport/internal/matching"
)

// FormatDuration renders milliseconds as m:ss.
func FormatDuration(ms int) string {
	if ms < 0 {
		ms = 0
	}
	totalSeconds := ms / 1000
	return fmt.Sprintf("%d:%02d", totalSeconds/60, totalSeconds%60)
}

// DisplayName renders a candidate as "Artist, Artist - Name".
func DisplayName(c matching.Candidate) string {
	artists := strings.Join(c.ArtistNames, ", ")
	if artists == "" {
		return c.Name
	}
	return artists + " - " + c.Name
}
