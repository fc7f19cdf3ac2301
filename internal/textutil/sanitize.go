package textutil

import (
	"regexp"
	"strings"
)

// titleNoise lists annotations that video uploads append to track titles.
// Each pattern may be wrapped in parentheses or brackets.
var titleNoise = []*regexp.Regexp{
	noisePattern(`official(?:\s*music)?(?:\s*(?:video|audio|visualizer|lyric\s*video))?`),
	noisePattern(`lyrics?(?:\s*video)?`),
	noisePattern(`audio(?:\s*only)?`),
	noisePattern(`visualizer`),
	noisePattern(`hd|hq|4k|1080p`),
	noisePattern(`remaster(?:ed)?`),
	noisePattern(`explicit`),
	noisePattern(`clean(?:\s*version)?`),
	noisePattern(`radio\s*edit`),
	noisePattern(`extended(?:\s*(?:mix|version))?`),
	regexp.MustCompile(`\s*\|\s*.*$`),
	regexp.MustCompile(`\s*//.*$`),
}

var (
	emptyBrackets = regexp.MustCompile(`\(\s*\)|\[\s*\]`)
	whitespace    = regexp.MustCompile(`\s+`)
)

func noisePattern(body string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\s*[(\[]?\s*\b(?:` + body + `)\b\s*[)\]]?\s*`)
}

// SanitizeTitle strips quality markers, "official video" style annotations
// and pipe or double-slash suffixes from a title, then collapses whitespace.
// The result is stable: sanitizing it again returns the same string.
func SanitizeTitle(title string) string {
	cleaned := CollapseSpace(title)
	for range 8 {
		next := cleaned
		for _, pattern := range titleNoise {
			next = pattern.ReplaceAllString(next, " ")
		}
		next = emptyBrackets.ReplaceAllString(next, " ")
		next = CollapseSpace(next)
		if next == cleaned {
			break
		}
		cleaned = next
	}
	return cleaned
}

// CollapseSpace replaces runs of whitespace with a single space and trims the ends.
func CollapseSpace(value string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(value, " "))
}

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return CollapseSpace(fileNameReplacer.Replace(name))
}
