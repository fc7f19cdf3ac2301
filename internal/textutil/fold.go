package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonWordChars = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)

// Fold case-folds value and strips combining marks so "Beyoncé" compares
// equal to "beyonce". Whitespace is collapsed.
func Fold(value string) string {
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(stripper, value)
	if err != nil {
		stripped = value
	}
	return CollapseSpace(cases.Fold().String(stripped))
}

// NormalizeStrict lowercases value and removes punctuation, keeping letters,
// digits, underscores and single spaces. It backs the lossless match gate.
func NormalizeStrict(value string) string {
	value = strings.ToLower(value)
	value = nonWordChars.ReplaceAllString(value, "")
	return CollapseSpace(value)
}

// TitleCase capitalizes each word of value for display.
func TitleCase(value string) string {
	return cases.Title(language.Und).String(value)
}
