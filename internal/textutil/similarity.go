package textutil

import "github.com/agnivade/levenshtein"

// DefaultPrefixScale is the Winkler prefix bonus used by JaroWinkler.
const DefaultPrefixScale = 0.1

const maxWinklerPrefix = 4

// Jaro returns the Jaro similarity of a and b in [0,1]. Identical strings
// score 1 and a comparison against an empty string scores 0. Strings are
// compared rune by rune without case folding.
func Jaro(a, b string) float64 {
	if a == b {
		return 1
	}
	s1, s2 := []rune(a), []rune(b)
	if len(s1) == 0 || len(s2) == 0 {
		return 0
	}

	window := max(len(s1), len(s2))/2 - 1
	if window < 0 {
		window = 0
	}
	m1 := make([]bool, len(s1))
	m2 := make([]bool, len(s2))

	matches := 0
	for i := range s1 {
		lo := max(0, i-window)
		hi := min(i+window+1, len(s2))
		for j := lo; j < hi; j++ {
			if m2[j] || s1[i] != s2[j] {
				continue
			}
			m1[i], m2[j] = true, true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	transpositions := 0
	k := 0
	for i := range s1 {
		if !m1[i] {
			continue
		}
		for !m2[k] {
			k++
		}
		if s1[i] != s2[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	return (m/float64(len(s1)) + m/float64(len(s2)) + (m-float64(transpositions)/2)/m) / 3
}

// JaroWinkler returns the Jaro similarity boosted by the shared prefix of up
// to four runes, using DefaultPrefixScale.
func JaroWinkler(a, b string) float64 {
	return JaroWinklerScaled(a, b, DefaultPrefixScale)
}

// JaroWinklerScaled is JaroWinkler with an explicit prefix scale.
func JaroWinklerScaled(a, b string, prefixScale float64) float64 {
	jaro := Jaro(a, b)
	s1, s2 := []rune(a), []rune(b)
	limit := min(maxWinklerPrefix, len(s1), len(s2))
	prefix := 0
	for prefix < limit && s1[prefix] == s2[prefix] {
		prefix++
	}
	return jaro + float64(prefix)*prefixScale*(1-jaro)
}

// LevenshteinRatio returns (longer - distance) / longer, measured in runes.
// Two empty strings are identical.
func LevenshteinRatio(a, b string) float64 {
	longer := max(len([]rune(a)), len([]rune(b)))
	if longer == 0 {
		return 1
	}
	distance := levenshtein.ComputeDistance(a, b)
	return float64(longer-distance) / float64(longer)
}
