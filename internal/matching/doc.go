// Package matching decides whether a catalog track is the song a video
// refers to.
//
// A Scorer combines Jaro-Winkler title and artist similarity with a duration
// proximity term into a score in [0,1] and gates it against the auto-add
// threshold. BuildQueries produces the ordered catalog query chain and
// Matcher walks it against a Searcher, stopping at the first query that
// returns candidates.
package matching
