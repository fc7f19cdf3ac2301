// Package textutil provides the text processing used to compare video titles
// against catalog tracks.
//
// The primary use cases are:
//   - Sanitizing raw video titles (quality markers, "official video"
//     annotations, pipe suffixes) and splitting "Artist - Title" strings
//   - Canonicalizing or removing featuring clauses
//   - Jaro, Jaro-Winkler and Levenshtein-ratio similarity
//   - Case and diacritic folding, and filename sanitization
//
// Every function is pure; callers decide on case folding before comparing.
package textutil
