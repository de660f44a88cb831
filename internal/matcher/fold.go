// Package matcher resolves normalized film titles against the movie
// catalog.  The learned title-mapping cache is consulted first; only on a
// miss does the matcher fall back to folded and stemmed title comparison.
package matcher

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldChain = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases a title and strips diacritics, so "Amélie" and "amelie"
// compare equal.
func Fold(s string) string {
	out, _, err := transform.String(foldChain, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

var nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// stopwords are articles that carry no matching signal in the catalogs the
// sheets draw from.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "and": true,
	"le": true, "la": true, "les": true, "der": true, "die": true, "das": true,
}

// Words splits a folded title into significant words.
func Words(s string) []string {
	var out []string
	for _, w := range nonWordRe.Split(Fold(s), -1) {
		if w == "" || stopwords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Stems returns the stemmed significant words of a title.  Stemming keeps
// "screening"/"screenings" style inflections from breaking word overlap;
// words the stemmer cannot handle are kept as-is.
func Stems(s string) []string {
	words := Words(s)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if st, err := snowball.Stem(w, "english", true); err == nil && st != "" {
			out = append(out, st)
		} else {
			out = append(out, w)
		}
	}
	return out
}

var (
	parentheticalRe = regexp.MustCompile(`\s*\([^()]*\)`)
	formatTokenRe   = regexp.MustCompile(`(?i)\b(2d|3d|imax|atmos|4dx|70mm|35mm|screenx|dolby)\b`)
)

// NormalizeTitle strips parenthetical suffixes and format/technology tokens
// from an import title.  Title mappings store this form so one learned
// match covers the 2D, 3D and IMAX variants of the same import title.
func NormalizeTitle(s string) string {
	s = parentheticalRe.ReplaceAllString(s, "")
	s = formatTokenRe.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}
