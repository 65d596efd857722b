package geomatch

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// separators are dropped from names before comparison.
var separators = map[rune]bool{
	'-': true,
	'‐': true, // hyphen
	'‑': true, // non-breaking hyphen
	'・': true, // katakana middle dot
	'·': true, // middle dot
	'･': true, // halfwidth katakana middle dot
}

// isCombiningDiacritic matches the Latin combining marks block only, so that
// Japanese voicing marks (dakuten) survive decomposition.
func isCombiningDiacritic(r rune) bool {
	return r >= 0x0300 && r <= 0x036F
}

// Normalize folds a place name into its comparison form: width-folded (NFKC),
// Latin accents removed, lowercased, with whitespace and hyphen/middle-dot
// separators stripped.
func Normalize(name string) string {
	if name == "" {
		return ""
	}

	// Transformers carry state, so a fresh chain is built per call.
	t := transform.Chain(
		norm.NFKC,
		norm.NFD,
		runes.Remove(runes.Predicate(isCombiningDiacritic)),
		norm.NFC,
		cases.Lower(language.Und),
	)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = strings.ToLower(name)
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsSpace(r) || separators[r] {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
