package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeLabel turns a reference file stem into the label recorded in the
// ledger: trimmed, NFC-composed and upper-cased ("123456789_jiří_novák" ->
// "123456789_JIŘÍ_NOVÁK").
func NormalizeLabel(stem string) string {
	s := norm.NFC.String(strings.TrimSpace(stem))
	return cases.Upper(language.Und).String(s)
}

// ASCIILabel folds a label to ASCII for renderers without glyphs for accented
// characters. Characters that have no ASCII base become '?'.
func ASCIILabel(label string) string {
	s := RemoveDiacritics(label)
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return '?'
		}
		return r
	}, s)
}
