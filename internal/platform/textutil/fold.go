package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases value, strips diacritics and collapses inner whitespace so
// that "  Bogotá D.C." and "bogota d.c." compare equal.
func Fold(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, value)
	if err != nil {
		stripped = value
	}
	return strings.Join(strings.Fields(strings.ToLower(stripped)), " ")
}

// EqualFold reports whether a and b are equal ignoring case, accents and spacing.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}
