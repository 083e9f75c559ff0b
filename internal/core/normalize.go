package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName makes a string comparable across the case, accent and
// whitespace variations found in user input and AI-extracted text: lowercase,
// NFD decomposition with combining marks dropped, trimmed, internal runs of
// whitespace collapsed to single spaces.
//
// Every category-name and unit-name comparison that is not id-based goes
// through this function.
func NormalizeName(s string) string {
	s = strings.ToLower(s)
	s = norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// SameName reports whether two names are equal after normalization.
func SameName(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}
