package mood

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s, trims it and strips combining marks after NFKD decomposition,
// so "Üzgün" and "uzgun" compare equal.
func Fold(s string) string {
	base := strings.ToLower(strings.TrimSpace(s))
	decomposed := norm.NFKD.String(base)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
