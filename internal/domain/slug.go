package domain

import (
	"strings"
	"unicode"
)

// Slugify derives a URL-safe identifier from a display name: lowercase,
// only [a-z0-9-], whitespace and hyphen runs folded into one hyphen, no
// leading or trailing hyphen. Slugify(Slugify(s)) == Slugify(s).
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	lastHyphen := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case r == '-' || isSpace(r):
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
		// Everything else is dropped without breaking a hyphen run.
	}

	return strings.Trim(b.String(), "-")
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}
