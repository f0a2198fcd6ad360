package pubsite

import (
	"net/url"
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slugify converts a title to a URL-safe slug: accents are folded to their
// base letters, everything is lowercased, characters other than letters,
// digits, whitespace, underscores and hyphens are dropped, and each run of
// whitespace, underscores or hyphens becomes a single hyphen.
//
//	Slugify("Hello, World!")        == "hello-world"
//	Slugify("  Already-Slugged  ") == "already-slugged"
func Slugify(s string) string {
	s = foldDiacritics(strings.ToLower(strings.TrimSpace(s)))
	var b strings.Builder
	pending := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
		case r == '-' || r == '_' || unicode.IsSpace(r):
			pending = true
		}
	}
	return b.String()
}

var diacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldDiacritics(s string) string {
	out, _, err := transform.String(diacritics, s)
	if err != nil {
		return s
	}
	return out
}

// ValidSlug reports whether s is a non-empty slug in canonical form.
func ValidSlug(s string) bool {
	return s != "" && Slugify(s) == s
}

// BuildURL joins a base URL with path segments.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join("/", u.Path, path.Join(pathSegments...))
	return u.String()
}
