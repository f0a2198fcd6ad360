package content

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Summary returns the short description, or a plain-text excerpt of the
// HTML content of at most n runes when no description is set.
func (p Post) Summary(n int) string {
	if d := strings.TrimSpace(p.Description()); d != "" {
		return d
	}
	return Excerpt(p.Content, n)
}

// Excerpt strips markup from an HTML fragment and truncates the text to at
// most n runes on a word boundary, appending an ellipsis when cut.
func Excerpt(html string, n int) string {
	text := html
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		doc.Find("script, style").Remove()
		text = doc.Text()
	}
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if n <= 0 || len(runes) <= n {
		return text
	}
	cut := string(runes[:n])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
