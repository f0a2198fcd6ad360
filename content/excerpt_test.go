package content_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/eringen/pubsite/content"
)

func TestExcerpt(t *testing.T) {
	c := qt.New(t)

	c.Assert(content.Excerpt("<p>Hello <b>there</b></p>\n<p>world</p>", 100), qt.Equals, "Hello there world")
	c.Assert(content.Excerpt("<p>one two three four</p>", 9), qt.Equals, "one two…")
	c.Assert(content.Excerpt("<script>alert(1)</script><p>safe</p>", 50), qt.Equals, "safe")
	c.Assert(content.Excerpt("", 10), qt.Equals, "")
}

func TestPostSummaryPrefersDescription(t *testing.T) {
	c := qt.New(t)
	desc := "Short and sweet"

	c.Assert(content.Post{Content: "<p>Body text</p>", ShortDescription: &desc}.Summary(5), qt.Equals, desc)
	c.Assert(content.Post{Content: "<p>Body text</p>"}.Summary(50), qt.Equals, "Body text")
}
